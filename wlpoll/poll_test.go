package wlpoll

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestRegisterAndReadEventsReportsReadable(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	const key = uint64(0xdeadbeef)
	if err := p.Register(key, fds[0]); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := p.UpdateInterests(key, fds[0], Readable); err != nil {
		t.Fatalf("UpdateInterests: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var events [4]Event
	n, err := p.ReadEvents(1000, events[:])
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if n != 1 {
		t.Fatalf("ReadEvents returned %d events, want 1", n)
	}
	if events[0].Key != key {
		t.Fatalf("Key = %x, want %x", events[0].Key, key)
	}
	if events[0].Events&Readable == 0 {
		t.Fatalf("Events = %x, want Readable bit set", events[0].Events)
	}
}

func TestOneShotRequiresRearm(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	const key = uint64(1)
	if err := p.Register(key, fds[0]); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := p.UpdateInterests(key, fds[0], Readable); err != nil {
		t.Fatalf("UpdateInterests: %v", err)
	}
	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var events [4]Event
	if _, err := p.ReadEvents(1000, events[:]); err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}

	// Without rearming, a second readable condition (more data already
	// pending) must not be reported again.
	if _, err := unix.Write(fds[1], []byte("y")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	n, err := p.ReadEvents(50, events[:])
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if n != 0 {
		t.Fatalf("ReadEvents returned %d events before rearm, want 0", n)
	}
}

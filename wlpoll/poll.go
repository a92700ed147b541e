// Package wlpoll implements an edge-triggered, one-shot epoll poller,
// grounded on original_source/wl-proxy/src/poll.rs.
package wlpoll

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// MaxEvents bounds how many events ReadEvents can report in one call.
const MaxEvents = 16

const (
	Readable = uint32(unix.EPOLLIN)
	Writable = uint32(unix.EPOLLOUT)
	ErrorBit = uint32(unix.EPOLLERR | unix.EPOLLHUP)
	oneshot  = uint32(unix.EPOLLONESHOT)
	allBits  = Readable | Writable | ErrorBit | oneshot
)

// Event reports which bits fired for the fd registered under Key.
type Event struct {
	Key    uint64
	Events uint32
}

// Poller wraps a single epoll instance. Every registration is
// one-shot: after an fd fires, the caller must call UpdateInterests
// (or Unregister, if it's done with the fd) before epoll will report
// on it again.
type Poller struct {
	epollFD int
}

// New creates a fresh epoll instance.
func New() (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("wlpoll: could not create epoll fd: %w", err)
	}
	return &Poller{epollFD: fd}, nil
}

// FD returns the underlying epoll file descriptor.
func (p *Poller) FD() int { return p.epollFD }

// Close releases the epoll instance.
func (p *Poller) Close() error { return unix.Close(p.epollFD) }

// ReadEvents blocks up to timeoutMS milliseconds (-1 waits forever)
// for events, writing up to len(dst) of them and returning the count
// written.
func (p *Poller) ReadEvents(timeoutMS int, dst []Event) (int, error) {
	var raw [MaxEvents]unix.EpollEvent
	if len(dst) > MaxEvents {
		dst = dst[:MaxEvents]
	}
	for {
		n, err := unix.EpollWait(p.epollFD, raw[:len(dst)], timeoutMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return 0, fmt.Errorf("wlpoll: could not read epoll events: %w", err)
		}
		for i := 0; i < n; i++ {
			dst[i] = Event{Key: packKey(raw[i].Fd, raw[i].Pad), Events: raw[i].Events & allBits}
		}
		return n, nil
	}
}

// packKey/unpackKey store a caller-chosen 64-bit key in the epoll_event
// data union, which x/sys/unix exposes as two int32 fields (Fd, Pad)
// rather than the single u64 the Rust uapi binding presents directly.
func packKey(fd, pad int32) uint64 {
	return uint64(uint32(fd)) | uint64(uint32(pad))<<32
}

func unpackKey(key uint64) (fd, pad int32) {
	return int32(uint32(key)), int32(uint32(key >> 32))
}

// Register adds fd to the poller under key, initially armed only for
// the EPOLLONESHOT marker with no interest bits -- call
// UpdateInterests to arm it for readable/writable/error.
func (p *Poller) Register(key uint64, fd int) error {
	lo, hi := unpackKey(key)
	ev := unix.EpollEvent{Events: oneshot, Fd: lo, Pad: hi}
	if err := unix.EpollCtl(p.epollFD, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("wlpoll: could not register fd with epoll: %w", err)
	}
	return nil
}

// Unregister removes fd from the poller. Failures are logged, not
// returned: by the time a caller wants to unregister an fd it is
// usually already being torn down, and there is nothing useful to do
// with the error.
func (p *Poller) Unregister(log zerolog.Logger, fd int) {
	if err := unix.EpollCtl(p.epollFD, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		log.Warn().Err(err).Int("fd", fd).Msg("could not remove a file descriptor from epoll")
	}
}

// UpdateInterests re-arms fd (registered under key) for the given
// interest bits, required after every event epoll reports for it
// since registrations are one-shot.
func (p *Poller) UpdateInterests(key uint64, fd int, events uint32) error {
	lo, hi := unpackKey(key)
	ev := unix.EpollEvent{Events: events | oneshot, Fd: lo, Pad: hi}
	if err := unix.EpollCtl(p.epollFD, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("wlpoll: could not update epoll interests: %w", err)
	}
	return nil
}

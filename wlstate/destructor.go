package wlstate

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/go-wlproxy/wlproxy/wlpoll"
)

// Destructor ties a State's lifetime to a scope. Rust's Destructor
// destroys the state when it goes out of scope (Drop); Go has no
// destructors, so callers must call Close explicitly — typically via
// defer — where the original relied on scope exit. Grounded on
// original_source/wl-proxy/src/state/destructor.rs.
type Destructor struct {
	state   *State
	enabled bool
}

// CreateDestructor returns a Destructor enabled by default: closing it
// destroys s unless Disable was called first.
func (s *State) CreateDestructor() *Destructor {
	return &Destructor{state: s, enabled: true}
}

// State returns the underlying state.
func (d *Destructor) State() *State { return d.state }

// Enabled reports whether Close will destroy the state.
func (d *Destructor) Enabled() bool { return d.enabled }

// Enable re-arms destruction on Close. This is the default.
func (d *Destructor) Enable() { d.enabled = true }

// Disable suppresses destruction on Close.
func (d *Destructor) Disable() { d.enabled = false }

// Close destroys the underlying state if the destructor is still
// enabled. Safe to call more than once; only the first enabled call
// has an effect, since State.Destroy is itself idempotent.
func (d *Destructor) Close() {
	if d.enabled {
		d.state.Destroy()
	}
}

// RemoteDestructor is a Destructor usable from another goroutine: its
// Close is safe to call concurrently with the owning State's dispatch
// loop, signaling destruction through an eventfd the state has
// registered with its poller rather than touching State fields
// directly. Grounded on state/destructor.rs's RemoteDestructor, with
// the unspecified wakeup fd made concrete as a Linux eventfd (the
// pack's idiomatic stand-in for an arbitrary "_fd: OwnedFd").
type RemoteDestructor struct {
	destroy *atomic.Bool
	wakeFD  int
	enabled atomic.Bool
}

// CreateRemoteDestructor returns a RemoteDestructor enabled by
// default, backed by an eventfd registered with s's poller so Close
// can wake a blocked DispatchBlocking call from any goroutine.
func (s *State) CreateRemoteDestructor() (*RemoteDestructor, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	id := s.nextPollableID
	s.nextPollableID++
	s.pollables[id] = &pollable{kind: pollableRemoteDestructor, fd: fd}
	if err := s.poller.Register(id, fd); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := s.poller.UpdateInterests(id, fd, wlpoll.Readable); err != nil {
		unix.Close(fd)
		return nil, err
	}
	rd := &RemoteDestructor{destroy: &atomic.Bool{}, wakeFD: fd}
	rd.enabled.Store(true)
	s.remoteDestructors = append(s.remoteDestructors, rd)
	return rd, nil
}

// Enabled reports whether Close will destroy the state.
func (r *RemoteDestructor) Enabled() bool { return r.enabled.Load() }

// Enable re-arms destruction on Close. This is the default.
func (r *RemoteDestructor) Enable() { r.enabled.Store(true) }

// Disable suppresses destruction on Close.
func (r *RemoteDestructor) Disable() { r.enabled.Store(false) }

// Close signals the owning state to destroy itself on its next
// dispatch pass, if this destructor is still enabled.
func (r *RemoteDestructor) Close() {
	if r.enabled.Load() {
		r.destroy.Store(true)
		var one [8]byte
		one[0] = 1
		unix.Write(r.wakeFD, one[:])
	}
}

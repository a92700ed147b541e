package wire

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// frame is one fixed-size chunk of the output swap-chain. A message is
// never split across two frames: BeginMessage rotates to a fresh frame
// if the current one lacks room, so that a single sendmsg call is
// always enough to flush one frame's pending bytes (spec.md §4.1).
type frame struct {
	buf        [FrameSize]byte
	validFrom  int
	validTo    int
}

func (f *frame) remaining() int {
	return FrameSize - f.validTo
}

func (f *frame) pending() []byte {
	return f.buf[f.validFrom:f.validTo]
}

func (f *frame) empty() bool {
	return f.validFrom >= f.validTo
}

// OutputSwapchain is the per-endpoint outgoing byte/FD queue: a ring of
// frames that can be appended to while older frames are still being
// drained by partial writes. It is the Go analogue of
// original_source's trans::OutputSwapchain.
type OutputSwapchain struct {
	frames  []*frame
	fds     []*os.File
}

// BeginMessage reserves room for a message of the given total size
// (header included) and returns a byte slice of exactly that length to
// encode it into. If the current tail frame cannot hold the message, a
// new frame is started.
func (s *OutputSwapchain) BeginMessage(size int) []byte {
	if len(s.frames) == 0 || s.frames[len(s.frames)-1].remaining() < size {
		s.frames = append(s.frames, &frame{})
	}
	tail := s.frames[len(s.frames)-1]
	start := tail.validTo
	tail.validTo += size
	return tail.buf[start:tail.validTo]
}

// QueueFD appends a descriptor to be sent with the next flush.
func (s *OutputSwapchain) QueueFD(f *os.File) {
	s.fds = append(s.fds, f)
}

// Empty reports whether there is nothing left to send.
func (s *OutputSwapchain) Empty() bool {
	return len(s.frames) == 0
}

// FlushResult describes the outcome of one Flush call.
type FlushResult int

const (
	// FlushDone means every queued byte was written.
	FlushDone FlushResult = iota
	// FlushWouldBlock means the socket is not currently writable; the
	// caller should re-arm writable interest and retry later.
	FlushWouldBlock
)

// Flush writes as much of the queued data as the socket will currently
// accept, via sendmsg so that any queued FDs ride along with the first
// non-empty write. EINTR is retried transparently; EAGAIN yields
// FlushWouldBlock. A write is never attempted across a frame boundary:
// at most one frame's bytes are attempted per sendmsg call, so that a
// short write can never straddle two in-flight messages.
func (s *OutputSwapchain) Flush(fd int) (FlushResult, error) {
	sentFDsYet := false
	for len(s.frames) > 0 {
		f := s.frames[0]
		if f.empty() {
			s.frames = s.frames[1:]
			continue
		}
		oob := s.rightsFor(sentFDsYet)
		n, _, err := unix.Sendmsg(fd, f.pending(), oob, nil, 0)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return FlushWouldBlock, nil
			}
			return FlushWouldBlock, err
		}
		if n > 0 && len(oob) > 0 {
			s.clearSentFDs()
			sentFDsYet = true
		}
		f.validFrom += n
		if f.empty() {
			s.frames = s.frames[1:]
		} else {
			// Short write: the socket's send buffer is full. Stop here
			// and let the caller re-arm writable interest.
			return FlushWouldBlock, nil
		}
	}
	return FlushDone, nil
}

// rightsFor builds the SCM_RIGHTS ancillary payload for the next
// sendmsg call. FDs ride with the oldest queued frame's very first
// sendmsg attempt (alreadySent is false only before that call
// succeeds); sending them more than once would duplicate descriptors
// on the peer, and waiting for exactly one frame left queued (as
// opposed to the first syscall) would let a second queued frame's
// write silently discard unsent FDs.
func (s *OutputSwapchain) rightsFor(alreadySent bool) []byte {
	if alreadySent || len(s.fds) == 0 {
		return nil
	}
	raw := make([]int, len(s.fds))
	for i, f := range s.fds {
		raw[i] = int(f.Fd())
	}
	return unix.UnixRights(raw...)
}

func (s *OutputSwapchain) clearSentFDs() {
	for _, f := range s.fds {
		_ = f.Close()
	}
	s.fds = nil
}

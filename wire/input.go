package wire

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// InputBuffer reassembles incoming bytes (and out-of-band FDs) from a
// stream socket into complete, framed messages. It is the receive-side
// counterpart of OutputSwapchain.
type InputBuffer struct {
	buf    []byte
	fds    FDQueue
	filled int
}

// NewInputBuffer creates an input buffer with a reasonable starting
// capacity; it grows on demand up to MaxMessageSize-sized chunks.
func NewInputBuffer() *InputBuffer {
	return &InputBuffer{buf: make([]byte, FrameSize)}
}

func (b *InputBuffer) ensure(n int) {
	if len(b.buf) < n {
		grown := make([]byte, n)
		copy(grown, b.buf[:b.filled])
		b.buf = grown
	}
}

// FillFromSocket performs one recvmsg call, appending any bytes and FDs
// received to the buffer. It reports io.EOF-like closure via a zero
// read with no error (mirroring net.Conn semantics), EAGAIN as
// ErrWouldBlock, and EINTR by retrying internally.
var ErrWouldBlock = errors.New("would block")

func (b *InputBuffer) FillFromSocket(fd int) (closed bool, err error) {
	for {
		b.ensure(b.filled + FrameSize)
		oob := make([]byte, unix.CmsgSpace(64*4)) // room for a burst of FDs
		n, oobn, _, _, err := unix.Recvmsg(fd, b.buf[b.filled:b.filled+FrameSize], oob, 0)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return false, ErrWouldBlock
			}
			return false, err
		}
		if n == 0 {
			return true, nil
		}
		b.filled += n
		if oobn > 0 {
			if err := b.absorbControlMessages(oob[:oobn]); err != nil {
				return false, err
			}
		}
		return false, nil
	}
}

func (b *InputBuffer) absorbControlMessages(oob []byte) error {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fds, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		for _, raw := range fds {
			unix.CloseOnExec(raw)
			b.fds.Push(os.NewFile(uintptr(raw), "wayland-fd"))
		}
	}
	return nil
}

// Peek reports whether a complete message is currently buffered, and if
// so returns its decoded header.
func (b *InputBuffer) Peek() (hdr Header, ok bool, err error) {
	if b.filled < HeaderSize {
		return Header{}, false, nil
	}
	senderWord := le32(b.buf[0:4])
	sizeOpWord := le32(b.buf[4:8])
	hdr = DecodeHeader(senderWord, sizeOpWord)
	if err := ValidateSize(hdr.Size); err != nil {
		return Header{}, false, err
	}
	if b.filled < int(hdr.Size) {
		return hdr, false, nil
	}
	return hdr, true, nil
}

// Take removes and returns the payload bytes (header excluded) of the
// complete message identified by a prior Peek, sliding the remaining
// buffered bytes down to the front.
func (b *InputBuffer) Take(hdr Header) []byte {
	payload := make([]byte, int(hdr.Size)-HeaderSize)
	copy(payload, b.buf[HeaderSize:hdr.Size])
	remaining := b.filled - int(hdr.Size)
	copy(b.buf, b.buf[hdr.Size:b.filled])
	b.filled = remaining
	return payload
}

// FDs returns the FD queue shared with argument decoding.
func (b *InputBuffer) FDs() *FDQueue {
	return &b.fds
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

package wire

import "fmt"

const (
	// HeaderSize is the size in bytes of the fixed sender-id/size-opcode
	// header that precedes every message.
	HeaderSize = 8

	// MaxMessageSize is the largest permitted value of the size field in
	// a message header, header included.
	MaxMessageSize = 4096

	// FrameSize is the size in bytes of one output swap-chain frame. It
	// is chosen equal to MaxMessageSize so that a single message never
	// needs to span two frames.
	FrameSize = MaxMessageSize
)

// Header is the decoded form of a message's two leading words.
type Header struct {
	SenderID uint32
	Opcode   uint16
	Size     uint16
}

// DecodeHeader parses the two 32-bit little-endian header words. The
// second word packs (size << 16) | opcode: size occupies the upper
// 16 bits, opcode the lower 16.
func DecodeHeader(senderWord, sizeOpcodeWord uint32) Header {
	return Header{
		SenderID: senderWord,
		Size:     uint16(sizeOpcodeWord >> 16),
		Opcode:   uint16(sizeOpcodeWord & 0xffff),
	}
}

// Encode packs the header back into its two wire words.
func (h Header) Encode() (senderWord, sizeOpcodeWord uint32) {
	return h.SenderID, uint32(h.Size)<<16 | uint32(h.Opcode)&0xffff
}

// ValidateSize checks the size field against the protocol's structural
// constraints: at least a header, a multiple of 4, and no larger than
// MaxMessageSize. Any other value is a fatal protocol error for the
// endpoint that observed it.
func ValidateSize(size uint16) error {
	if size < HeaderSize {
		return fmt.Errorf("message size %d is smaller than the header (%d)", size, HeaderSize)
	}
	if size%4 != 0 {
		return fmt.Errorf("message size %d is not a multiple of 4", size)
	}
	if size > MaxMessageSize {
		return fmt.Errorf("message size %d exceeds the maximum of %d", size, MaxMessageSize)
	}
	return nil
}

// WordCount returns how many uint32 payload words follow the message
// header, given the header's Size field.
func (h Header) WordCount() int {
	return (int(h.Size) - HeaderSize) / 4
}

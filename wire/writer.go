package wire

import (
	"encoding/binary"
)

// Writer accumulates the payload words of a single outgoing message
// into a caller-supplied byte buffer, advancing a cursor as it goes.
// It mirrors the teacher's wlclient.Display.marshalArg, generalized to
// the full Wayland argument set and to writing directly into a
// swap-chain frame rather than a throwaway bytes.Buffer.
type Writer struct {
	buf   []byte
	wordsWritten int
}

// NewWriter wraps buf, which must have enough room for the words that
// will be written; callers size it from the message's known length.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.wordsWritten * 4
}

func (w *Writer) growTo(words int) {
	if words*4 > len(w.buf) {
		grown := make([]byte, words*4)
		copy(grown, w.buf)
		w.buf = grown
	}
}

// Uint32 appends a raw uint32 word.
func (w *Writer) Uint32(v uint32) {
	w.growTo(w.wordsWritten + 1)
	binary.LittleEndian.PutUint32(w.buf[w.wordsWritten*4:], v)
	w.wordsWritten++
}

// Int32 appends a signed int32 word.
func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

// Fixed appends a 24.8 fixed-point word.
func (w *Writer) Fixed(v Fixed) {
	w.Uint32(v.ToWire())
}

// Object appends an object-id word (0 for a null object).
func (w *Writer) Object(id uint32) {
	w.Uint32(id)
}

// NewID appends a new-id word.
func (w *Writer) NewID(id uint32) {
	w.Uint32(id)
}

// String appends a length-prefixed, NUL-terminated, word-padded string.
func (w *Writer) String(s string) {
	n := len(s) + 1
	w.Uint32(uint32(n))
	padded := wordAlign(n)
	w.growTo(w.wordsWritten + padded/4)
	base := w.wordsWritten * 4
	copy(w.buf[base:], s)
	w.buf[base+len(s)] = 0
	for i := len(s) + 1; i < padded; i++ {
		w.buf[base+i] = 0
	}
	w.wordsWritten += padded / 4
}

// Array appends a length-prefixed, word-padded byte array.
func (w *Writer) Array(data []byte) {
	w.Uint32(uint32(len(data)))
	padded := wordAlign(len(data))
	w.growTo(w.wordsWritten + padded/4)
	base := w.wordsWritten * 4
	copy(w.buf[base:], data)
	for i := len(data); i < padded; i++ {
		w.buf[base+i] = 0
	}
	w.wordsWritten += padded / 4
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.wordsWritten*4]
}

func wordAlign(n int) int {
	return (n + 3) &^ 3
}

// EncodeMessage writes a complete message (header + payload) into buf
// and returns the number of bytes used. payload must already contain
// the encoded argument words (e.g. from a Writer).
func EncodeMessage(buf []byte, senderID uint32, opcode uint16, payload []byte) int {
	size := HeaderSize + len(payload)
	binary.LittleEndian.PutUint32(buf[0:4], senderID)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(size)<<16|uint32(opcode)&0xffff)
	copy(buf[8:], payload)
	return size
}

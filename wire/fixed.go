// Package wire implements the Wayland wire format: the 8-byte message
// header, word-aligned argument encoding, and the buffered read/write
// paths used by an endpoint to exchange messages with its peer.
package wire

// Fixed is the Wayland 24.8 signed fixed-point number format. It is
// transmitted on the wire as a single int32 word.
type Fixed int32

// NewFixed converts a float64 into a Fixed, truncating to the nearest
// 1/256th.
func NewFixed(v float64) Fixed {
	return Fixed(v * 256.0)
}

// NewFixedInt converts an integer into a Fixed with zero fractional part.
func NewFixedInt(v int) Fixed {
	return Fixed(v << 8)
}

// Float64 converts a Fixed back into a float64.
func (f Fixed) Float64() float64 {
	return float64(f) / 256.0
}

// Int converts a Fixed to an int by an arithmetic shift, so the
// fractional part is rounded toward negative infinity (-1.5 gives -2).
func (f Fixed) Int() int {
	return int(f) >> 8
}

// Add returns f+g. Fixed values form an additive group under this
// operation: (a+b)+c == a+(b+c) and a+0 == a, since the underlying
// representation is a plain two's-complement int32.
func (f Fixed) Add(g Fixed) Fixed {
	return f + g
}

// Sub returns f-g.
func (f Fixed) Sub(g Fixed) Fixed {
	return f - g
}

// Mul returns f*g with the fixed-point scaling undone once, so that
// NewFixedInt(1).Mul(g) == g (NewFixedInt(1), not Fixed(1): the
// multiplicative identity is 256 in this 24.8 representation).
func (f Fixed) Mul(g Fixed) Fixed {
	return Fixed((int64(f) * int64(g)) >> 8)
}

// FixedFromWire interprets a raw wire word as a Fixed.
// FixedFromWire(f.ToWire()) is the identity.
func FixedFromWire(word uint32) Fixed {
	return Fixed(int32(word))
}

// ToWire returns the raw wire word for f.
func (f Fixed) ToWire() uint32 {
	return uint32(int32(f))
}

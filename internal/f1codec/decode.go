package f1codec

import (
	"encoding/binary"
	"math"
)

func decodeFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func decodeFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func decodeInt16(b []byte) int16 {
	return int16(binary.LittleEndian.Uint16(b))
}

func decodeInt8(b byte) int8 {
	return int8(b)
}

// cursor is a small bounds-checked reader over a packet body. It never
// allocates; its read methods do no bounds checks of their own and stay
// panic-free because each decodeX function checks the body length up front.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) u8() uint8 {
	v := c.buf[c.pos]
	c.pos++
	return v
}

func (c *cursor) i8() int8 {
	return int8(c.u8())
}

func (c *cursor) u16() uint16 {
	v := binary.LittleEndian.Uint16(c.buf[c.pos : c.pos+2])
	c.pos += 2
	return v
}

func (c *cursor) u32() uint32 {
	v := binary.LittleEndian.Uint32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v
}

func (c *cursor) u64() uint64 {
	v := binary.LittleEndian.Uint64(c.buf[c.pos : c.pos+8])
	c.pos += 8
	return v
}

func (c *cursor) f32() float32 {
	v := decodeFloat32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v
}

func (c *cursor) f64() float64 {
	v := decodeFloat64(c.buf[c.pos : c.pos+8])
	c.pos += 8
	return v
}

func (c *cursor) bytes(n int) []byte {
	v := c.buf[c.pos : c.pos+n]
	c.pos += n
	return v
}

func (c *cursor) skip(n int) {
	c.pos += n
}

// Package binutil collects the little-endian binary-decoding primitives
// shared by every format decoder: fixed-width integer reads over a
// bounds-checked cursor, a CRC32 block-framing helper, and adapters over
// the LZMA1/zlib/bzip2 decompressors used by the Inno Setup and NSIS
// payloads.
package binutil

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ErrOutOfRange is returned whenever a read would reach past the end of
// the underlying byte slice. Every format decoder must bounds-check
// offsets before trusting them (spec requirement: "do not trust any
// offset without bounds-checking against the file length").
var ErrOutOfRange = errors.New("binutil: read out of range")

// Cursor is a bounds-checked little-endian reader over an in-memory
// buffer. Decoders use it instead of raw slice indexing so that a
// malformed offset turns into ErrOutOfRange instead of a panic.
type Cursor struct {
	Data []byte
	Pos  int64
}

// NewCursor wraps data for sequential little-endian reads starting at
// offset 0.
func NewCursor(data []byte) *Cursor {
	return &Cursor{Data: data}
}

// Seek moves the cursor to an absolute offset.
func (c *Cursor) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(c.Data)) {
		return ErrOutOfRange
	}
	c.Pos = pos
	return nil
}

// Len reports the total buffer length.
func (c *Cursor) Len() int64 { return int64(len(c.Data)) }

func (c *Cursor) take(n int64) ([]byte, error) {
	if n < 0 || c.Pos+n > int64(len(c.Data)) || c.Pos < 0 {
		return nil, ErrOutOfRange
	}
	b := c.Data[c.Pos : c.Pos+n]
	c.Pos += n
	return b, nil
}

// Bytes reads exactly n raw bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.take(int64(n))
}

// U8 reads a single byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I32 reads a little-endian int32.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// UintSized reads either a uint32 or uint64 depending on is64, matching
// the NSIS block-header offset width switch (§4.4: "When the PE machine
// type is 64-bit, offset is u64; otherwise u32").
func (c *Cursor) UintSized(is64 bool) (uint64, error) {
	if is64 {
		return c.U64()
	}
	v, err := c.U32()
	return uint64(v), err
}

// CString reads bytes up to (and consuming) a NUL terminator, or to the
// end of the buffer if none is found.
func (c *Cursor) CString() (string, error) {
	start := c.Pos
	for c.Pos < int64(len(c.Data)) && c.Data[c.Pos] != 0 {
		c.Pos++
	}
	s := string(c.Data[start:c.Pos])
	if c.Pos < int64(len(c.Data)) {
		c.Pos++ // skip the NUL
	}
	return s, nil
}

// ReadAt is a convenience for one-shot bounds-checked slicing without
// moving the cursor, used by the PE RVA->offset resolvers.
func ReadAt(data []byte, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(data)) {
		return nil, ErrOutOfRange
	}
	return data[offset : offset+length], nil
}

// U16At/U32At read a little-endian value at an absolute offset without
// constructing a Cursor; used by call sites that only need one field.
func U32At(data []byte, offset int64) (uint32, error) {
	b, err := ReadAt(data, offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func U16At(data []byte, offset int64) (uint16, error) {
	b, err := ReadAt(data, offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// LimitedReader wraps an io.Reader that must not be read past n bytes,
// used to hand decompressors a hard ceiling derived from the §5 header
// size limit without them needing to know about it.
func LimitedReader(r io.Reader, n int64) io.Reader {
	return &io.LimitedReader{R: r, N: n}
}

package binutil

import (
	"io"

	"github.com/andrew-d/lzma"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// ErrDecompression wraps failures from any of the three codecs used by
// Inno Setup and NSIS payloads.
var ErrDecompression = errors.New("binutil: decompression failed")

// Codec identifies which of the three compressors framed a block.
type Codec int

const (
	// CodecStored means the bytes are not compressed at all.
	CodecStored Codec = iota
	// CodecZlib is the zlib (RFC 1950) codec used by older Inno Setup
	// releases and NSIS's non-LZMA1, non-bzip2 path.
	CodecZlib
	// CodecBzip2 is the codec selected when the data looks like a bzip2
	// stream, either after a non-solid block's 0x80-marked size word or
	// at the start of a solid archive (§4.4 table).
	CodecBzip2
	// CodecLZMA1 is the raw LZMA1 stream codec (no xz/7z container)
	// used by modern Inno Setup and solid/non-solid NSIS payloads.
	CodecLZMA1
)

// NewDecompressor wraps r with the decoder for codec. For CodecLZMA1,
// lzmaProps must be the 5-byte LZMA1 properties+dictionary-size header
// that normally precedes the stream (Inno and NSIS both slice it off
// the front of their compressed data before calling in here).
func NewDecompressor(codec Codec, r io.Reader, lzmaProps []byte) (io.ReadCloser, error) {
	switch codec {
	case CodecStored:
		return io.NopCloser(r), nil
	case CodecZlib:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(ErrDecompression, err.Error())
		}
		return zr, nil
	case CodecBzip2:
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, errors.Wrap(ErrDecompression, err.Error())
		}
		return io.NopCloser(br), nil
	case CodecLZMA1:
		lr, err := newLZMA1Reader(r, lzmaProps)
		if err != nil {
			return nil, errors.Wrap(ErrDecompression, err.Error())
		}
		return io.NopCloser(lr), nil
	default:
		return nil, errors.Wrap(ErrDecompression, "unknown codec")
	}
}

// newLZMA1Reader adapts andrew-d/lzma's classic LZMA_Alone-style reader,
// which expects the 13-byte header (properties byte, 4-byte dictionary
// size, 8-byte uncompressed size) that neither Inno nor NSIS actually
// transmit on the wire: both formats only send the 5-byte
// properties+dictionary-size prefix and recover the uncompressed length
// from their own framing (the Inno block-size field, or the NSIS
// FirstHeader.LengthOfHeader check). We therefore splice in a
// "size unknown" (all-0xFF) trailer field ourselves before handing the
// stream to the decoder.
func newLZMA1Reader(r io.Reader, props []byte) (io.Reader, error) {
	if len(props) < 5 {
		return nil, errors.New("lzma1: short properties header")
	}
	header := make([]byte, 13)
	copy(header, props[:5])
	for i := 5; i < 13; i++ {
		header[i] = 0xFF // unknown size: let the decoder read until EOF
	}
	return lzma.NewReader(io.MultiReader(
		&sliceReader{header}, r,
	))
}

type sliceReader struct{ b []byte }

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}

// DetectNSISCodec classifies the 12+ byte prefix of an NSIS data section
// per the §4.4 table ("Decompression" subsection of the NSIS reader).
// It returns the codec, whether the archive is solid, and whether a
// leading BCJ filter byte must be skipped.
func DetectNSISCodec(prefix []byte, headerLen uint32) (codec Codec, solid bool, hasBCJFilter bool) {
	if len(prefix) < 4 {
		return CodecStored, false, false
	}
	leading32 := u32le(prefix[0:4])
	if leading32 == headerLen {
		return CodecStored, false, false
	}

	// LZMA1 properties byte is prefix[0] == 0x5D with a plausible
	// dictionary size in prefix[1:5] and prefix[5] == 0x00; an optional
	// leading 0x00/0x01 selects the BCJ x86 filter.
	if isLZMA1Solid(prefix) {
		return CodecLZMA1, true, prefix[0] == 0x00 || prefix[0] == 0x01
	}

	if len(prefix) >= 4 && prefix[3] == 0x80 {
		rest := prefix[4:]
		if len(rest) >= 6 && rest[0] == 0x5D && rest[5] == 0x00 {
			return CodecLZMA1, false, false
		}
		if len(rest) >= 2 && rest[0] == 0x31 && rest[1] < 0x14 {
			return CodecBzip2, false, false
		}
		return CodecZlib, false, false
	}

	if len(prefix) >= 2 && prefix[0] == 0x31 && prefix[1] < 0x14 {
		return CodecBzip2, true, false
	}
	return CodecZlib, true, false
}

func isLZMA1Solid(prefix []byte) bool {
	off := 0
	if len(prefix) > 0 && (prefix[0] == 0x00 || prefix[0] == 0x01) {
		off = 1
	}
	if len(prefix) < off+6 {
		return false
	}
	return prefix[off] == 0x5D && prefix[off+1] == 0x00 && prefix[off+2] == 0x00 && prefix[off+5] == 0x00
}

func u32le(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

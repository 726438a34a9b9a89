package model

import "github.com/pkg/errors"

// DecoderErrorKind buckets every error the engine can produce into the
// nine kinds of spec.md §7, so callers can branch on category without
// parsing error strings.
type DecoderErrorKind int

const (
	// KindClassification covers UnsupportedExtension and the internal
	// NotThisFormat signal used to chain PE-wrapped decoders.
	KindClassification DecoderErrorKind = iota
	// KindStructural covers malformed container headers (DOS/PE
	// signatures, optional header magic, MSI compound document).
	KindStructural
	// KindIntegrity covers CRC/hash mismatches.
	KindIntegrity
	// KindDecompression covers LZMA1/zlib/bzip2/CAB failures.
	KindDecompression
	// KindInterpretation covers NSIS VM opcode failures and Burn
	// install-condition parse failures; always recovered locally.
	KindInterpretation
	// KindBounds covers RVA/recursion/header-size limit violations.
	KindBounds
	// KindEncoding covers UTF-8/UTF-16/XML decoding failures.
	KindEncoding
	// KindIO covers failures from the underlying byte source.
	KindIO
	// KindUnknownField is emitted only in debug traces, never returned
	// as a hard error.
	KindUnknownField
)

// DecoderError is the common error type every decoder returns. Decoder
// names are short and lower-case ("pe", "msi", "nsis", "inno", "burn",
// "msix", "zip") to keep messages grep-friendly.
type DecoderError struct {
	Decoder string
	Kind    DecoderErrorKind
	Offset  int64 // -1 when not applicable
	Anchor  string
	Err     error
}

func (e *DecoderError) Error() string {
	msg := e.Decoder + ": " + e.Err.Error()
	if e.Offset >= 0 && e.Anchor != "" {
		return msg + " (" + e.Anchor + ", offset " + itoa(e.Offset) + ")"
	}
	if e.Offset >= 0 {
		return msg + " (offset " + itoa(e.Offset) + ")"
	}
	if e.Anchor != "" {
		return msg + " (" + e.Anchor + ")"
	}
	return msg
}

func (e *DecoderError) Unwrap() error { return e.Err }

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// NewErr builds a DecoderError with no byte-offset anchor.
func NewErr(decoder string, kind DecoderErrorKind, err error) *DecoderError {
	return &DecoderError{Decoder: decoder, Kind: kind, Offset: -1, Err: err}
}

// NewErrAt builds a DecoderError anchored to a byte offset and a short
// structural description (spec.md §7: "the closest structural anchor").
func NewErrAt(decoder string, kind DecoderErrorKind, offset int64, anchor string, err error) *DecoderError {
	return &DecoderError{Decoder: decoder, Kind: kind, Offset: offset, Anchor: anchor, Err: err}
}

// ErrUnsupportedExtension is returned by Analyze when the file name's
// extension is not one of the six supported container families.
type ErrUnsupportedExtension struct {
	Extension string
}

func (e *ErrUnsupportedExtension) Error() string {
	return "analyze: unsupported file extension " + e.Extension
}

// ErrNotThisFormat is the soft classification signal used internally by
// the PE-wrapped decoder chain (Burn, Inno, NSIS); it is never returned
// from the public Analyze entry point.
var ErrNotThisFormat = errors.New("not this format")

// ErrRecursionLimit names the recursion-ceiling condition. No decoder
// returns it: the PE resource-directory walk reports exceeding its
// depth ceiling as its own KindBounds error.
var ErrRecursionLimit = errors.New("analyze: recursion limit exceeded")

// ErrHeaderTooLarge is returned when a decompressed header would exceed
// the configured ceiling (default 64 MiB, spec.md §5).
var ErrHeaderTooLarge = errors.New("analyze: header exceeds size ceiling")

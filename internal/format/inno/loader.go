// Package inno decodes an Inno Setup installer's RCDATA(11111) header:
// the setup-loader signature, the version marker, the CRC-framed
// compressed block stream, and the version-gated header field sequence
// (spec.md §4.5).
//
// Grounded on spec.md §4.5's normative field tables, with block framing
// and decompression delegated to internal/binutil (shared with NSIS's
// own LZMA1/zlib paths), and the field-length-prefixed encoding handled
// the way the teacher decodes its own length-prefixed package metadata
// (src/holo-build/common/package.go).
package inno

import (
	"bytes"

	"github.com/majewsky/wininstall-analyze/internal/format/pe"
	"github.com/majewsky/wininstall-analyze/model"
)

const decoderName = "inno"

const rcDataSetupID = 11111

type loaderVersion struct {
	Signature [12]byte
	Version   string
}

var loaderSignatures = []loaderVersion{
	{sig(0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x32, 0x87, 0x65, 0x56, 0x78), "1.2.10"},
	{sig(0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x34, 0x87, 0x65, 0x56, 0x78), "4.0.0"},
	{sig(0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x35, 0x87, 0x65, 0x56, 0x78), "4.0.3"},
	{sig(0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x36, 0x87, 0x65, 0x56, 0x78), "4.0.10"},
	{sig(0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0x30, 0x37, 0x87, 0x65, 0x56, 0x78), "4.1.6"},
	{sig(0x72, 0x44, 0x6C, 0x50, 0x74, 0x53, 0xCD, 0xE6, 0xD7, 0x7B, 0x0B, 0x2A), "5.1.5"},
	{sig(0x6E, 0x53, 0x35, 0x57, 0x37, 0x64, 0x54, 0x83, 0xAA, 0x1B, 0x0F, 0x6A), "5.1.5"},
}

func sig(b ...byte) [12]byte {
	var out [12]byte
	copy(out[:], b)
	return out
}

// findLoaderSignature finds the first 12 bytes of the RCDATA(11111)
// resource and matches it against the seven known setup-loader
// signatures. It returns model.ErrNotThisFormat if the resource is
// absent or shorter than 12 bytes, and a KindClassification error
// wrapping errUnknownSignature if the signature matches none of them.
func findLoaderSignature(f *pe.File, maxDepth int) ([]byte, string, error) {
	data, err := f.RCData(rcDataSetupID, maxDepth)
	if err != nil || data == nil {
		return nil, "", model.ErrNotThisFormat
	}
	if len(data) < 12 {
		return nil, "", model.ErrNotThisFormat
	}
	prefix := data[:12]
	for _, lv := range loaderSignatures {
		if bytes.Equal(prefix, lv.Signature[:]) {
			return data, lv.Version, nil
		}
	}
	return nil, "", model.NewErr(decoderName, model.KindClassification, errUnknownSignature{})
}

type errUnknownSignature struct{}

func (errUnknownSignature) Error() string { return "unknown Inno Setup loader signature" }

type strError string

func (e strError) Error() string { return string(e) }

func errShort(what string) error   { return strError("truncated " + what) }
func errInvalid(what string) error { return strError("invalid " + what) }

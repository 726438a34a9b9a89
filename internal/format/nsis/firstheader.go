// Package nsis decodes a Nullsoft Scriptable Install System (NSIS)
// payload overlaid on a host PE: the FirstHeader, the compressed
// header blocks, the strings/language tables, and a small virtual
// machine that symbolically executes the installer script far enough
// to recover install directory, registry, and filesystem side effects
// (spec.md §4.4).
//
// Grounded on the teacher's archive-member-walk shape
// (src/dump-package/impl/archive.go, common/filesystem.go) generalized
// from a flat archive to a header + block-table + VM payload, and on
// internal/vfs for the simulated filesystem the VM owns.
package nsis

import (
	"bytes"
	"encoding/binary"

	"github.com/majewsky/wininstall-analyze/model"
)

const decoderName = "nsis"

var firstHeaderSignatures = [][16]byte{
	mustSig("\xDE\xAD\xBE\xEFnsisinstall\x00"),
	mustSig("\xDE\xAD\xBE\xEDNullSoftInst"),
	mustSig("\xDE\xAD\xBE\xEFNullsoftInst"),
}

func mustSig(s string) [16]byte {
	var out [16]byte
	copy(out[:], s)
	return out
}

// FirstHeader is NSIS's fixed 28-byte overlay header.
type FirstHeader struct {
	Flags                 uint32
	LengthOfHeader         uint32
	LengthOfFollowingData uint32
}

// parseFirstHeader reads the FirstHeader from the start of the PE
// overlay, matching any of the three known 16-byte signatures.
func parseFirstHeader(overlay []byte) (*FirstHeader, int, error) {
	if len(overlay) < 28 {
		return nil, 0, model.ErrNotThisFormat
	}
	flags := binary.LittleEndian.Uint32(overlay[0:4])
	sig := overlay[4:20]
	matched := false
	for _, known := range firstHeaderSignatures {
		if bytes.Equal(sig, known[:]) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, 0, model.ErrNotThisFormat
	}
	length := binary.LittleEndian.Uint32(overlay[20:24])
	following := binary.LittleEndian.Uint32(overlay[24:28])
	return &FirstHeader{Flags: flags, LengthOfHeader: length, LengthOfFollowingData: following}, 28, nil
}

type strError string

func (e strError) Error() string { return string(e) }

func errShort(what string) error   { return strError("truncated " + what) }
func errInvalid(what string) error { return strError("invalid " + what) }

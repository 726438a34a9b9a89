// Package burn extracts the WiX Burn bootstrapper manifest from a PE
// host: the `.wixburn` section stub (spec.md §6's normative field
// list), the CAB-embedded UX container it points at, and the Burn XML
// manifest inside that container.
//
// Grounded on the teacher's per-format reader files (common/package.go
// + rpm/rpm.go: one file per container family, each returning a typed
// error the orchestrator recognizes as "not this format") generalized
// from holo's own package formats to Burn's section-stub format.
package burn

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/majewsky/wininstall-analyze/internal/format/pe"
	"github.com/majewsky/wininstall-analyze/model"
)

const decoderName = "burn"

const wixburnMagic = 0x00f14300

// Stub is the `.wixburn` section's fixed-layout header (spec.md §6).
type Stub struct {
	Magic                              uint32
	Version                            uint32
	BundleGUID                         uuid.UUID
	StubSize                           uint32
	OriginalChecksum                   uint32
	OriginalSignatureOffset            uint32
	OriginalSignatureSize              uint32
	ContainerFormat                    uint32
	ContainerCount                     uint32
	BootstrapperApplicationContainerSize uint32
	AttachedContainerSizes            [115]uint32
}

const stubFixedSize = 4 + 4 + 16 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 115*4

// findSection locates the `.wixburn` section by name.
func findSection(f *pe.File) (pe.Section, bool) {
	for _, s := range f.Sections {
		if s.Name == ".wixburn" {
			return s, true
		}
	}
	return pe.Section{}, false
}

// parseStub reads the stub from the host file's raw `.wixburn` section
// bytes.
func parseStub(data []byte) (*Stub, error) {
	if len(data) < stubFixedSize {
		return nil, model.NewErr(decoderName, model.KindStructural, errShort("wixburn stub"))
	}
	off := 0
	u32 := func() uint32 {
		v := binary.LittleEndian.Uint32(data[off:])
		off += 4
		return v
	}
	s := &Stub{}
	s.Magic = u32()
	if s.Magic != wixburnMagic {
		return nil, model.ErrNotThisFormat
	}
	s.Version = u32()
	guidBytes := data[off : off+16]
	off += 16
	g, err := uuid.FromBytes(reorderGUID(guidBytes))
	if err == nil {
		s.BundleGUID = g
	}
	s.StubSize = u32()
	s.OriginalChecksum = u32()
	s.OriginalSignatureOffset = u32()
	s.OriginalSignatureSize = u32()
	s.ContainerFormat = u32()
	s.ContainerCount = u32()
	s.BootstrapperApplicationContainerSize = u32()
	for i := range s.AttachedContainerSizes {
		s.AttachedContainerSizes[i] = u32()
	}
	return s, nil
}

// reorderGUID converts a little-endian-encoded Windows GUID byte
// layout into the big-endian byte order uuid.FromBytes expects.
func reorderGUID(b []byte) []byte {
	out := make([]byte, 16)
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	copy(out[8:], b[8:16])
	return out
}

type strError string

func (e strError) Error() string { return string(e) }

func errShort(what string) error { return strError("truncated " + what) }

package pe

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildMinimalPE constructs the smallest valid PE32 image with one
// section and a caller-supplied overlay, for exercising Parse and
// OverlayOffset without a real toolchain-built binary.
func buildMinimalPE(t *testing.T, overlay []byte) []byte {
	t.Helper()

	const (
		dosHeaderSize       = 0x40
		peHeaderOffset      = dosHeaderSize
		coffHeaderSize      = 20
		optionalHeaderSize  = 96 // PE32, no data directories beyond what we declare
		numberOfDataDirs    = 3
	)

	buf := make([]byte, 0, 512)
	dos := make([]byte, dosHeaderSize)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3c:], uint32(peHeaderOffset))
	buf = append(buf, dos...)

	buf = append(buf, 'P', 'E', 0, 0)

	coff := make([]byte, coffHeaderSize)
	binary.LittleEndian.PutUint16(coff[0:], uint16(MachineAMD64))
	binary.LittleEndian.PutUint16(coff[2:], 1) // NumberOfSections
	binary.LittleEndian.PutUint16(coff[16:], uint16(optionalHeaderSize+numberOfDataDirs*8)) // SizeOfOptionalHeader
	buf = append(buf, coff...)

	optStart := len(buf)
	opt := make([]byte, optionalHeaderSize+numberOfDataDirs*8)
	binary.LittleEndian.PutUint16(opt[0:], 0x10b) // PE32 magic
	binary.LittleEndian.PutUint32(opt[92:], numberOfDataDirs)
	buf = append(buf, opt...)
	_ = optStart

	section := make([]byte, 40)
	copy(section[0:8], []byte(".text\x00\x00\x00"))
	binary.LittleEndian.PutUint32(section[8:], 0x1000)  // VirtualSize
	binary.LittleEndian.PutUint32(section[12:], 0x1000) // VirtualAddress
	binary.LittleEndian.PutUint32(section[16:], 0x200)   // SizeOfRawData
	binary.LittleEndian.PutUint32(section[20:], 0x200)   // PointerToRawData
	buf = append(buf, section...)

	for int64(len(buf)) < 0x200 {
		buf = append(buf, 0)
	}
	buf = append(buf, make([]byte, 0x200)...) // the ".text" raw data
	buf = append(buf, overlay...)

	return buf
}

func TestParseMinimalPE(t *testing.T) {
	data := buildMinimalPE(t, []byte("NSIS_PAYLOAD"))
	f, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, MachineAMD64, f.Machine)
	require.False(t, f.Is64)
	require.Len(t, f.Sections, 1)
	require.Equal(t, ".text", f.Sections[0].Name)
}

func TestOverlayOffset(t *testing.T) {
	data := buildMinimalPE(t, []byte("NSIS_PAYLOAD"))
	f, err := Parse(data)
	require.NoError(t, err)

	require.Equal(t, int64(0x200+0x200), f.OverlayOffset())
	require.Equal(t, []byte("NSIS_PAYLOAD"), f.Overlay())
}

func TestParseRejectsBadDOSSignature(t *testing.T) {
	data := buildMinimalPE(t, nil)
	data[0] = 'X'
	_, err := Parse(data)
	require.Error(t, err)
}

func TestParseRejectsBadPESignature(t *testing.T) {
	data := buildMinimalPE(t, nil)
	data[0x40] = 'X'
	_, err := Parse(data)
	require.Error(t, err)
}

func TestMachineArchitectureMapping(t *testing.T) {
	require.Equal(t, "x64", MachineAMD64.Architecture().String())
	require.Equal(t, "x86", MachineI386.Architecture().String())
	require.Equal(t, "arm64", MachineARM64.Architecture().String())
	require.Equal(t, "unknown", MachineUnknown.Architecture().String())
}

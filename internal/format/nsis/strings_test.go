package nsis

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildNarrowStrings(entries ...string) ([]byte, []int64) {
	var buf bytes.Buffer
	buf.WriteByte(1) // first byte non-zero so detection picks ANSI, not UTF-16LE
	buf.WriteByte(0)
	offsets := make([]int64, len(entries))
	for i, s := range entries {
		offsets[i] = int64(buf.Len())
		buf.WriteString(s)
		buf.WriteByte(0)
	}
	return buf.Bytes(), offsets
}

func TestStringsBlockDecodeAtPlainANSI(t *testing.T) {
	data, offsets := buildNarrowStrings("hello", "world")
	s := newStringsBlock(data, nsisV3)
	require.False(t, s.wide)
	require.Equal(t, "hello", s.decodeAt(offsets[0], nil))
	require.Equal(t, "world", s.decodeAt(offsets[1], nil))
}

func TestStringsBlockDetectsWide(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0}) // leading zero u16 selects UTF-16LE
	for _, r := range "hi" {
		var u [2]byte
		binary.LittleEndian.PutUint16(u[:], uint16(r))
		buf.Write(u[:])
	}
	buf.Write([]byte{0, 0})
	s := newStringsBlock(buf.Bytes(), nsisV3)
	require.True(t, s.wide)
	require.Equal(t, "hi", s.decodeAt(2, nil))
}

type fakeHook struct{}

func (fakeHook) variableValue(index int) string  { return "VAR" }
func (fakeHook) shellFolderName(index int) string { return "SHELL" }
func (fakeHook) languageString(index int) string  { return "LANG" }

func TestStringsBlockEscapeCodesV3(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(1)
	buf.WriteByte(0)
	offset := int64(buf.Len())
	buf.WriteByte(3) // Variable escape, NSIS3
	buf.WriteByte(20)
	buf.WriteByte(0)
	s := newStringsBlock(buf.Bytes(), nsisV3)
	require.Equal(t, "VAR", s.decodeAt(offset, fakeHook{}))
}

func TestVersionFromDescriptionText(t *testing.T) {
	v, ok := versionFromDescriptionText("Nullsoft Install System v3.08")
	require.True(t, ok)
	require.Equal(t, nsisV3, v)

	v2, ok := versionFromDescriptionText("Nullsoft Install System v2.46")
	require.True(t, ok)
	require.Equal(t, nsisV2, v2)

	v225, ok := versionFromDescriptionText("Nullsoft Install System v2.25")
	require.True(t, ok)
	require.Equal(t, nsisV225, v225)

	_, ok = versionFromDescriptionText("not a match")
	require.False(t, ok)
}

func TestHeuristicVersionScanMajorityV2(t *testing.T) {
	data := []byte{0, 255, 1, 0, 255, 2, 0, 254, 3}
	require.Equal(t, nsisV2, heuristicVersionScan(data))
}

func TestFindManifestDescription(t *testing.T) {
	xml := []byte(`<assembly><description>Nullsoft Install System v3.06.1</description></assembly>`)
	require.Equal(t, "Nullsoft Install System v3.06.1", findManifestDescription(xml))
	require.Equal(t, "", findManifestDescription([]byte("<assembly/>")))
}

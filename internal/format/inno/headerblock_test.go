package inno

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/majewsky/wininstall-analyze/internal/binutil"
	"github.com/stretchr/testify/require"
)

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// buildCRCFramed wraps payload as a single CRC-framed chunk (payload is
// assumed shorter than binutil's 4096-byte chunk size in tests).
func buildCRCFramed(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	writeU32(&buf, crc32.ChecksumIEEE(payload))
	buf.Write(payload)
	return buf.Bytes()
}

func newCursorForTest(data []byte) *binutil.Cursor {
	return binutil.NewCursor(data)
}

func TestParseVersionMarkerPlain(t *testing.T) {
	data := append([]byte("Inno Setup Setup Data (5.5.9)"), 0)
	m, n, err := parseVersionMarker(data)
	require.NoError(t, err)
	require.Equal(t, "5.5.9", m.Version)
	require.False(t, m.Unicode)
	require.False(t, m.IsISX)
	require.Equal(t, len(data), n)
}

func TestParseVersionMarkerUnicodeAndISX(t *testing.T) {
	data := append([]byte("Inno Setup Setup Data (5.5.9) (u) with ISX (1.0)"), 0)
	m, _, err := parseVersionMarker(data)
	require.NoError(t, err)
	require.True(t, m.Unicode)
	require.True(t, m.IsISX)
}

func TestParseVersionMarker63PlusForcesUnicode(t *testing.T) {
	data := append([]byte("Inno Setup Setup Data (6.3.0)"), 0)
	m, _, err := parseVersionMarker(data)
	require.NoError(t, err)
	require.True(t, m.Is63Plus)
	require.True(t, m.Unicode)
}

func TestParseVersionMarkerRejectsWrongPrefix(t *testing.T) {
	_, _, err := parseVersionMarker(append([]byte("Something else (1.0)"), 0))
	require.Error(t, err)
}

func TestParseVersionMarkerRejectsMissingNUL(t *testing.T) {
	_, _, err := parseVersionMarker([]byte("Inno Setup Setup Data (1.0)"))
	require.Error(t, err)
}

func TestVersionAtLeast(t *testing.T) {
	require.True(t, versionAtLeast("6.3.0", 6, 3))
	require.True(t, versionAtLeast("6.4.1", 6, 3))
	require.True(t, versionAtLeast("7.0.0", 6, 3))
	require.False(t, versionAtLeast("6.2.9", 6, 3))
	require.False(t, versionAtLeast("5.9.9", 6, 3))
}

func TestVersionModernFraming(t *testing.T) {
	require.False(t, versionModernFraming("4.0.8"))
	require.True(t, versionModernFraming("4.0.9"))
	require.True(t, versionModernFraming("4.0.10"))
	require.True(t, versionModernFraming("4.1.6"))
	require.True(t, versionModernFraming("6.3.0"))
}

func TestDecompressSetupDataStoredLegacy(t *testing.T) {
	payload := []byte("hello inno header")
	framed := buildCRCFramed(t, payload)

	var buf bytes.Buffer
	writeU32(&buf, 0xFFFFFFFF)           // csize sentinel selects "stored"
	writeU32(&buf, uint32(len(payload))) // usize
	buf.Write(framed)

	c := newCursorForTest(buf.Bytes())
	out, err := decompressSetupData(c, false, nil)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

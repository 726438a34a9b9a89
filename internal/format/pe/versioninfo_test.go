package pe

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

// encodeUTF16CString returns the NUL-terminated UTF-16LE encoding of s.
func encodeUTF16CString(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2+2)
	for _, u := range units {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, u)
		out = append(out, b...)
	}
	return append(out, 0, 0)
}

// buildStringEntry builds one VS_VERSIONINFO-style {length, value_length,
// type=1 (text), key, padding, value, padding} node.
func buildStringEntry(key, value string) []byte {
	keyBytes := encodeUTF16CString(key)
	header := make([]byte, 6)
	header = append(header, keyBytes...)
	for len(header)%4 != 0 {
		header = append(header, 0)
	}
	valueUnits := utf16.Encode([]rune(value))
	valueBytes := make([]byte, 0, len(valueUnits)*2+2)
	for _, u := range valueUnits {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, u)
		valueBytes = append(valueBytes, b...)
	}
	valueBytes = append(valueBytes, 0, 0)
	body := append(header, valueBytes...)
	for len(body)%4 != 0 {
		body = append(body, 0)
	}
	binary.LittleEndian.PutUint16(body[0:], uint16(len(body)))
	binary.LittleEndian.PutUint16(body[2:], uint16(len(valueUnits)+1))
	binary.LittleEndian.PutUint16(body[4:], 1)
	return body
}

func buildContainer(key string, children []byte) []byte {
	keyBytes := encodeUTF16CString(key)
	header := make([]byte, 6)
	header = append(header, keyBytes...)
	for len(header)%4 != 0 {
		header = append(header, 0)
	}
	body := append(header, children...)
	binary.LittleEndian.PutUint16(body[0:], uint16(len(body)))
	binary.LittleEndian.PutUint16(body[2:], 0)
	binary.LittleEndian.PutUint16(body[4:], 0)
	return body
}

func TestParseVersionInfoStrings(t *testing.T) {
	entry := buildStringEntry("OriginalFilename", "setup.exe")
	table := buildContainer("040904B0", entry)
	stringFileInfo := buildContainer("StringFileInfo", table)
	root := buildContainer("VS_VERSION_INFO", stringFileInfo)

	out := ParseVersionInfoStrings(root)
	require.Equal(t, "setup.exe", out.OriginalFilename)
	require.True(t, out.HasInstallerKeyword())
}

func TestParseVersionInfoStringsMalformedIsNonFatal(t *testing.T) {
	out := ParseVersionInfoStrings([]byte{0x01})
	require.Equal(t, VersionInfoStrings{}, out)
}

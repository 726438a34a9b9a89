package burn

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/majewsky/wininstall-analyze/model"
)

func buildStubBytes(magic uint32) []byte {
	buf := make([]byte, stubFixedSize)
	binary.LittleEndian.PutUint32(buf[0:], magic)
	binary.LittleEndian.PutUint32(buf[4:], 2) // version
	return buf
}

func TestParseStubRejectsWrongMagic(t *testing.T) {
	_, err := parseStub(buildStubBytes(0xdeadbeef))
	require.ErrorIs(t, err, model.ErrNotThisFormat)
}

func TestParseStubAcceptsMagic(t *testing.T) {
	s, err := parseStub(buildStubBytes(wixburnMagic))
	require.NoError(t, err)
	require.Equal(t, uint32(wixburnMagic), s.Magic)
}

func TestParseStubTooShort(t *testing.T) {
	_, err := parseStub([]byte{0, 1, 2})
	require.Error(t, err)
}

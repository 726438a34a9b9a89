package inno

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoaderSignaturesTable(t *testing.T) {
	require.Len(t, loaderSignatures, 7)
	seen := map[string]bool{}
	for _, lv := range loaderSignatures {
		require.Len(t, lv.Signature, 12)
		require.NotEmpty(t, lv.Version)
		seen[string(lv.Signature[:])] = true
	}
	require.Len(t, seen, 7, "all seven signatures must be distinct")
}

func TestSigHelperPadsWithZero(t *testing.T) {
	s := sig(1, 2, 3)
	require.Equal(t, byte(1), s[0])
	require.Equal(t, byte(2), s[1])
	require.Equal(t, byte(3), s[2])
	require.Equal(t, byte(0), s[3])
}

func TestErrUnknownSignatureMessage(t *testing.T) {
	require.Equal(t, "unknown Inno Setup loader signature", errUnknownSignature{}.Error())
}

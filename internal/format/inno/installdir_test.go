package inno

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDefaultDirNameProgramFiles(t *testing.T) {
	require.Equal(t, `%ProgramFiles(x86)%\MyApp`, resolveDefaultDirName(`{pf}\MyApp`, false))
	require.Equal(t, `%ProgramFiles%\MyApp`, resolveDefaultDirName(`{pf}\MyApp`, true))
}

func TestResolveDefaultDirNameAutoPrefixCollapses(t *testing.T) {
	require.Equal(t, `%ProgramFiles(x86)%\MyApp`, resolveDefaultDirName(`{autopf}\MyApp`, false))
}

func TestResolveDefaultDirNameAppData(t *testing.T) {
	require.Equal(t, `%AppData%\MyApp`, resolveDefaultDirName(`{userappdata}\MyApp`, false))
}

func TestResolveDefaultDirNameUnknownTokenPassesThrough(t *testing.T) {
	require.Equal(t, `{src}\MyApp`, resolveDefaultDirName(`{src}\MyApp`, false))
}

func TestResolveDefaultDirNameNoBraceReturnsVerbatim(t *testing.T) {
	require.Equal(t, `C:\MyApp`, resolveDefaultDirName(`C:\MyApp`, false))
}

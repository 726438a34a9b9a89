package winpath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileNameArchAlias(t *testing.T) {
	require.Equal(t, AliasX64, FileNameArchAlias("app_x64.exe"))
	require.Equal(t, AliasX64, FileNameArchAlias("app.amd64.exe"))
	require.Equal(t, AliasX64, FileNameArchAlias("app-win64.exe"))
	require.Equal(t, AliasX64, FileNameArchAlias("app_x86_64.exe"))
	require.Equal(t, AliasArm64, FileNameArchAlias("app_arm64.exe"))
	require.Equal(t, AliasArm64, FileNameArchAlias("app.aarch64.exe"))
	require.Equal(t, AliasNone, FileNameArchAlias("app_x86.exe"))
	require.Equal(t, AliasNone, FileNameArchAlias("appx64extra.exe")) // not delimiter-bounded
}

func TestResolveProperty(t *testing.T) {
	root, ok := ResolveProperty("ProgramFilesFolder", false)
	require.True(t, ok)
	require.Equal(t, RootProgramFilesX86, root)

	root, ok = ResolveProperty("ProgramFilesFolder", true)
	require.True(t, ok)
	require.Equal(t, RootProgramFiles, root)

	_, ok = ResolveProperty("NotAKnownProperty", false)
	require.False(t, ok)
}

package msi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/majewsky/wininstall-analyze/model"
)

func TestArchitectureFromSummary(t *testing.T) {
	require.Equal(t, model.ArchX64, architectureFromSummary("x64;1033"))
	require.Equal(t, model.ArchX86, architectureFromSummary("Intel;1033"))
	require.Equal(t, model.ArchX86, architectureFromSummary(""))
	require.Equal(t, model.ArchArm64, architectureFromSummary("Arm64;1033"))
	require.Equal(t, model.ArchUnknown, architectureFromSummary("Sparc;1033"))
}

func TestScopeFromProperties(t *testing.T) {
	require.Equal(t, model.ScopeMachine, scopeFromProperties(map[string]string{"ALLUSERS": "1"}, nil))
	require.Equal(t, model.ScopeUnknown, scopeFromProperties(map[string]string{"ALLUSERS": "2"}, nil))
	require.Equal(t, model.ScopeUser, scopeFromProperties(map[string]string{"ALLUSERS": ""}, nil))
	require.Equal(t, model.ScopeUser, scopeFromProperties(map[string]string{}, nil))
	require.Equal(t, model.ScopeUnknown, scopeFromProperties(map[string]string{}, []byte("row;ALLUSERS;cond")))
}

func TestChromeVersionFromComments(t *testing.T) {
	v, ok := chromeVersionFromComments("120.0.6099.109 (Official Build) stable")
	require.True(t, ok)
	require.Equal(t, "120.0.6099.109", v)

	_, ok = chromeVersionFromComments("not a version string")
	require.False(t, ok)
}

func TestResolveDefaultDirName(t *testing.T) {
	require.Equal(t, "Long Name", resolveDefaultDirName("SHORTNM|Long Name"))
	require.Equal(t, "target", resolveDefaultDirName("target:source"))
	require.Equal(t, "Plain", resolveDefaultDirName("Plain"))
}

func TestResolveInstallDirByWellKnownProperty(t *testing.T) {
	rows := [][]string{
		{"TARGETDIR", "", "SourceDir"},
		{"ProgramFilesFolder", "TARGETDIR", "."},
		{"INSTALLDIR", "ProgramFilesFolder", "MyApp"},
	}
	nodes := buildDirectoryTree(rows)
	key, chain, ok := resolveInstallDir(nodes, map[string]string{"INSTALLDIR": "INSTALLDIR"})
	require.True(t, ok)
	require.Equal(t, "INSTALLDIR", key)
	require.Equal(t, []dirSegment{
		{ID: "ProgramFilesFolder", Name: "."},
		{ID: "INSTALLDIR", Name: "MyApp"},
	}, chain)
}

func TestRenderInstallPathSubstitutesWellKnownAncestor(t *testing.T) {
	chain := []dirSegment{
		{ID: "ProgramFilesFolder", Name: "."},
		{ID: "INSTALLDIR", Name: "MyApp"},
	}
	require.Equal(t, `%ProgramFiles(x86)%\MyApp`, renderInstallPath(chain, false))
	require.Equal(t, `%ProgramFiles%\MyApp`, renderInstallPath(chain, true))
}

func TestRenderInstallPathNoWellKnownAncestorFallsBackToLiteral(t *testing.T) {
	chain := []dirSegment{
		{ID: "MyCompanyDir", Name: "MyCompany"},
		{ID: "MyAppDir", Name: "MyApp"},
	}
	require.Equal(t, `MyCompany\MyApp`, renderInstallPath(chain, false))
}

func TestResolveInstallDirSingleChildDescent(t *testing.T) {
	rows := [][]string{
		{"TARGETDIR", "", "SourceDir"},
		{"ProgramFilesFolder", "TARGETDIR", "."},
		{"MyAppDir", "ProgramFilesFolder", "MyApp"},
	}
	nodes := buildDirectoryTree(rows)
	key, _, ok := resolveInstallDir(nodes, map[string]string{})
	require.True(t, ok)
	require.Equal(t, "MyAppDir", key)
}

func TestDecodeStreamNameRoundTripsPlainNames(t *testing.T) {
	require.Equal(t, "Property", decodeStreamName("Property"))
	require.Equal(t, "_StringPool", decodeStreamName("_StringPool"))
}

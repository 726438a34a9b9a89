package inno

import (
	"testing"

	"github.com/majewsky/wininstall-analyze/model"
	"github.com/stretchr/testify/require"
)

func TestBuildInstallerBasicFields(t *testing.T) {
	h := &headerFields{
		AppID:          "{MyAppID}",
		AppName:        "My App",
		AppPublisher:   "Acme Inc",
		AppVersion:     "2.0.0",
		DefaultDirName: `{pf}\My App`,
	}
	inst := buildInstaller(h, versionMarker{Version: "6.2.0"})
	require.Equal(t, model.TypeInno, inst.Type)
	require.Equal(t, "{MyAppID}_is1", inst.ProductCode)
	require.Equal(t, model.ArchX86, inst.Architecture)
	require.Equal(t, `%ProgramFiles(x86)%\My App`, inst.InstallationMetadata.DefaultInstallLocation)
	require.Len(t, inst.AppsAndFeaturesEntries, 1)
	require.Equal(t, "My App", inst.AppsAndFeaturesEntries[0].DisplayName)
	require.Equal(t, "Acme Inc", inst.AppsAndFeaturesEntries[0].Publisher)
}

func TestBuildInstallerX64ResolvesProgramFiles(t *testing.T) {
	h := &headerFields{
		AppID:                "{MyAppID}",
		DefaultDirName:       `{pf}\My App`,
		ArchitecturesAllowed: "x64compatible",
	}
	inst := buildInstaller(h, versionMarker{Version: "6.3.0"})
	require.Equal(t, model.ArchX64, inst.Architecture)
	require.Equal(t, `%ProgramFiles%\My App`, inst.InstallationMetadata.DefaultInstallLocation)
}

func TestBuildInstallerNoAppsAndFeaturesWhenEmpty(t *testing.T) {
	h := &headerFields{}
	inst := buildInstaller(h, versionMarker{})
	require.Empty(t, inst.AppsAndFeaturesEntries)
}

func TestVersionModernFramingBoundary(t *testing.T) {
	require.False(t, versionModernFraming("4.0.8"))
	require.True(t, versionModernFraming("4.0.9"))
}

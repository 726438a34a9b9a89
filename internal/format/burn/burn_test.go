package burn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/majewsky/wininstall-analyze/model"
)

func TestBuildInstallersSuppressesARPSystemComponentEntry(t *testing.T) {
	m := &manifest{
		Registration: registrationInfo{PerMachine: true, UpgradeCode: "{bundle-upgrade}"},
		Packages: []chainedPackage{
			{
				Kind:        packageMsi,
				ID:          "visible",
				ProductCode: "{visible}",
				DisplayName: "Visible Package",
			},
			{
				Kind:          packageMsi,
				ID:            "hidden",
				ProductCode:   "{hidden}",
				DisplayName:   "Hidden Package",
				MsiProperties: map[string]string{"ARPSYSTEMCOMPONENT": "1"},
			},
		},
	}

	installers := buildInstallers(nil, m, nil)
	require.Len(t, installers, 1)
	bundle := installers[0]

	var names []string
	for _, e := range bundle.AppsAndFeaturesEntries {
		names = append(names, e.DisplayName)
	}
	require.Equal(t, []string{"Visible Package"}, names)

	// The ARPSYSTEMCOMPONENT package's own entry is suppressed, but it
	// still contributes its ProductCode when nothing earlier in the
	// chain has set one yet... here the visible package already filled
	// it, so the bundle keeps the first package's code.
	require.Equal(t, "{visible}", bundle.ProductCode)
}

func TestBuildInstallersExcludesZeroInstallCondition(t *testing.T) {
	m := &manifest{
		Packages: []chainedPackage{
			{Kind: packageMsi, ID: "skipped", ProductCode: "{skipped}", InstallCondition: "0"},
		},
	}

	installers := buildInstallers(nil, m, nil)
	require.Len(t, installers, 1)
	require.Empty(t, installers[0].AppsAndFeaturesEntries)
	require.Empty(t, installers[0].ProductCode)
}

func TestBuildInstallersARPSystemComponentStillFillsProductCodeWhenFirst(t *testing.T) {
	m := &manifest{
		Packages: []chainedPackage{
			{
				Kind:          packageMsi,
				ID:            "hidden",
				ProductCode:   "{hidden}",
				MsiProperties: map[string]string{"ARPSYSTEMCOMPONENT": "1"},
			},
		},
	}

	installers := buildInstallers(nil, m, nil)
	require.Len(t, installers, 1)
	require.Empty(t, installers[0].AppsAndFeaturesEntries)
	require.Equal(t, "{hidden}", installers[0].ProductCode)
	require.Equal(t, model.ArchX86, installers[0].Architecture)
}

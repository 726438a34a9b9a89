package msix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherHashLength(t *testing.T) {
	hash := publisherHash("CN=Contoso Software, O=Contoso, L=Redmond, S=Washington, C=US")
	require.Len(t, hash, 13)
}

func TestClassifyAppxVsMsix(t *testing.T) {
	m := &parsedManifest{TargetDeviceFamilies: []targetDeviceFamily{
		{Name: "Windows.Desktop", MinVersion: "10.0.14393.0"},
	}}
	require.Equal(t, "appx", m.ClassifyAppxVsMsix("<Package/>").String())

	m2 := &parsedManifest{TargetDeviceFamilies: []targetDeviceFamily{
		{Name: "Windows.Desktop", MinVersion: "10.0.17763.0"},
	}}
	require.Equal(t, "msix", m2.ClassifyAppxVsMsix("<Package/>").String())
}

func TestParseVersion(t *testing.T) {
	v, ok := parseVersion("10.0.17763.0")
	require.True(t, ok)
	require.Equal(t, uint16(10), v.Major)
	require.Equal(t, uint16(17763), v.Patch)
}

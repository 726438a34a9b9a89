package burn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsARPSystemComponent(t *testing.T) {
	pkg := chainedPackage{MsiProperties: map[string]string{"ARPSYSTEMCOMPONENT": "1"}}
	require.True(t, pkg.isARPSystemComponent())

	pkg = chainedPackage{MsiProperties: map[string]string{"ARPSYSTEMCOMPONENT": "0"}}
	require.False(t, pkg.isARPSystemComponent())

	pkg = chainedPackage{}
	require.False(t, pkg.isARPSystemComponent())
}

func TestParseManifestReadsMsiProperties(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?>
<BurnManifest>
  <Registration Id="{bundle}" PerMachine="yes">
    <Arp DisplayName="Example" DisplayVersion="1.0.0" Publisher="Example Corp"/>
  </Registration>
  <Chain>
    <MsiPackage Id="pkg1" ProductCode="{aaa}" UpgradeCode="{bbb}" DisplayName="Visible" Version="1.0.0">
      <MsiProperty Id="SOMEPROP" Value="foo"/>
    </MsiPackage>
    <MsiPackage Id="pkg2" ProductCode="{ccc}" UpgradeCode="{ddd}" DisplayName="Hidden" Version="2.0.0">
      <MsiProperty Id="ARPSYSTEMCOMPONENT" Value="1"/>
    </MsiPackage>
  </Chain>
</BurnManifest>`)

	m, err := parseManifest(doc)
	require.NoError(t, err)
	require.Len(t, m.Packages, 2)

	require.False(t, m.Packages[0].isARPSystemComponent())
	require.Equal(t, "foo", m.Packages[0].MsiProperties["SOMEPROP"])

	require.True(t, m.Packages[1].isARPSystemComponent())
}

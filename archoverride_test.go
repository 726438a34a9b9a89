package analyze

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/majewsky/wininstall-analyze/model"
)

func TestApplyArchitectureOverride(t *testing.T) {
	inst := model.Installer{Architecture: model.ArchX86}
	applyArchitectureOverride(&inst, "MyApp_x64.exe")
	require.Equal(t, model.ArchX64, inst.Architecture)

	inst = model.Installer{Architecture: model.ArchX86}
	applyArchitectureOverride(&inst, "MyApp_arm64.exe")
	require.Equal(t, model.ArchArm64, inst.Architecture)

	inst = model.Installer{Architecture: model.ArchX86}
	applyArchitectureOverride(&inst, "MyApp.exe")
	require.Equal(t, model.ArchX86, inst.Architecture)

	// A decoder that already reported a real architecture is trusted
	// over the file name.
	inst = model.Installer{Architecture: model.ArchArm64}
	applyArchitectureOverride(&inst, "MyApp_x64.exe")
	require.Equal(t, model.ArchArm64, inst.Architecture)
}

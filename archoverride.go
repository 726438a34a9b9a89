package analyze

import (
	"github.com/majewsky/wininstall-analyze/internal/winpath"
	"github.com/majewsky/wininstall-analyze/model"
)

// applyArchitectureOverride implements spec.md §4.1's post-decode
// override: when a decoder reported ArchX86 but the original file name
// carries a delimiter-bounded 64-bit architecture alias, the dispatcher
// trusts the file name instead. "64-bit" is not one architecture:
// arm64/aarch64 aliases override to ArchArm64, everything else
// (amd64/x64/win64/64bit/x86_64) overrides to ArchX64.
func applyArchitectureOverride(inst *model.Installer, fileName string) {
	if inst.Architecture != model.ArchX86 {
		return
	}
	switch winpath.FileNameArchAlias(fileName) {
	case winpath.AliasArm64:
		inst.Architecture = model.ArchArm64
	case winpath.AliasX64:
		inst.Architecture = model.ArchX64
	}
}

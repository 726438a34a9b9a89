package nsis

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/majewsky/wininstall-analyze/internal/format/pe"
	"github.com/majewsky/wininstall-analyze/model"
)

// Decode recognizes and dissects an NSIS installer's overlay on a
// parsed PE host (spec.md §4.4). It returns model.ErrNotThisFormat when
// the overlay does not begin with a recognized FirstHeader, so the
// root dispatcher can fall through to Inno Setup detection.
func Decode(f *pe.File, limits *model.Limits) (model.Installer, error) {
	overlay := f.Overlay()
	fh, headerLen, err := parseFirstHeader(overlay)
	if err != nil {
		return model.Installer{}, err
	}

	decompressed, dataOffset, solid, err := decompressHeader(overlay[headerLen:], fh, f.Is64, limits)
	if err != nil {
		return model.Installer{}, err
	}
	hdr, err := parseHeader(decompressed, f.Is64)
	if err != nil {
		return model.Installer{}, err
	}

	var manifestDescription string
	if manifest, err := f.Manifest(maxResourceDepth(limits)); err == nil && manifest != nil {
		manifestDescription = findManifestDescription(manifest)
	}

	version := detectVersion(manifestDescription, "", hdr.blocks[blockStrings])
	strs := newStringsBlock(hdr.blocks[blockStrings], version)
	brandingText := findBrandingText(hdr.blocks[blockLangTables], strs)
	if brandingText != "" {
		if v, ok := versionFromDescriptionText(brandingText); ok {
			version = v
			strs = newStringsBlock(hdr.blocks[blockStrings], version)
		}
	}

	entries := parseEntries(hdr.blocks[blockEntries])
	vm := newVMState(entries, strs, version)
	vm.run(0, -1, nil)

	installer := model.Installer{
		Architecture: f.Machine.Architecture(),
		Type:         model.TypeNullsoft,
	}
	installer.InstallationMetadata.DefaultInstallLocation = vm.vars.Get(varInstDir)

	var productCode, displayName, publisher, displayVersion string
	for _, rv := range vm.registry {
		if !strings.Contains(strings.ToUpper(rv.Key), `UNINSTALL\`) {
			continue
		}
		if idx := strings.LastIndex(rv.Key, `\`); idx >= 0 {
			candidate := rv.Key[idx+1:]
			if productCode == "" {
				productCode = candidate
			}
		}
		switch strings.ToUpper(rv.ValueName) {
		case "DISPLAYNAME":
			displayName = rv.Value
		case "PUBLISHER":
			publisher = rv.Value
		case "DISPLAYVERSION":
			displayVersion = rv.Value
		}
	}
	installer.ProductCode = productCode
	if displayName != "" || publisher != "" || displayVersion != "" {
		installer.AppsAndFeaturesEntries = append(installer.AppsAndFeaturesEntries, model.AppsAndFeaturesEntry{
			DisplayName:    displayName,
			Publisher:      publisher,
			DisplayVersion: displayVersion,
		})
	}

	applyArchitectureHeuristics(&installer, vm, f, overlay, headerLen, dataOffset, solid, limits)

	return installer, nil
}

func maxResourceDepth(limits *model.Limits) int {
	if limits != nil && limits.MaxRecursionDepth > 0 {
		return limits.MaxRecursionDepth
	}
	return 16
}

// applyArchitectureHeuristics implements spec.md §4.4's "Post-processing
// for architecture": app-64/app-32 directory names, then the $INSTDIR
// 64-bit Program Files placeholder, then a Levenshtein-nearest .exe
// re-parse as a last resort (gated by limits.LastResortArchitecture).
//
// An NSIS stub is always a 32-bit i386 PE, so installer.Architecture
// enters this function as ArchX86 (from the host PE's own machine
// field), never ArchUnknown — that value means "undetermined" here,
// not "x86 really is the install target". The heuristics below run
// against that undetermined state and installer.Architecture only
// falls back to ArchX86 once every heuristic has declined to override
// it, matching komac's `Option::from(architecture).filter(|a| *a !=
// Architecture::X86)` ... `.unwrap_or(X86)` shape.
func applyArchitectureHeuristics(installer *model.Installer, vm *vmState, f *pe.File, overlay []byte, headerLen int, dataOffset int64, solid bool, limits *model.Limits) {
	if _, ok := vm.files.FindByName("app-64"); ok {
		installer.Architecture = model.ArchX64
		return
	}
	if _, ok := vm.files.FindByName("app-32"); ok {
		installer.Architecture = model.ArchX86
		return
	}
	instDir := strings.ToUpper(vm.vars.Get(varInstDir))
	if strings.Contains(instDir, "PROGRAM FILES") && !strings.Contains(instDir, "PROGRAM FILES (X86)") {
		installer.Architecture = model.ArchX64
		return
	}

	if limits != nil && limits.LastResortArchitecture {
		if arch, ok := lastResortArchitecture(installer, vm, overlay, headerLen, dataOffset); ok {
			installer.Architecture = arch
			return
		}
	}

	installer.Architecture = model.ArchX86
}

// lastResortArchitecture implements the Levenshtein-nearest-.exe
// re-parse: find the file whose name is closest to the resolved
// display name, seek back into the outer overlay at its recorded
// extraction position, and re-parse that embedded PE's own machine
// field.
func lastResortArchitecture(installer *model.Installer, vm *vmState, overlay []byte, headerLen int, dataOffset int64) (model.Architecture, bool) {
	appName := installer.AppsAndFeaturesEntries
	var wantName string
	if len(appName) > 0 {
		wantName = appName[0].DisplayName
	}
	if wantName == "" {
		return 0, false
	}
	files := vm.files.Files()
	bestDist := -1
	var bestPosition int64 = -1
	for path, node := range files {
		if !strings.HasSuffix(strings.ToLower(path), ".exe") {
			continue
		}
		d := levenshtein.ComputeDistance(strings.ToLower(path), strings.ToLower(wantName))
		if bestDist < 0 || d < bestDist {
			bestDist = d
			bestPosition = node.Position
		}
	}
	if bestPosition < 0 {
		return 0, false
	}
	seekOffset := bestPosition + int64(headerLen) + dataOffset + 4
	if seekOffset < 0 || seekOffset >= int64(len(overlay)) {
		return 0, false
	}
	embedded, err := pe.Parse(overlay[seekOffset:])
	if err != nil {
		return 0, false
	}
	return embedded.Machine.Architecture(), true
}

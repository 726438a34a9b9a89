package burn

import (
	"bytes"

	"github.com/majewsky/wininstall-analyze/internal/format/pe"
	"github.com/majewsky/wininstall-analyze/model"
)

// Decode inspects f (already PE-parsed) for a `.wixburn` section; if
// absent, it returns model.ErrNotThisFormat so the dispatcher's
// Burn/Inno/NSIS chain (spec.md §4.1) can continue to the next
// decoder. If present, it parses the stub, locates the UX CAB
// container in the overlay, extracts the Burn XML manifest, and
// builds one Installer per top-level manifest (spec.md §3: "Package is
// a tagged variant").
func Decode(f *pe.File, data []byte, limits *model.Limits) ([]model.Installer, error) {
	section, ok := findSection(f)
	if !ok {
		return nil, model.ErrNotThisFormat
	}
	sectionData, err := sliceSection(data, section)
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindBounds, int64(section.PointerToRawData), ".wixburn", err)
	}
	stub, err := parseStub(sectionData)
	if err != nil {
		if err == model.ErrNotThisFormat {
			return nil, err
		}
		return nil, model.NewErrAt(decoderName, model.KindStructural, int64(section.PointerToRawData), "wixburn-stub", err)
	}

	overlay := f.Overlay()
	cabOffset := bytes.Index(overlay, []byte("MSCF"))
	if cabOffset < 0 {
		return nil, model.NewErr(decoderName, model.KindStructural, errShort("UX CAB container"))
	}
	cab, err := parseCabinet(overlay[cabOffset:])
	if err != nil {
		return nil, err
	}

	manifestBytes, err := findManifestXML(cab)
	if err != nil {
		return nil, err
	}
	m, err := parseManifest(manifestBytes)
	if err != nil {
		return nil, err
	}

	return buildInstallers(stub, m, limits), nil
}

func sliceSection(data []byte, s pe.Section) ([]byte, error) {
	start := int64(s.PointerToRawData)
	size := int64(s.SizeOfRawData)
	if start < 0 || size < 0 || start+size > int64(len(data)) {
		return nil, errShort(".wixburn raw data")
	}
	return data[start : start+size], nil
}

// findManifestXML scans the cabinet for the first stored file whose
// decompressed content looks like an XML document, since the UX
// container's manifest entry name is an internal Burn implementation
// detail not stable across WiX versions.
func findManifestXML(cab *cabinet) ([]byte, error) {
	for _, name := range cab.Names() {
		content, ok, err := cab.File(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		trimmed := bytes.TrimSpace(content)
		if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<BurnManifest")) {
			return content, nil
		}
	}
	return nil, model.NewErr(decoderName, model.KindStructural, errShort("Burn manifest not found in UX container"))
}

// buildInstallers maps the parsed manifest onto a single bundle-level
// Installer. Its AppsAndFeaturesEntries hold the entry built from
// <Registration> plus one per chained MSI package that is neither
// excluded by InstallCondition nor marked ARPSYSTEMCOMPONENT; chained
// EXE packages contribute no entry.
func buildInstallers(stub *Stub, m *manifest, limits *model.Limits) []model.Installer {
	arch := model.ArchX86
	if stub != nil && m.Win64 {
		arch = model.ArchX64
	}

	scope := model.ScopeUser
	if m.Registration.PerMachine {
		scope = model.ScopeMachine
	}

	bundle := model.Installer{
		Architecture: arch,
		Type:         model.TypeBurn,
		Scope:        scope,
		UpgradeCode:  m.Registration.UpgradeCode,
	}
	if m.Registration.DisplayName != "" || m.Registration.DisplayVersion != "" || m.Registration.Publisher != "" {
		bundle.AppsAndFeaturesEntries = append(bundle.AppsAndFeaturesEntries, model.AppsAndFeaturesEntry{
			DisplayName:    m.Registration.DisplayName,
			DisplayVersion: m.Registration.DisplayVersion,
			Publisher:      m.Registration.Publisher,
			UpgradeCode:    m.Registration.UpgradeCode,
			InstallerType:  model.TypeBurn,
		})
	}

	for _, pkg := range m.Packages {
		if pkg.Kind != packageMsi {
			continue
		}
		// InstallCondition exclusion: we do not implement Burn's full
		// condition-expression grammar (spec.md §7's InvalidInstallCondition
		// defaults unknown operators to "include"); a literal "0" is the
		// one unambiguous falsy condition worth special-casing, everything
		// else defaults to included and is logged as a warning.
		if pkg.InstallCondition == "0" {
			if limits != nil && limits.Logger != nil {
				limits.Logger.Debugf("burn: package %s excluded by InstallCondition", pkg.ID)
			}
			continue
		}
		if pkg.InstallCondition != "" && limits != nil && limits.Logger != nil {
			limits.Logger.Warnf("burn: package %s InstallCondition %q not evaluated, included", pkg.ID, pkg.InstallCondition)
		}
		// ARPSYSTEMCOMPONENT suppression (spec.md §8 scenario 5): the
		// package still installs and still contributes its ProductCode to
		// the bundle below, but it does not get its own Control Panel
		// entry.
		if !pkg.isARPSystemComponent() {
			bundle.AppsAndFeaturesEntries = append(bundle.AppsAndFeaturesEntries, model.AppsAndFeaturesEntry{
				DisplayName:    pkg.DisplayName,
				DisplayVersion: pkg.Version,
				ProductCode:    pkg.ProductCode,
				UpgradeCode:    pkg.UpgradeCode,
				InstallerType:  model.TypeMsi,
			})
		}
		if bundle.ProductCode == "" {
			bundle.ProductCode = pkg.ProductCode
		}
	}
	if bundle.ProductCode == "" && stub != nil && stub.BundleGUID.String() != "00000000-0000-0000-0000-000000000000" {
		bundle.ProductCode = stub.BundleGUID.String()
	}

	return []model.Installer{bundle}
}

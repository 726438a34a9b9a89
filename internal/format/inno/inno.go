package inno

import (
	"strings"

	"github.com/majewsky/wininstall-analyze/internal/binutil"
	"github.com/majewsky/wininstall-analyze/internal/format/pe"
	"github.com/majewsky/wininstall-analyze/model"
)

// parseFields runs the full RCDATA(11111) -> version marker -> CRC
// block decompression -> header field pipeline once, shared by Decode
// and DecodeAll.
func parseFields(f *pe.File, limits *model.Limits) (*headerFields, versionMarker, error) {
	data, _, err := findLoaderSignature(f, maxDepth(limits))
	if err != nil {
		return nil, versionMarker{}, err
	}

	marker, headerStart, err := parseVersionMarker(data[12:])
	if err != nil {
		return nil, versionMarker{}, err
	}

	c := binutil.NewCursor(data[12+headerStart:])
	decompressed, err := decompressSetupData(c, versionModernFraming(marker.Version), limits)
	if err != nil {
		return nil, versionMarker{}, err
	}

	fields, err := readHeaderFields(decompressed)
	if err != nil {
		return nil, versionMarker{}, err
	}
	return fields, marker, nil
}

// Decode recognizes and dissects an Inno Setup installer's
// RCDATA(11111) header (spec.md §4.5) into a single Installer. It
// returns model.ErrNotThisFormat when that resource is absent, so the
// root dispatcher can fall through to NSIS detection; an unrecognized
// but present 12-byte signature is reported as a KindClassification
// error instead, since that case is not "not this
// format" but "this format, unknown edition".
func Decode(f *pe.File, limits *model.Limits) (model.Installer, error) {
	fields, marker, err := parseFields(f, limits)
	if err != nil {
		return model.Installer{}, err
	}
	return buildInstaller(fields, marker), nil
}

// DecodeAll is Decode's counterpart for spec.md §4.5's "Scope
// override": when privileges_required_overrides_allowed is non-empty,
// the caller gets two Installer records (Machine and User) instead of
// one, each carrying the /ALLUSERS or /CURRENTUSER switch when the
// override list includes "commandline".
func DecodeAll(f *pe.File, limits *model.Limits) ([]model.Installer, error) {
	fields, marker, err := parseFields(f, limits)
	if err != nil {
		return nil, err
	}
	base := buildInstaller(fields, marker)

	overrides := strings.ToLower(fields.PrivilegesRequiredOverridesAllowed)
	if overrides == "" {
		return []model.Installer{base}, nil
	}
	withCommandLine := strings.Contains(overrides, "commandline")

	machine := base
	machine.Scope = model.ScopeMachine
	user := base
	user.Scope = model.ScopeUser
	if withCommandLine {
		machine.CustomSwitches = append(append([]model.Switch{}, base.CustomSwitches...), model.Switch{Name: "/ALLUSERS"})
		user.CustomSwitches = append(append([]model.Switch{}, base.CustomSwitches...), model.Switch{Name: "/CURRENTUSER"})
	}
	return []model.Installer{machine, user}, nil
}

// versionModernFraming reports whether version uses the modern
// (>=4.0.9) CRC block framing.
func versionModernFraming(version string) bool {
	if versionAtLeast(version, 4, 1) {
		return true
	}
	parts := strings.Split(version, ".")
	return len(parts) >= 3 && parts[0] == "4" && parts[1] == "0" && atoiSafe(parts[2]) >= 9
}

func maxDepth(limits *model.Limits) int {
	if limits != nil && limits.MaxRecursionDepth > 0 {
		return limits.MaxRecursionDepth
	}
	return 16
}

func buildInstaller(h *headerFields, marker versionMarker) model.Installer {
	inst := model.Installer{
		Type:        model.TypeInno,
		ProductCode: h.productCode(),
	}

	positive, negated := evalArchExpression(h.ArchitecturesAllowed)
	inst.Architecture = architectureFromExpr(positive)
	inst.UnsupportedOSArchitectures = unsupportedFromNegated(negated)

	if h.DefaultDirName != "" {
		is64 := inst.Architecture == model.ArchX64 || inst.Architecture == model.ArchArm64
		inst.InstallationMetadata.DefaultInstallLocation = resolveDefaultDirName(h.DefaultDirName, is64)
	}

	entry := model.AppsAndFeaturesEntry{
		DisplayName:    h.AppName,
		Publisher:      h.AppPublisher,
		DisplayVersion: h.AppVersion,
		ProductCode:    inst.ProductCode,
		InstallerType:  model.TypeInno,
	}
	if entry.HasAnyField() {
		inst.AppsAndFeaturesEntries = []model.AppsAndFeaturesEntry{entry}
	}
	return inst
}

func unsupportedFromNegated(negated archFlags) model.UnsupportedArchitectures {
	var out model.UnsupportedArchitectures
	if negated&archFlagX86 != 0 {
		out |= model.UnsupportedX86
	}
	if negated&archFlagX64 != 0 {
		out |= model.UnsupportedX64
	}
	if negated&archFlagArm32Compatible != 0 {
		out |= model.UnsupportedArm
	}
	if negated&archFlagArm64 != 0 {
		out |= model.UnsupportedArm64
	}
	return out
}

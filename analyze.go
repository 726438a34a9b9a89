// Package analyze dissects a Windows installer artifact — a PE
// wrapping Burn, Inno Setup, or NSIS; an MSI compound document; an
// MSIX/APPX package or bundle; or a zip archive nesting one of the
// above — into a normalized Installer record (spec.md §3).
//
// The core has no persisted state and no config file (spec.md §6):
// every tunable is a functional Option passed to Analyze. Logging
// routes through logrus, matching the teacher's own diagnostics style
// (src/holo-build/common/reproducibility.go), and every recoverable
// decode failure is logged rather than propagated, per spec.md §7's
// "Interpretation-class errors are logged, not fatal".
package analyze

import (
	"path"
	"strings"

	"github.com/majewsky/wininstall-analyze/internal/format/burn"
	"github.com/majewsky/wininstall-analyze/internal/format/inno"
	"github.com/majewsky/wininstall-analyze/internal/format/msi"
	"github.com/majewsky/wininstall-analyze/internal/format/msix"
	"github.com/majewsky/wininstall-analyze/internal/format/nsis"
	"github.com/majewsky/wininstall-analyze/internal/format/pe"
	"github.com/majewsky/wininstall-analyze/internal/format/ziparchive"
	"github.com/majewsky/wininstall-analyze/model"
)

// Installer is a re-export of model.Installer for callers who only
// need the root package's import path.
type Installer = model.Installer

// Analyze classifies data by fileName's extension (spec.md §4.1's
// closed set: msi, msix, appx, msixbundle, appxbundle, zip, exe) and
// dispatches to the matching decoder, applying the post-decode
// architecture override before returning.
func Analyze(data []byte, fileName string, opts ...Option) ([]model.Installer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	limits := o.limits()

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	var (
		installers []model.Installer
		err        error
	)
	switch ext {
	case "msi":
		var inst model.Installer
		inst, err = msi.Decode(data, limits)
		if err == nil {
			installers = []model.Installer{inst}
		}
	case "msix", "appx", "msixbundle", "appxbundle":
		installers, err = msix.Decode(data, limits)
	case "zip":
		installers, err = ziparchive.Decode(data, o.analyzeFunc(), o.selectorFunc())
	case "exe":
		installers, err = analyzeExe(data, limits)
	default:
		return nil, &model.ErrUnsupportedExtension{Extension: ext}
	}
	if err != nil {
		return nil, err
	}

	for i := range installers {
		applyArchitectureOverride(&installers[i], fileName)
	}
	return installers, nil
}

// analyzeExe parses the PE container once and chains the three
// PE-wrapped decoders (Burn, Inno, NSIS) in spec.md §4.1's declared
// order, each signaling model.ErrNotThisFormat when it declines,
// falling back to a generic Exe/Portable classification driven by
// VS_VERSIONINFO when none recognize the payload.
func analyzeExe(data []byte, limits *model.Limits) ([]model.Installer, error) {
	f, err := pe.Parse(data)
	if err != nil {
		return nil, err
	}

	if installers, err := burn.Decode(f, data, limits); err == nil {
		return installers, nil
	} else if err != model.ErrNotThisFormat {
		return nil, err
	}

	if installers, err := inno.DecodeAll(f, limits); err == nil {
		return installers, nil
	} else if err != model.ErrNotThisFormat {
		return nil, err
	}

	if inst, err := nsis.Decode(f, limits); err == nil {
		return []model.Installer{inst}, nil
	} else if err != model.ErrNotThisFormat {
		return nil, err
	}

	return []model.Installer{genericPEInstaller(f)}, nil
}

// genericPEInstaller builds the fallback record for a PE that none of
// the three wrapped-installer decoders recognized: spec.md §4.1 calls
// for classifying it Exe when VS_VERSIONINFO carries an installer
// keyword, Portable otherwise.
func genericPEInstaller(f *pe.File) model.Installer {
	typ := model.TypePortable
	if raw, err := f.VersionInfo(16); err == nil && raw != nil {
		strs := pe.ParseVersionInfoStrings(raw)
		if strs.HasInstallerKeyword() {
			typ = model.TypeExe
		}
	}
	return model.Installer{
		Architecture: f.Machine.Architecture(),
		Type:         typ,
	}
}

// analyzeFunc adapts Analyze itself into the callback ziparchive.Decode
// needs to recurse into a nested installer without importing the root
// package.
func (o *Options) analyzeFunc() ziparchive.AnalyzeFunc {
	return func(data []byte, fileName string) ([]model.Installer, error) {
		return Analyze(data, fileName, optionsAsOpts(o)...)
	}
}

func (o *Options) selectorFunc() ziparchive.EntrySelector {
	if o.ZipEntrySelector == nil {
		return nil
	}
	return ziparchive.EntrySelector(o.ZipEntrySelector)
}

// optionsAsOpts re-wraps an already-resolved Options as a single
// Option, so a recursive Analyze call (from the zip callback) inherits
// the caller's configured limits without re-parsing functional options.
func optionsAsOpts(o *Options) []Option {
	return []Option{func(dst *Options) { *dst = *o }}
}

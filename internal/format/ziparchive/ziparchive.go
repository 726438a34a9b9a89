// Package ziparchive implements spec.md §4.7's nested-installer zip
// handling: walk the central directory, auto-select an unambiguous
// nested installer by extension class, or defer to a caller-supplied
// selector.
//
// Grounded on the teacher's src/dump-package/impl/archive.go archive
// member walk, generalized from ar members to zip central-directory
// entries, with the single-ambiguous-candidate auto-select rule being
// this spec's own addition (no teacher analog).
package ziparchive

import (
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/STARRY-S/zip"

	"github.com/majewsky/wininstall-analyze/model"
)

const decoderName = "zip"

var nestedExtensions = map[string]model.InstallerType{
	"msi":         model.TypeMsi,
	"msix":        model.TypeMsix,
	"appx":        model.TypeAppx,
	"exe":         model.TypeExe,
	"msixbundle":  model.TypeMsix,
	"appxbundle":  model.TypeAppx,
}

// AnalyzeFunc is the recursive callback into the dispatcher, used so
// this package never imports the root package that imports it.
type AnalyzeFunc func(data []byte, fileName string) ([]model.Installer, error)

// EntrySelector mirrors the root package's ZipEntrySelector without
// importing it.
type EntrySelector func(candidates []string) ([]string, error)

// Decode walks data's central directory, classifies every entry whose
// extension is a known installer family and whose path does not
// traverse a __MACOSX folder, then either auto-selects a single
// unambiguous candidate or defers to selector.
func Decode(data []byte, analyze AnalyzeFunc, selector EntrySelector) ([]model.Installer, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, model.NewErr(decoderName, model.KindStructural, err)
	}

	byClass := map[model.InstallerType][]string{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.Contains(f.Name, "__MACOSX") {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(f.Name), "."))
		typ, ok := nestedExtensions[ext]
		if !ok {
			continue
		}
		byClass[typ] = append(byClass[typ], f.Name)
	}

	var chosen []string
	singleClasses := 0
	var soleCandidate string
	for _, names := range byClass {
		if len(names) == 1 {
			singleClasses++
			soleCandidate = names[0]
		}
	}
	if singleClasses == 1 {
		chosen = []string{soleCandidate}
	} else {
		var candidates []string
		for _, names := range byClass {
			candidates = append(candidates, names...)
		}
		if selector == nil {
			return nil, model.NewErr(decoderName, model.KindClassification, errAmbiguous("no zip entry selector configured for an ambiguous archive"))
		}
		selected, err := selector(candidates)
		if err != nil {
			return nil, model.NewErr(decoderName, model.KindClassification, err)
		}
		chosen = selected
	}

	var results []model.Installer
	for _, name := range chosen {
		f := findEntry(zr, name)
		if f == nil {
			return nil, model.NewErr(decoderName, model.KindBounds, errAmbiguous("selected entry "+name+" not found in central directory"))
		}
		childData, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		childInstallers, err := analyze(childData, name)
		if err != nil {
			return nil, err
		}
		for _, child := range childInstallers {
			results = append(results, model.Installer{
				Architecture:         child.Architecture,
				Type:                 model.TypeZip,
				NestedInstallerType:  child.Type,
				NestedInstallerFiles: []string{name},
				Scope:                child.Scope,
				Locale:               child.Locale,
				MinimumOSVersion:     child.MinimumOSVersion,
				Platform:             child.Platform,
				ProductCode:          child.ProductCode,
				UpgradeCode:          child.UpgradeCode,
				AppsAndFeaturesEntries: child.AppsAndFeaturesEntries,
				InstallationMetadata:   child.InstallationMetadata,
			})
		}
	}
	return results, nil
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, model.NewErr(decoderName, model.KindIO, err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, model.NewErr(decoderName, model.KindIO, err)
	}
	return buf.Bytes(), nil
}

type strError string

func (e strError) Error() string { return string(e) }

func errAmbiguous(what string) error { return strError(what) }

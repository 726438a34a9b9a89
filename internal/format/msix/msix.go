package msix

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/STARRY-S/zip"

	"github.com/majewsky/wininstall-analyze/model"
)

const (
	manifestEntryName       = "AppxManifest.xml"
	bundleManifestEntryName = "AppxMetadata/AppxBundleManifest.xml"
	signatureEntryName      = "AppxSignature.p7x"
)

// Decode opens data as a zip archive and dispatches to the single- or
// bundle-package path depending on which manifest entry is present.
func Decode(data []byte, limits *model.Limits) ([]model.Installer, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, model.NewErr(decoderName, model.KindStructural, err)
	}

	entries := map[string]*zip.File{}
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	signature := ""
	if sigFile, ok := entries[signatureEntryName]; ok {
		sum, err := sha256OfEntry(sigFile)
		if err != nil {
			return nil, err
		}
		signature = sum
	}

	if _, ok := entries[bundleManifestEntryName]; ok {
		return decodeBundle(entries, signature, limits)
	}
	if manifestFile, ok := entries[manifestEntryName]; ok {
		inst, err := decodeSinglePackage(manifestFile, signature)
		if err != nil {
			return nil, err
		}
		return []model.Installer{inst}, nil
	}
	return nil, model.NewErr(decoderName, model.KindStructural, errShort("AppxManifest.xml not found"))
}

type strError string

func (e strError) Error() string { return string(e) }

func errShort(what string) error { return strError(what) }

func sha256OfEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", model.NewErr(decoderName, model.KindIO, err)
	}
	defer rc.Close()
	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", model.NewErr(decoderName, model.KindIO, err)
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}

func decodeSinglePackage(manifestFile *zip.File, signature string) (model.Installer, error) {
	rc, err := manifestFile.Open()
	if err != nil {
		return model.Installer{}, model.NewErr(decoderName, model.KindIO, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return model.Installer{}, model.NewErr(decoderName, model.KindIO, err)
	}

	m, err := parseManifest(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return model.Installer{}, err
	}

	inst := model.Installer{
		Architecture:      architectureOf(m.ProcessorArchitecture),
		Type:              m.ClassifyAppxVsMsix(buf.String()),
		SignatureSHA256:   signature,
		PackageFamilyName: model.PackageFamilyName{Name: m.Name, PublisherHash: publisherHash(m.Publisher)},
		Capabilities:      m.Capabilities,
		FileExtensions:    m.FileExtensions,
	}
	for _, tdf := range m.TargetDeviceFamilies {
		inst.Platform |= platformOf(tdf.Name)
		if v, ok := parseVersion(tdf.MinVersion); ok {
			if inst.MinimumOSVersion == (model.OSVersion{}) || v.Less(inst.MinimumOSVersion) {
				inst.MinimumOSVersion = v
			}
		}
	}
	entry := model.AppsAndFeaturesEntry{
		DisplayName:   m.DisplayName,
		Publisher:     m.PublisherDisplayName,
		DisplayVersion: m.Version,
		InstallerType: inst.Type,
	}
	if entry.HasAnyField() {
		inst.AppsAndFeaturesEntries = append(inst.AppsAndFeaturesEntries, entry)
	}
	return inst, nil
}

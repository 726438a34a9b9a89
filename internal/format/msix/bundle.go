package msix

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/STARRY-S/zip"

	"github.com/majewsky/wininstall-analyze/model"
)

// bundlePackageRef is one <Package Type="application" FileName=…>
// entry of AppxBundleManifest.xml.
type bundlePackageRef struct {
	Type     string
	FileName string
}

func parseBundleManifest(r io.Reader) ([]bundlePackageRef, error) {
	dec := xml.NewDecoder(r)
	var refs []bundlePackageRef
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, model.NewErr(decoderName, model.KindEncoding, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || localName(start.Name.Local) != "Package" {
			continue
		}
		ref := bundlePackageRef{}
		for _, a := range start.Attr {
			switch a.Name.Local {
			case "Type":
				ref.Type = a.Value
			case "FileName":
				ref.FileName = a.Value
			}
		}
		if ref.Type == "application" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// decodeBundle implements spec.md §4.6's bundle path: enumerate
// application packages, copy each embedded package's bytes out,
// recurse into Decode, then union the results with the bundle's
// signature set on each. The package family name set on every result
// is the first decoded constituent's; the bundle manifest's own
// Identity is not read.
func decodeBundle(entries map[string]*zip.File, signature string, limits *model.Limits) ([]model.Installer, error) {
	bundleManifestFile := entries[bundleManifestEntryName]
	rc, err := bundleManifestFile.Open()
	if err != nil {
		return nil, model.NewErr(decoderName, model.KindIO, err)
	}
	defer rc.Close()

	refs, err := parseBundleManifest(rc)
	if err != nil {
		return nil, err
	}

	var bundlePFN model.PackageFamilyName
	var results []model.Installer
	for _, ref := range refs {
		entry, ok := entries[ref.FileName]
		if !ok {
			continue
		}
		entryRC, err := entry.Open()
		if err != nil {
			return nil, model.NewErr(decoderName, model.KindIO, err)
		}
		var buf bytes.Buffer
		_, copyErr := io.Copy(&buf, entryRC)
		entryRC.Close()
		if copyErr != nil {
			return nil, model.NewErr(decoderName, model.KindIO, copyErr)
		}

		childInstallers, err := Decode(buf.Bytes(), limits)
		if err != nil {
			if limits != nil && limits.Logger != nil {
				limits.Logger.WithError(err).Warnf("msix: skipping unreadable bundle constituent %s", ref.FileName)
			}
			continue
		}
		for _, inst := range childInstallers {
			inst.SignatureSHA256 = signature
			if bundlePFN.Name == "" {
				bundlePFN = inst.PackageFamilyName
			}
			results = append(results, inst)
		}
	}
	for i := range results {
		results[i].PackageFamilyName = bundlePFN
	}
	return results, nil
}

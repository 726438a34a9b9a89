// Package msix opens an MSIX/APPX package or bundle as a zip archive,
// streams its manifest, and computes the signature hash and package
// family name spec.md §4.6 describes.
//
// Grounded on the teacher's src/dump-package/impl/archive.go (opens an
// archive member-by-member and hands each member's bytes to a
// narrowly-scoped parser) generalized from ar archive members to zip
// central-directory entries.
package msix

import (
	"encoding/xml"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/majewsky/wininstall-analyze/model"
)

const decoderName = "msix"

// parsedManifest is everything Decode needs out of AppxManifest.xml,
// harvested via a streaming (event-based) token scan rather than a DOM
// parse (spec.md §4.6: "streamed (event-based)").
type parsedManifest struct {
	Name                 string
	Publisher            string
	Version              string
	ProcessorArchitecture string
	ResourceID           string
	DisplayName          string
	PublisherDisplayName string
	TargetDeviceFamilies []targetDeviceFamily
	Capabilities         []string
	FileExtensions       []string
}

type targetDeviceFamily struct {
	Name       string
	MinVersion string
}

// parseManifest decodes r token-by-token in a single pass. Elements the
// walk does not recognize are ignored; an XML syntax error reported by
// the decoder aborts the whole parse with a KindEncoding error.
func parseManifest(r io.Reader) (*parsedManifest, error) {
	dec := xml.NewDecoder(r)
	m := &parsedManifest{}

	var inCapabilities, inFileTypeAssoc, inSupportedFileTypes bool

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, model.NewErr(decoderName, model.KindEncoding, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch localName(el.Name.Local) {
			case "Identity":
				for _, a := range el.Attr {
					switch a.Name.Local {
					case "Name":
						m.Name = a.Value
					case "Publisher":
						m.Publisher = html.UnescapeString(a.Value)
					case "Version":
						m.Version = a.Value
					case "ProcessorArchitecture":
						m.ProcessorArchitecture = a.Value
					case "ResourceId":
						m.ResourceID = a.Value
					}
				}
			case "DisplayName":
				// captured via CharData below; PublisherDisplayName likewise.
			case "TargetDeviceFamily":
				var tdf targetDeviceFamily
				for _, a := range el.Attr {
					switch a.Name.Local {
					case "Name":
						tdf.Name = a.Value
					case "MinVersion":
						tdf.MinVersion = a.Value
					}
				}
				m.TargetDeviceFamilies = append(m.TargetDeviceFamilies, tdf)
			case "Capabilities":
				inCapabilities = true
			case "Capability":
				if inCapabilities {
					for _, a := range el.Attr {
						if a.Name.Local == "Name" {
							m.Capabilities = append(m.Capabilities, a.Value)
						}
					}
				}
			case "FileTypeAssociation":
				inFileTypeAssoc = true
			case "SupportedFileTypes":
				inSupportedFileTypes = true
			case "FileType":
				if inFileTypeAssoc && inSupportedFileTypes {
					// value arrives as CharData next; captured via a
					// lookahead read since FileType has no attribute form.
					if ext, ok := readCharData(dec); ok {
						m.FileExtensions = append(m.FileExtensions, ext)
					}
				}
			}
			if localName(el.Name.Local) == "DisplayName" || localName(el.Name.Local) == "PublisherDisplayName" {
				if val, ok := readCharData(dec); ok {
					if localName(el.Name.Local) == "DisplayName" {
						m.DisplayName = val
					} else {
						m.PublisherDisplayName = val
					}
				}
			}
		case xml.EndElement:
			switch localName(el.Name.Local) {
			case "Capabilities":
				inCapabilities = false
			case "FileTypeAssociation":
				inFileTypeAssoc = false
			case "SupportedFileTypes":
				inSupportedFileTypes = false
			}
		}
	}
	return m, nil
}

// localName strips any namespace prefix the decoder may have already
// resolved away (it generally hasn't for Local, but this keeps the
// switch resilient to `rescap:Capability`-style elements whose Local
// field sometimes retains the prefix depending on declared xmlns).
func localName(s string) string {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func readCharData(dec *xml.Decoder) (string, bool) {
	tok, err := dec.Token()
	if err != nil {
		return "", false
	}
	cd, ok := tok.(xml.CharData)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(string(cd)), true
}

// ClassifyAppxVsMsix implements spec.md §4.6's classification: if
// every TargetDeviceFamily.MinVersion < 10.0.17763.0 and the manifest
// text doesn't contain "msix", it's Appx; else Msix.
func (m *parsedManifest) ClassifyAppxVsMsix(manifestText string) model.InstallerType {
	allBelowThreshold := true
	for _, tdf := range m.TargetDeviceFamilies {
		if !versionBelow(tdf.MinVersion, "10.0.17763.0") {
			allBelowThreshold = false
			break
		}
	}
	if allBelowThreshold && !strings.Contains(strings.ToLower(manifestText), "msix") {
		return model.TypeAppx
	}
	return model.TypeMsix
}

func versionBelow(a, threshold string) bool {
	av, aok := parseVersion(a)
	tv, tok := parseVersion(threshold)
	if !aok || !tok {
		return true
	}
	return av.Less(tv)
}

func parseVersion(s string) (model.OSVersion, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return model.OSVersion{}, false
	}
	vals := make([]uint16, 4)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return model.OSVersion{}, false
		}
		vals[i] = uint16(n)
	}
	return model.OSVersion{Major: vals[0], Minor: vals[1], Patch: vals[2], Build: vals[3]}, true
}

func architectureOf(s string) model.Architecture {
	switch strings.ToLower(s) {
	case "x86":
		return model.ArchX86
	case "x64", "amd64":
		return model.ArchX64
	case "arm":
		return model.ArchArm
	case "arm64":
		return model.ArchArm64
	case "neutral":
		return model.ArchNeutral
	default:
		return model.ArchUnknown
	}
}

func platformOf(name string) model.Platform {
	switch name {
	case "Windows.Desktop":
		return model.PlatformWindowsDesktop
	case "Windows.Universal":
		return model.PlatformWindowsUniversal
	default:
		return 0
	}
}

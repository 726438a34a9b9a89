package burn

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/majewsky/wininstall-analyze/model"
)

// packageKind is Burn's tagged Package variant discriminant (spec.md
// §3: "Package is a tagged variant {Bundle | Exe | Msi(MsiPackage) |
// Msp | Msu}").
type packageKind string

const (
	packageBundle packageKind = "Bundle"
	packageExe    packageKind = "Exe"
	packageMsi    packageKind = "Msi"
	packageMsp    packageKind = "Msp"
	packageMsu    packageKind = "Msu"
)

// chainedPackage is one <MsiPackage>/<ExePackage>/... element of the
// Burn manifest's <Chain>.
type chainedPackage struct {
	Kind             packageKind
	ID               string
	PerMachine       bool
	Vital            bool
	InstallCondition string
	ProductCode      string
	UpgradeCode      string
	DisplayName      string
	Version          string
	MsiProperties    map[string]string
}

// isARPSystemComponent reports whether this package's <MsiProperty
// Id="ARPSYSTEMCOMPONENT"> is set to "1" (spec.md §8 scenario 5): such
// a package's AppsAndFeaturesEntry must be suppressed from the bundle,
// even though the package itself still installs.
func (p chainedPackage) isARPSystemComponent() bool {
	return p.MsiProperties["ARPSYSTEMCOMPONENT"] == "1"
}

// registrationInfo is the manifest's top-level <Registration> element
// (Add/Remove Programs metadata for the bundle itself).
type registrationInfo struct {
	ID             string
	PerMachine     bool
	DisplayName    string
	DisplayVersion string
	Publisher      string
	UpgradeCode    string
}

// manifest is the decoded Burn XML manifest (spec.md §3's
// BurnManifest).
type manifest struct {
	Win64        bool
	Registration registrationInfo
	Packages     []chainedPackage
}

func parseManifest(data []byte) (*manifest, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, model.NewErr(decoderName, model.KindEncoding, err)
	}
	root := xmlquery.FindOne(doc, "//BurnManifest")
	if root == nil {
		root = doc
	}

	m := &manifest{}
	if winProps := xmlquery.FindOne(root, "//WixPackageProperties"); winProps != nil {
		m.Win64 = yesNo(winProps.SelectAttr("Win64"))
	}

	if reg := xmlquery.FindOne(root, "//Registration"); reg != nil {
		m.Registration = registrationInfo{
			ID:             reg.SelectAttr("Id"),
			PerMachine:     yesNo(reg.SelectAttr("PerMachine")),
			UpgradeCode:    reg.SelectAttr("UpgradeCode"),
		}
		if arp := xmlquery.FindOne(reg, "./Arp"); arp != nil {
			m.Registration.DisplayName = arp.SelectAttr("DisplayName")
			m.Registration.DisplayVersion = arp.SelectAttr("DisplayVersion")
			m.Registration.Publisher = arp.SelectAttr("Publisher")
		}
	}

	chain := xmlquery.FindOne(root, "//Chain")
	if chain != nil {
		for _, child := range chain.SelectElements("*") {
			kind, ok := packageKindOf(child.Data)
			if !ok {
				continue
			}
			pkg := chainedPackage{
				Kind:             kind,
				ID:               child.SelectAttr("Id"),
				PerMachine:       yesNo(child.SelectAttr("PerMachine")),
				Vital:            yesNoDefaultTrue(child.SelectAttr("Vital")),
				InstallCondition: child.SelectAttr("InstallCondition"),
				ProductCode:      child.SelectAttr("ProductCode"),
				UpgradeCode:      child.SelectAttr("UpgradeCode"),
				DisplayName:      child.SelectAttr("DisplayName"),
				Version:          child.SelectAttr("Version"),
				MsiProperties:    msiPropertiesOf(child),
			}
			m.Packages = append(m.Packages, pkg)
		}
	}

	return m, nil
}

// msiPropertiesOf collects an <MsiPackage>'s child <MsiProperty Id="..."
// Value="..."/> elements, which Burn uses to seed MSI properties at
// install time (the mechanism behind the ARPSYSTEMCOMPONENT
// suppression of spec.md §8 scenario 5).
func msiPropertiesOf(pkg *xmlquery.Node) map[string]string {
	props := map[string]string{}
	for _, el := range pkg.SelectElements("MsiProperty") {
		id := el.SelectAttr("Id")
		if id == "" {
			continue
		}
		props[id] = el.SelectAttr("Value")
	}
	return props
}

func packageKindOf(elementName string) (packageKind, bool) {
	switch elementName {
	case "MsiPackage":
		return packageMsi, true
	case "MspPackage":
		return packageMsp, true
	case "MsuPackage":
		return packageMsu, true
	case "ExePackage":
		return packageExe, true
	case "BundlePackage":
		return packageBundle, true
	default:
		return "", false
	}
}

// yesNo parses Burn's "yes"/"no" XML boolean convention (spec.md's
// supplemented RelatedBundle/yes_no fields), defaulting to false when
// absent or unrecognized.
func yesNo(s string) bool {
	return strings.EqualFold(s, "yes")
}

// yesNoDefaultTrue is the same convention for attributes (like Vital)
// whose absence Burn itself treats as "yes".
func yesNoDefaultTrue(s string) bool {
	if s == "" {
		return true
	}
	return strings.EqualFold(s, "yes")
}

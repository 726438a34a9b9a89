package msi

import (
	"bytes"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/majewsky/wininstall-analyze/internal/cpid"
	"github.com/majewsky/wininstall-analyze/internal/winpath"
	"github.com/majewsky/wininstall-analyze/model"
)

const decoderName = "msi"

type strError string

func (e strError) Error() string { return string(e) }

func errShort(what string) error { return strError("truncated " + what) }

// Decode opens data as an MSI compound document and returns the single
// Installer record spec.md §4.3 describes.
func Decode(data []byte, limits *model.Limits) (model.Installer, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return model.Installer{}, model.NewErr(decoderName, model.KindStructural, err)
	}

	streams := map[string][]byte{}
	for entry, walkErr := doc.Next(); walkErr == nil; entry, walkErr = doc.Next() {
		buf := make([]byte, entry.Size)
		if _, readErr := io.ReadFull(doc, buf); readErr != nil && readErr != io.ErrUnexpectedEOF {
			continue
		}
		streams[decodeStreamName(entry.Name)] = buf
	}

	summary, err := parseSummaryInformation(streams["\x05SummaryInformation"])
	if err != nil {
		summary = &summaryInfo{}
		if limits != nil && limits.Logger != nil {
			limits.Logger.WithError(err).Debug("msi: failed to parse summary information")
		}
	}

	sp, err := parseStringPool(streams["_StringPool"], streams["_StringData"])
	if err != nil {
		return model.Installer{}, err
	}

	properties := map[string]string{}
	if rows, err := readStringTable(streams["Property"], sp, 2); err == nil {
		for _, row := range rows {
			properties[row[0]] = row[1]
		}
	}

	arch := architectureFromSummary(summary.Arch)

	inst := model.Installer{
		Architecture: arch,
		Type:         model.TypeMsi,
		Scope:        scopeFromProperties(properties, streams["Control"]),
		ProductCode:  properties["ProductCode"],
		UpgradeCode:  properties["UpgradeCode"],
	}

	if isWix(summary.CreatingApplication, properties) {
		inst.Type = model.TypeWix
	}

	if lcid, ok := parseProductLanguage(properties["ProductLanguage"]); ok {
		if tag, ok := cpid.ToBCP47(lcid); ok {
			inst.Locale = tag
		}
	}

	displayVersion := properties["ProductVersion"]
	if properties["ProductName"] == "Google Chrome" {
		if v, ok := chromeVersionFromComments(properties["Comments"]); ok {
			displayVersion = v
		}
	}
	entry := model.AppsAndFeaturesEntry{
		DisplayName:    properties["ProductName"],
		Publisher:      properties["Manufacturer"],
		DisplayVersion: displayVersion,
		ProductCode:    properties["ProductCode"],
		UpgradeCode:    properties["UpgradeCode"],
		InstallerType:  inst.Type,
	}
	if entry.HasAnyField() {
		inst.AppsAndFeaturesEntries = append(inst.AppsAndFeaturesEntries, entry)
	}

	if dirRows, err := readStringTable(streams["Directory"], sp, 3); err == nil && len(dirRows) > 0 {
		nodes := buildDirectoryTree(dirRows)
		if _, chain, ok := resolveInstallDir(nodes, properties); ok {
			is64 := arch == model.ArchX64 || arch == model.ArchArm64
			inst.InstallationMetadata.DefaultInstallLocation = renderInstallPath(chain, is64)
		}
	}
	// ARPINSTALLLOCATION fallback (SPEC_FULL.md supplement, from
	// original_source/): some MSIs never populate INSTALLDIR and only
	// register their final path in ARPINSTALLLOCATION at install time,
	// which authors sometimes pre-seed as a literal Property row.
	if inst.InstallationMetadata.DefaultInstallLocation == "" {
		if loc, ok := properties["ARPINSTALLLOCATION"]; ok && loc != "" {
			inst.InstallationMetadata.DefaultInstallLocation = loc
		}
	}

	return inst, nil
}

func architectureFromSummary(template string) model.Architecture {
	platform := template
	if idx := strings.IndexByte(template, ';'); idx >= 0 {
		platform = template[:idx]
	}
	switch platform {
	case "x64", "Intel64", "AMD64":
		return model.ArchX64
	case "Intel", "":
		return model.ArchX86
	case "Arm64":
		return model.ArchArm64
	case "Arm":
		return model.ArchArm
	default:
		return model.ArchUnknown
	}
}

// scopeFromProperties implements spec.md §4.3's ALLUSERS derivation,
// including the Control-table fallback for "absent".
func scopeFromProperties(properties map[string]string, controlTable []byte) model.Scope {
	val, present := properties["ALLUSERS"]
	if !present {
		if len(controlTable) > 0 && bytes.Contains(controlTable, []byte("ALLUSERS")) {
			return model.ScopeUnknown
		}
		return model.ScopeUser
	}
	switch val {
	case "1":
		return model.ScopeMachine
	case "2":
		return model.ScopeUnknown
	case "":
		return model.ScopeUser
	default:
		return model.ScopeUser
	}
}

// isWix implements spec.md §4.3's WiX detection.
func isWix(creatingApplication string, properties map[string]string) bool {
	lower := strings.ToLower(creatingApplication)
	if strings.Contains(lower, "wix") || strings.Contains(lower, "windows installer xml") {
		return true
	}
	for k, v := range properties {
		if strings.Contains(strings.ToLower(k), "wix") || strings.Contains(strings.ToLower(v), "wix") {
			return true
		}
	}
	return false
}

// chromeVersionFromComments implements spec.md §4.3's Chrome special
// case: the real display version is the first whitespace-separated
// token of Comments when it parses as a dotted sequence of u16s.
func chromeVersionFromComments(comments string) (string, bool) {
	fields := strings.Fields(comments)
	if len(fields) == 0 {
		return "", false
	}
	token := fields[0]
	parts := strings.Split(token, ".")
	if len(parts) == 0 {
		return "", false
	}
	for _, p := range parts {
		if _, ok := parseProductLanguage(p); !ok {
			return "", false
		}
	}
	return token, true
}

// renderInstallPath rewrites the resolved Directory-table chain (root
// to leaf) into a placeholder-prefixed relative path (spec.md §6). It
// substitutes a %Placeholder% for the *last* well-known directory id
// it finds while walking the chain, then appends every subsequent
// node's own resolved DefaultDir name — matching komac's
// get_property_relative_path, which replaces a well-known property
// component with the placeholder root and only falls back to each
// node's own DefaultDir for the non-property nodes that come after it.
// A node's own DefaultDir is never appended for the matched node
// itself (the placeholder already denotes that directory), and a bare
// "." (the common "same directory as parent" marker) never
// contributes an empty path segment.
//
// If no id in the chain resolves to a known placeholder, this falls
// back to a literal join of every node's resolved DefaultDir name (the
// SPEC_FULL.md ARPINSTALLLOCATION fallback path handles anything this
// still cannot resolve).
func renderInstallPath(chain []dirSegment, is64 bool) string {
	var root winpath.Root
	var haveRoot bool
	var rel []string
	for _, seg := range chain {
		if r, ok := winpath.ResolveProperty(seg.ID, is64); ok {
			root, haveRoot = r, true
			rel = rel[:0]
			continue
		}
		if seg.Name != "" && seg.Name != "." {
			rel = append(rel, seg.Name)
		}
	}
	if haveRoot {
		return winpath.Join(root, strings.Join(rel, `\`))
	}
	return strings.Join(rel, `\`)
}

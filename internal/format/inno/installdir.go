package inno

import (
	"strings"

	"github.com/majewsky/wininstall-analyze/internal/winpath"
)

// innoConstantProperty maps an Inno Setup constant token (spec.md §4.5 "Default
// install location", the {pf}-style syntax distinct from MSI/NSIS
// property names) to a winpath.Root. Tokens with an explicit 32/64-bit
// variant resolve directly; bit-ambiguous tokens ("pf", "cf",
// "commonpf") are resolved by the caller's own architecture via
// winpath.ResolveProperty's is64 parameter, so they are expressed here
// as the corresponding MSI property name instead of a literal Root.
var innoConstantProperty = map[string]string{
	"pf":            "ProgramFilesFolder",
	"commonpf":      "ProgramFilesFolder",
	"pf32":          "ProgramFilesFolder", // resolved with is64=false below
	"pf64":          "ProgramFiles64Folder",
	"commonpf32":    "ProgramFilesFolder",
	"commonpf64":    "ProgramFiles64Folder",
	"cf":            "CommonFilesFolder",
	"cf32":          "CommonFilesFolder",
	"cf64":          "CommonFiles64Folder",
	"commoncf":      "CommonFilesFolder",
	"commoncf32":    "CommonFilesFolder",
	"commoncf64":    "CommonFiles64Folder",
	"userappdata":   "AppDataFolder",
	"localappdata":  "LocalAppDataFolder",
	"commonappdata": "CommonAppDataFolder",
	"tmp":           "TempFolder",
	"win":           "WindowsFolder",
	"sd":            "WindowsVolume",
	"sys":           "SystemFolder",
	"sysnative":     "SystemFolder",
}

// resolveDefaultDirName rewrites an Inno DefaultDirName value such as
// "{autopf}\MyApp" into the placeholder-prefixed form spec.md §6
// requires, reusing winpath's MSI/NSIS property table since Inno's
// "pf"/"cf"/"appdata" family of constants name the same well-known
// folders under different syntax. "auto"-prefixed variants
// (autopf, autocf, autoappdata) collapse to their non-auto counterpart:
// Inno resolves "auto*" to the machine- or user-scope equivalent at
// install time depending on privilege level, a distinction this
// decoder does not track per-directory.
//
// A token this decoder does not recognize (custom {code:...} constants,
// {src}, {group}, and similar non-folder constants) is left as the
// literal value verbatim; it still carries useful information even
// though it cannot be normalized to a %Placeholder%.
func resolveDefaultDirName(defaultDirName string, is64 bool) string {
	if !strings.HasPrefix(defaultDirName, "{") {
		return defaultDirName
	}
	closeBrace := strings.IndexByte(defaultDirName, '}')
	if closeBrace < 0 {
		return defaultDirName
	}
	token := strings.ToLower(defaultDirName[1:closeBrace])
	token = strings.TrimPrefix(token, "auto")
	rel := strings.TrimPrefix(defaultDirName[closeBrace+1:], `\`)

	propName, ok := innoConstantProperty[token]
	if !ok {
		return defaultDirName
	}
	if strings.HasSuffix(token, "32") {
		is64 = false
	}
	root, ok := winpath.ResolveProperty(propName, is64)
	if !ok {
		return defaultDirName
	}
	return winpath.Join(root, rel)
}

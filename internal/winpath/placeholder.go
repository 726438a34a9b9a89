// Package winpath rewrites absolute Windows paths rooted at well-known
// shell folders into the placeholder-prefixed relative form described
// in spec.md §6, so that install-location metadata is machine
// independent (no literal "C:\Program Files" in the emitted manifest).
package winpath

import "strings"

// Root identifies one of the closed set of placeholder roots.
type Root int

const (
	RootProgramFilesX86 Root = iota
	RootProgramFiles
	RootCommonFilesX86
	RootCommonFiles
	RootAppData
	RootLocalAppData
	RootProgramData
	RootSystemRoot
	RootWindir
	RootSystemDrive
	RootTemp
)

// Placeholder is the literal token emitted for each Root (§6 table).
var Placeholder = map[Root]string{
	RootProgramFilesX86: `%ProgramFiles(x86)%`,
	RootProgramFiles:    `%ProgramFiles%`,
	RootCommonFilesX86:  `%CommonProgramFiles(x86)%`,
	RootCommonFiles:     `%CommonProgramFiles%`,
	RootAppData:         `%AppData%`,
	RootLocalAppData:    `%LocalAppData%`,
	RootProgramData:     `%ProgramData%`,
	RootSystemRoot:      `%SystemRoot%`,
	RootWindir:          `%windir%`,
	RootSystemDrive:     `%SystemDrive%`,
	RootTemp:            `%Temp%`,
}

// knownMSIProperty maps MSI/NSIS well-known property or shell-folder
// names to a Root, so both the MSI Directory-table walk (§4.3) and the
// NSIS shell-folder table (§4.4) can share one lookup.
//
// Names ending in "64" resolve to the 64-bit root; names without a bit
// suffix are ambiguous and the caller decides between the 32/64-bit
// variant based on the installer's own architecture (§4.3: "rewritten
// ... unless the Summary Info arch is x64").
var knownMSIProperty = map[string]Root{
	"ProgramFilesFolder":    RootProgramFilesX86, // resolved per-arch by caller
	"ProgramFiles64Folder":  RootProgramFiles,
	"ProgramFilesFolder64":  RootProgramFiles,
	"CommonFilesFolder":     RootCommonFilesX86,
	"CommonFiles64Folder":   RootCommonFiles,
	"CommonFilesFolder64":   RootCommonFiles,
	"AppDataFolder":         RootAppData,
	"LocalAppDataFolder":    RootLocalAppData,
	"CommonAppDataFolder":   RootProgramData,
	"TempFolder":            RootTemp,
	"WindowsFolder":         RootSystemRoot,
	"WindowsVolume":         RootSystemDrive,
	"SystemFolder":          RootSystemRoot,
	"System16Folder":        RootSystemRoot,
}

// ResolveProperty looks up a known MSI/NSIS property name. is64 selects
// the bit-width variant for architecture-ambiguous names like
// "ProgramFilesFolder".
func ResolveProperty(name string, is64 bool) (Root, bool) {
	root, ok := knownMSIProperty[name]
	if !ok {
		return 0, false
	}
	if is64 {
		switch root {
		case RootProgramFilesX86:
			return RootProgramFiles, true
		case RootCommonFilesX86:
			return RootCommonFiles, true
		}
	}
	return root, true
}

// Join renders placeholder + "\" + rel, normalizing any forward slashes
// in rel to backslashes (the common model stores Windows-style paths).
func Join(root Root, rel string) string {
	rel = strings.ReplaceAll(rel, "/", `\`)
	rel = strings.Trim(rel, `\`)
	ph := Placeholder[root]
	if rel == "" {
		return ph
	}
	return ph + `\` + rel
}

// ArchAlias identifies which architecture family a file-name token
// implies. The zero value means no alias matched.
type ArchAlias int

const (
	AliasNone ArchAlias = iota
	AliasX64
	AliasArm64
)

// aliasesX64 and aliasesArm64 are file-name tokens that the
// dispatcher's architecture override (spec.md §4.1) recognizes as
// implying a 64-bit installer of a specific family. original_source's
// analyzer.rs maps "arm64"/"aarch64" to Arm64 and only
// "amd64"/"x64"/... to X64 — the two families are not interchangeable.
// Matching is delimiter-bounded: a token must be preceded and followed
// by one of the Boundary runes (or string start/end).
var aliasesX64 = map[string]bool{
	"amd64": true, "x64": true, "win64": true, "64bit": true, "x86_64": true,
}

var aliasesArm64 = map[string]bool{
	"arm64": true, "aarch64": true,
}

// boundary runes that delimit a token inside a file name (§4.1:
// "Token boundaries are restricted to {',','/','\\','.','_','-','(',')'}").
const boundaryChars = `,/\._-()`

func isBoundary(r byte) bool {
	return strings.IndexByte(boundaryChars, r) >= 0
}

// FileNameArchAlias reports which delimiter-bounded 64-bit
// architecture alias, if any, fileName contains, case-insensitively.
// The first matching token wins when a name carries more than one.
func FileNameArchAlias(fileName string) ArchAlias {
	lower := strings.ToLower(fileName)
	n := len(lower)
	i := 0
	for i < n {
		if !isBoundary(lower[i]) && (i == 0 || isBoundary(lower[i-1])) {
			// an alias may itself contain a boundary rune ("x86_64"), so
			// every delimiter-bounded run starting here is tried
			for end := i + 1; end <= n; end++ {
				if end < n && !isBoundary(lower[end]) {
					continue
				}
				token := lower[i:end]
				if aliasesArm64[token] {
					return AliasArm64
				}
				if aliasesX64[token] {
					return AliasX64
				}
			}
		}
		i++
	}
	return AliasNone
}

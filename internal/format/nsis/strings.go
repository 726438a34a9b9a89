package nsis

import (
	"encoding/binary"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// nsisVersion selects which escape-code table and variable-offset quirk
// applies (spec.md §4.4 "Escape codes" / "Variable model").
type nsisVersion int

const (
	nsisV3 nsisVersion = iota
	nsisV2
	nsisV225 // NSIS 2.25 exactly: pseudo-variable offsets shifted by 2
)

type escapeCodes struct {
	Language, Shell, Variable, Skip byte
}

func escapeCodesFor(v nsisVersion) escapeCodes {
	if v == nsisV3 {
		return escapeCodes{Language: 1, Shell: 2, Variable: 3, Skip: 4}
	}
	return escapeCodes{Language: 255, Shell: 254, Variable: 253, Skip: 252}
}

// stringsBlock decodes the Strings block's encoding (UTF-16LE vs ANSI)
// and exposes raw (escape-code-laden) entries by byte offset.
type stringsBlock struct {
	data    []byte
	wide    bool
	codes   escapeCodes
	version nsisVersion
}

func newStringsBlock(raw []byte, version nsisVersion) *stringsBlock {
	wide := len(raw) >= 2 && raw[0] == 0 && raw[1] == 0
	return &stringsBlock{data: raw, wide: wide, codes: escapeCodesFor(version), version: version}
}

// rawUnitsAt reads the NUL-terminated unit sequence (u16 if wide, else
// u8) starting at byte offset off, stopping before the terminator.
func (s *stringsBlock) rawUnitsAt(off int64) []uint16 {
	if off < 0 || off >= int64(len(s.data)) {
		return nil
	}
	var units []uint16
	if s.wide {
		for i := off; i+1 < int64(len(s.data)); i += 2 {
			u := binary.LittleEndian.Uint16(s.data[i : i+2])
			if u == 0 {
				break
			}
			units = append(units, u)
		}
	} else {
		for i := off; i < int64(len(s.data)); i++ {
			b := s.data[i]
			if b == 0 {
				break
			}
			units = append(units, uint16(b))
		}
	}
	return units
}

// resolverHook lets the escape-decoded string pull in variable values
// (for composed string interpolation) and shell-folder names without
// this package importing the VM directly back into stringsBlock.
type resolverHook interface {
	variableValue(index int) string
	shellFolderName(index int) string
	languageString(index int) string
}

// decodeAt resolves the string at byte offset off into plain text,
// expanding variable/shell/language escape codes via hook (which may be
// nil, in which case escapes render as a bracketed placeholder).
func (s *stringsBlock) decodeAt(off int64, hook resolverHook) string {
	units := s.rawUnitsAt(off)
	var out strings.Builder
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch byte(u) {
		case s.codes.Skip:
			if i+1 < len(units) {
				out.WriteRune(rune(units[i+1]))
				i++
			}
			continue
		case s.codes.Variable:
			if i+1 < len(units) {
				idx := int(units[i+1])
				i++
				if hook != nil {
					out.WriteString(hook.variableValue(idx))
				} else {
					out.WriteString("$" + strconv.Itoa(idx))
				}
				continue
			}
		case s.codes.Shell:
			if i+1 < len(units) {
				idx := int(units[i+1])
				i++
				if hook != nil {
					out.WriteString(hook.shellFolderName(idx))
				} else {
					out.WriteString("$SHELL" + strconv.Itoa(idx))
				}
				continue
			}
		case s.codes.Language:
			if i+1 < len(units) {
				idx := int(units[i+1])
				i++
				if hook != nil {
					out.WriteString(hook.languageString(idx))
				} else {
					out.WriteString("$(LANG_" + strconv.Itoa(idx) + ")")
				}
				continue
			}
		}
		if !s.wide && u > 0x7f {
			out.WriteString(decodeANSIByte(byte(u)))
			continue
		}
		out.WriteRune(rune(u))
	}
	return out.String()
}

var win1252 = charmap.Windows1252

func decodeANSIByte(b byte) string {
	r := win1252.DecodeByte(b)
	if r == 0xFFFD {
		return string(rune(b))
	}
	return string(r)
}

// detectVersion implements spec.md §4.4's three-step version-detection
// precedence: manifest description, BrandingText, then a majority
// heuristic scan of the strings block.
func detectVersion(manifestDescription, brandingText string, strBlock []byte) nsisVersion {
	if v, ok := versionFromDescriptionText(manifestDescription); ok {
		return v
	}
	if v, ok := versionFromDescriptionText(brandingText); ok {
		return v
	}
	return heuristicVersionScan(strBlock)
}

// versionFromDescriptionText accepts only "Nullsoft Install System
// vMAJOR.MINOR[.PATCH]" and maps major version 2 to nsisV2 (with the
// 2.25 quirk detected on exact match), major version 3 to nsisV3.
func versionFromDescriptionText(s string) (nsisVersion, bool) {
	const prefix = "Nullsoft Install System v"
	idx := strings.Index(s, prefix)
	if idx < 0 {
		return 0, false
	}
	rest := s[idx+len(prefix):]
	end := 0
	for end < len(rest) && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	version := rest[:end]
	if version == "" {
		return 0, false
	}
	if version == "2.25" {
		return nsisV225, true
	}
	if strings.HasPrefix(version, "2.") {
		return nsisV2, true
	}
	if strings.HasPrefix(version, "3.") {
		return nsisV3, true
	}
	return 0, false
}

// heuristicVersionScan classifies every (prev==0, byte) window as a v2
// or v3 escape code and returns the majority, ties resolving to v3.
func heuristicVersionScan(data []byte) nsisVersion {
	v2Votes, v3Votes := 0, 0
	for i := 1; i < len(data); i++ {
		if data[i-1] != 0 {
			continue
		}
		b := data[i]
		switch b {
		case 255, 254, 253, 252:
			v2Votes++
		case 1, 2, 3, 4:
			v3Votes++
		}
	}
	if v2Votes > v3Votes {
		return nsisV2
	}
	return nsisV3
}

// findManifestDescription extracts the <description> element text from a
// PE RT_MANIFEST payload, used as the first version-detection source.
func findManifestDescription(manifest []byte) string {
	const open, close = "<description>", "</description>"
	s := string(manifest)
	start := strings.Index(s, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	end := strings.Index(s[start:], close)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(s[start : start+end])
}

// findBrandingText scans the language table block (a flat array of
// string-offset entries, one table per language) for the BrandingText
// string, approximated here as the first non-empty decoded string in
// the block. The exact table layout varies by NSIS minor version; for
// metadata-recovery purposes the first user-visible string is an
// acceptable proxy per spec.md's "only side effects relevant to
// declared metadata must be faithful".
func findBrandingText(langTableBlock []byte, strBlock *stringsBlock) string {
	if len(langTableBlock) < 4 {
		return ""
	}
	for off := int64(0); off+4 <= int64(len(langTableBlock)); off += 4 {
		idx := int64(binary.LittleEndian.Uint32(langTableBlock[off : off+4]))
		if idx <= 0 {
			continue
		}
		s := strBlock.decodeAt(idx, nil)
		if s != "" {
			return s
		}
	}
	return ""
}

package pe

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"

	"github.com/majewsky/wininstall-analyze/model"
)

// VersionInfoStrings is the subset of VS_VERSIONINFO's StringTable the engine
// actually consults (spec.md §4.2: "keys actually used are
// OriginalFilename, FileDescription, CompanyName, LegalCopyright,
// ProductName").
type VersionInfoStrings struct {
	OriginalFilename string
	FileDescription  string
	CompanyName      string
	LegalCopyright   string
	ProductName      string
}

// HasInstallerKeyword reports whether OriginalFilename or
// FileDescription contains any of the dispatcher's generic-PE
// classification keywords (spec.md §4.1).
func (v VersionInfoStrings) HasInstallerKeyword() bool {
	keywords := []string{"installer", "setup", "7zs.sfx", "7zsd.sfx"}
	haystack := strings.ToLower(v.OriginalFilename + " " + v.FileDescription)
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// align4 rounds n up to the next multiple of 4 (DWORD padding, spec.md
// §4.2: "padding to DWORD").
func align4(n int) int { return (n + 3) &^ 3 }

// versionNode is one parsed {length, value_length, type, key} record
// of the recursive VS_VERSIONINFO structure.
type versionNode struct {
	length      int
	valueLength int
	isText      bool
	key         string
	valueStart  int // offset of the value field within the buffer
	childStart  int // offset of the first child, after value + padding
}

// parseNode reads one VS_VERSIONINFO-style node header starting at
// off. Returns the node and the offset immediately past its header
// (where the value bytes begin).
func parseNode(data []byte, off int) (versionNode, int, error) {
	if off+6 > len(data) {
		return versionNode{}, 0, model.NewErr(decoderName, model.KindBounds, errShort("version node header"))
	}
	length := int(binary.LittleEndian.Uint16(data[off:]))
	valueLength := int(binary.LittleEndian.Uint16(data[off+2:]))
	typ := binary.LittleEndian.Uint16(data[off+4:])
	keyStart := off + 6
	keyEnd, key, err := readUTF16CString(data, keyStart)
	if err != nil {
		return versionNode{}, 0, err
	}
	valueStart := align4(keyEnd)
	return versionNode{
		length:      length,
		valueLength: valueLength,
		isText:      typ == 1,
		key:         key,
		valueStart:  valueStart,
	}, valueStart, nil
}

func readUTF16CString(data []byte, off int) (int, string, error) {
	i := off
	var units []uint16
	for {
		if i+2 > len(data) {
			return 0, "", model.NewErr(decoderName, model.KindBounds, errShort("version info key"))
		}
		u := binary.LittleEndian.Uint16(data[i:])
		i += 2
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return i, string(utf16.Decode(units)), nil
}

// ParseVersionInfoStrings parses the raw VS_VERSIONINFO resource bytes
// and extracts the StringTable keys the engine needs. Any parse
// failure in a subtree is non-fatal (spec.md §4.2): it simply leaves
// the corresponding field empty.
func ParseVersionInfoStrings(data []byte) VersionInfoStrings {
	var out VersionInfoStrings
	root, childStart, err := parseNode(data, 0)
	if err != nil {
		return out
	}
	end := root.length
	if end > len(data) {
		end = len(data)
	}
	walkChildren(data, align4(childStart+root.valueLength), end, &out)
	return out
}

// walkChildren scans VS_VERSIONINFO's children looking for
// "StringFileInfo" -> StringTable -> individual string entries,
// recovering gracefully from any malformed subtree by simply stopping
// that branch.
func walkChildren(data []byte, start, end int, out *VersionInfoStrings) {
	off := start
	for off < end {
		node, valueStart, err := parseNode(data, off)
		if err != nil || node.length <= 0 {
			return
		}
		childEnd := off + node.length
		if childEnd > end || childEnd <= off {
			return
		}
		switch node.key {
		case "StringFileInfo":
			walkStringFileInfo(data, valueStart, childEnd, out)
		default:
			// VarFileInfo and any unrecognized child: skip, nothing used
			// from it.
		}
		off = align4(childEnd)
	}
}

func walkStringFileInfo(data []byte, start, end int, out *VersionInfoStrings) {
	off := start
	for off < end {
		table, _, err := parseNode(data, off)
		if err != nil || table.length <= 0 {
			return
		}
		tableEnd := off + table.length
		if tableEnd > end || tableEnd <= off {
			return
		}
		walkStringTable(data, align4(table.valueStart), tableEnd, out)
		off = align4(tableEnd)
	}
}

func walkStringTable(data []byte, start, end int, out *VersionInfoStrings) {
	off := start
	for off < end {
		node, valueStart, err := parseNode(data, off)
		if err != nil || node.length <= 0 {
			return
		}
		entryEnd := off + node.length
		if entryEnd > end || entryEnd <= off {
			return
		}
		value := decodeStringValue(data, valueStart, node.valueLength, node.isText)
		switch node.key {
		case "OriginalFilename":
			out.OriginalFilename = value
		case "FileDescription":
			out.FileDescription = value
		case "CompanyName":
			out.CompanyName = value
		case "LegalCopyright":
			out.LegalCopyright = value
		case "ProductName":
			out.ProductName = value
		}
		off = align4(entryEnd)
	}
}

func decodeStringValue(data []byte, start, valueLengthInChars int, isText bool) string {
	if !isText {
		return ""
	}
	byteLen := valueLengthInChars * 2
	if start < 0 || start+byteLen > len(data) || byteLen < 0 {
		return ""
	}
	units := make([]uint16, 0, valueLengthInChars)
	for i := 0; i < byteLen; i += 2 {
		u := binary.LittleEndian.Uint16(data[start+i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

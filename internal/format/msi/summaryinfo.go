package msi

import (
	"encoding/binary"

	"github.com/majewsky/wininstall-analyze/model"
)

// summaryInfo is the subset of the OLE Property Set ("\005SummaryInformation")
// stream's well-known property IDs spec.md §4.3 consults.
type summaryInfo struct {
	Arch               string // PID_ARCH equivalent, lives in the Template (7) property as "arch;lcid"
	ProductLanguage    uint16
	CreatingApplication string
}

const (
	pidCodepage           = 1
	pidTitle              = 2
	pidSubject            = 3
	pidAuthor             = 4
	pidTemplate           = 7
	pidLastSavedBy        = 8
	pidRevisionNumber     = 9
	pidLastPrinted        = 11
	pidCreateDTM          = 12
	pidLastSaveDTM        = 13
	pidPageCount          = 14 // schema / minimum installer version
	pidWordCount          = 15 // source file type (compressed flag bits)
	pidCharCount          = 16
	pidAppName            = 18 // creating application
	pidSecurity           = 19
)

const (
	vtI2     = 2
	vtI4     = 3
	vtLPSTR  = 30
	vtFileTime = 64
)

// parseSummaryInformation decodes the raw "\005SummaryInformation"
// stream (the OLE PropertySetStream format: a fixed header, one
// FMTID/offset pair for its single property set, then a {size,
// numProperties, (id,offset)[]} section with ANSI codepage-encoded
// strings).
func parseSummaryInformation(data []byte) (*summaryInfo, error) {
	if len(data) < 48 {
		return nil, model.NewErr(decoderName, model.KindStructural, errShort("summary information header"))
	}
	// PropertySetStream header: byteOrder(2) version(2) sysId(4)
	// clsid(16) numPropertySets(4) then FMTID0(16) offset0(4) [FMTID1
	// offset1 if numPropertySets==2].
	numPropertySets := binary.LittleEndian.Uint32(data[24:28])
	if numPropertySets == 0 {
		return nil, model.NewErr(decoderName, model.KindStructural, errShort("summary information: no property sets"))
	}
	sectionOffset := binary.LittleEndian.Uint32(data[44:48])
	if int(sectionOffset) >= len(data) {
		return nil, model.NewErr(decoderName, model.KindBounds, errShort("summary information section offset"))
	}
	section := data[sectionOffset:]
	if len(section) < 8 {
		return nil, model.NewErr(decoderName, model.KindStructural, errShort("summary information section"))
	}
	numProperties := binary.LittleEndian.Uint32(section[4:8])

	info := &summaryInfo{}
	for i := uint32(0); i < numProperties; i++ {
		entryOff := 8 + i*8
		if int(entryOff)+8 > len(section) {
			break
		}
		id := binary.LittleEndian.Uint32(section[entryOff:])
		valOff := binary.LittleEndian.Uint32(section[entryOff+4:])
		if int(valOff) >= len(section) {
			continue
		}
		val := section[valOff:]
		switch id {
		case pidTemplate:
			if s, ok := readVtLPSTR(val); ok {
				info.Arch = s
			}
		case pidAppName:
			if s, ok := readVtLPSTR(val); ok {
				info.CreatingApplication = s
			}
		}
	}
	return info, nil
}

func readVtLPSTR(val []byte) (string, bool) {
	if len(val) < 8 {
		return "", false
	}
	typ := binary.LittleEndian.Uint32(val)
	if typ != vtLPSTR {
		return "", false
	}
	size := binary.LittleEndian.Uint32(val[4:])
	if int(8+size) > len(val) {
		return "", false
	}
	raw := val[8 : 8+size]
	// strip the trailing NUL the VT_LPSTR length includes.
	if len(raw) > 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}
	return string(raw), true
}

// parseProductLanguage parses a decimal string property value as a u16
// (spec.md §4.3: "ProductLanguage parsed as u16"), failing on empty
// input, any non-digit, or a value above 65535. MSI stores
// ProductLanguage in the Property table as such a decimal string.
func parseProductLanguage(s string) (uint16, bool) {
	var v uint32
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		v = v*10 + uint32(r-'0')
		if v > 0xffff {
			return 0, false
		}
		n++
	}
	return uint16(v), n > 0
}

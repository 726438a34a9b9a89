package msi

import (
	"encoding/binary"

	"github.com/majewsky/wininstall-analyze/model"
)

// stringPool is MSI's shared, 1-indexed string table: every table's
// string-typed column stores an index into this pool instead of an
// inline value (spec.md §4.3 doesn't mention it directly, but the
// Directory/Property table rows this spec needs are entirely
// string-valued, so the pool must be decoded first).
type stringPool struct {
	strings     []string // index 0 unused; MSI string refs are 1-based
	longRefs    bool     // string refs are 3 bytes wide instead of 2
}

// parseStringPool decodes the paired "_StringPool" (per-string
// {size uint16, refcount uint16}) and "_StringData" (concatenated
// bytes) streams. _StringPool's first entry is a header: its codepage
// field is unused here, and a refcount high bit signals long (3-byte)
// string references.
func parseStringPool(poolData, stringData []byte) (*stringPool, error) {
	if len(poolData) < 4 {
		return nil, model.NewErr(decoderName, model.KindStructural, errShort("_StringPool header"))
	}
	headerRefCount := binary.LittleEndian.Uint16(poolData[2:4])
	longRefs := headerRefCount&0x8000 != 0

	sp := &stringPool{strings: []string{""}, longRefs: longRefs}
	off := 4
	dataOff := 0
	for off+4 <= len(poolData) {
		size := int(binary.LittleEndian.Uint16(poolData[off:]))
		off += 4 // skip size + refcount
		if dataOff+size > len(stringData) {
			break
		}
		sp.strings = append(sp.strings, string(stringData[dataOff:dataOff+size]))
		dataOff += size
	}
	return sp, nil
}

func (sp *stringPool) refWidth() int {
	if sp.longRefs {
		return 3
	}
	return 2
}

func (sp *stringPool) lookup(idx int) string {
	if idx <= 0 || idx >= len(sp.strings) {
		return ""
	}
	return sp.strings[idx]
}

func readStringRef(data []byte, off, width int) int {
	if width == 3 {
		return int(data[off]) | int(data[off+1])<<8 | int(data[off+2])<<16
	}
	return int(data[off]) | int(data[off+1])<<8
}

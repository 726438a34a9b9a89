package burn

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"io"

	"github.com/majewsky/wininstall-analyze/model"
)

// cabinet is a minimal Microsoft Cabinet (CAB) reader covering exactly
// what Burn's UX container needs: one or more CFFOLDER entries, each
// holding stored or MSZIP-compressed CFDATA chunks, indexed by
// CFFILE name (spec.md §6: "open the referenced UX CAB container").
//
// No example repo or ecosystem manifest in the retrieval pack ships a
// CAB reader (DESIGN.md), so this is built directly against the
// public CAB layout using only stdlib compress/flate for the MSZIP
// chunks (each MSZIP chunk is a raw deflate stream primed with the
// previous chunk's 32KB output as its dictionary).
type cabinetFile struct {
	name       string
	folderIdx  uint16
	uncompSize uint32
	folderOff  uint32
}

type cabinetFolder struct {
	firstDataOffset uint32
	dataBlockCount  uint16
	compressType    uint16
}

type cabinet struct {
	data    []byte
	folders []cabinetFolder
	files   []cabinetFile
}

func parseCabinet(data []byte) (*cabinet, error) {
	if len(data) < 36 || string(data[0:4]) != "MSCF" {
		return nil, model.NewErr(decoderName, model.KindStructural, errShort("CAB signature"))
	}
	coffFiles := binary.LittleEndian.Uint32(data[16:])
	cFolders := binary.LittleEndian.Uint16(data[26:])
	cFiles := binary.LittleEndian.Uint16(data[28:])
	flags := binary.LittleEndian.Uint16(data[30:])

	off := 36
	if flags&0x0004 != 0 { // cabinet has a reserved header area
		cbCFHeader := binary.LittleEndian.Uint16(data[off:])
		off += 2 + 1 + 1 // cbCFHeader, cbCFFolder, cbCFData
		off += int(cbCFHeader)
	}

	c := &cabinet{data: data}
	for i := uint16(0); i < cFolders; i++ {
		if off+8 > len(data) {
			return nil, model.NewErr(decoderName, model.KindStructural, errShort("CFFOLDER"))
		}
		f := cabinetFolder{
			firstDataOffset: binary.LittleEndian.Uint32(data[off:]),
			dataBlockCount:  binary.LittleEndian.Uint16(data[off+4:]),
			compressType:    binary.LittleEndian.Uint16(data[off+6:]),
		}
		off += 8
		c.folders = append(c.folders, f)
	}

	off = int(coffFiles)
	for i := uint16(0); i < cFiles; i++ {
		if off+16 > len(data) {
			return nil, model.NewErr(decoderName, model.KindStructural, errShort("CFFILE"))
		}
		size := binary.LittleEndian.Uint32(data[off:])
		folderStart := binary.LittleEndian.Uint32(data[off+4:])
		folderIdx := binary.LittleEndian.Uint16(data[off+8:])
		nameStart := off + 16
		nameEnd := nameStart
		for nameEnd < len(data) && data[nameEnd] != 0 {
			nameEnd++
		}
		name := string(data[nameStart:nameEnd])
		c.files = append(c.files, cabinetFile{
			name:       name,
			folderIdx:  folderIdx,
			uncompSize: size,
			folderOff:  folderStart,
		})
		off = nameEnd + 1
	}
	return c, nil
}

// extractFolder decompresses an entire folder's CFDATA chunks into one
// contiguous buffer.
func (c *cabinet) extractFolder(idx uint16) ([]byte, error) {
	if int(idx) >= len(c.folders) {
		return nil, model.NewErr(decoderName, model.KindBounds, errShort("folder index"))
	}
	folder := c.folders[idx]
	off := int64(folder.firstDataOffset)
	var out bytes.Buffer
	var dict []byte

	for i := uint16(0); i < folder.dataBlockCount; i++ {
		if off+8 > int64(len(c.data)) {
			return nil, model.NewErr(decoderName, model.KindBounds, errShort("CFDATA"))
		}
		cbData := binary.LittleEndian.Uint16(c.data[off+4:])
		cbUncomp := binary.LittleEndian.Uint16(c.data[off+6:])
		chunkStart := off + 8
		chunkEnd := chunkStart + int64(cbData)
		if chunkEnd > int64(len(c.data)) {
			return nil, model.NewErr(decoderName, model.KindBounds, errShort("CFDATA payload"))
		}
		chunk := c.data[chunkStart:chunkEnd]

		switch folder.compressType & 0x000f {
		case 0: // stored
			out.Write(chunk)
			dict = chunk
		case 1: // MSZIP: 2-byte "CK" signature then a raw deflate stream
			if len(chunk) < 2 || chunk[0] != 'C' || chunk[1] != 'K' {
				return nil, model.NewErr(decoderName, model.KindStructural, errShort("MSZIP signature"))
			}
			fr := flate.NewReaderDict(bytes.NewReader(chunk[2:]), dict)
			buf := make([]byte, cbUncomp)
			if _, err := io.ReadFull(fr, buf); err != nil {
				return nil, model.NewErr(decoderName, model.KindDecompression, err)
			}
			fr.Close()
			out.Write(buf)
			dict = lastN(dict, buf, 32*1024)
		default:
			return nil, model.NewErr(decoderName, model.KindDecompression, errShort("unsupported CAB compression (Quantum/LZX)"))
		}
		off = chunkEnd
	}
	return out.Bytes(), nil
}

// lastN returns the last n bytes of (prevDict + newData), the sliding
// window MSZIP carries across chunk boundaries.
func lastN(prevDict, newData []byte, n int) []byte {
	combined := append(append([]byte{}, prevDict...), newData...)
	if len(combined) <= n {
		return combined
	}
	return combined[len(combined)-n:]
}

// File looks up name (an exact, case-sensitive match against the
// stored file names) and returns its decompressed bytes.
func (c *cabinet) File(name string) ([]byte, bool, error) {
	for _, f := range c.files {
		if f.name != name {
			continue
		}
		folderData, err := c.extractFolder(f.folderIdx)
		if err != nil {
			return nil, true, err
		}
		if int(f.folderOff)+int(f.uncompSize) > len(folderData) {
			return nil, true, model.NewErr(decoderName, model.KindBounds, errShort("file exceeds folder data"))
		}
		return folderData[f.folderOff : f.folderOff+f.uncompSize], true, nil
	}
	return nil, false, nil
}

// Names returns every stored file name, for callers that need to find
// the manifest under an unknown name.
func (c *cabinet) Names() []string {
	names := make([]string, len(c.files))
	for i, f := range c.files {
		names[i] = f.name
	}
	return names
}

// Package pe reads just enough of the PE/COFF executable format to
// serve the higher-level decoders (spec.md §4.2): the DOS stub, COFF
// header, optional header (PE32/PE32+), section table, data
// directories, the resource directory tree (for RT_MANIFEST and
// VS_VERSIONINFO), and the trailing overlay offset that Burn, Inno,
// and NSIS all anchor their own payload to.
//
// Grounded on the teacher's src/dump-package/impl/core.go byte-slicing
// style (manual offsets into a []byte, no unsafe casts) generalized
// from ar/cpio archive members to the PE container.
package pe

import (
	"encoding/binary"
	"strings"

	"github.com/majewsky/wininstall-analyze/internal/binutil"
	"github.com/majewsky/wininstall-analyze/model"
)

const decoderName = "pe"

// Machine is the COFF machine type (IMAGE_FILE_HEADER.Machine).
type Machine uint16

const (
	MachineUnknown Machine = 0x0000
	MachineI386    Machine = 0x014c
	MachineAMD64   Machine = 0x8664
	MachineARM     Machine = 0x01c0
	MachineARMNT   Machine = 0x01c4
	MachineARM64   Machine = 0xaa64
)

// Architecture maps the COFF machine field to the engine's closed
// architecture set (spec.md §3).
func (m Machine) Architecture() model.Architecture {
	switch m {
	case MachineI386:
		return model.ArchX86
	case MachineAMD64:
		return model.ArchX64
	case MachineARM, MachineARMNT:
		return model.ArchArm
	case MachineARM64:
		return model.ArchArm64
	default:
		return model.ArchUnknown
	}
}

// Is64Bit reports whether the optional header magic indicates PE32+.
type Is64Bit bool

// DataDirectory is one entry of the optional header's data directory
// array (index 2 = resource table).
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// Section is one entry of the section table.
type Section struct {
	Name               string
	VirtualAddress     uint32
	VirtualSize        uint32
	PointerToRawData   uint32
	SizeOfRawData      uint32
	Characteristics    uint32
}

// File is a parsed PE image: everything the higher-level decoders need
// without re-reading the raw bytes.
type File struct {
	data            []byte
	Machine         Machine
	Is64            bool
	DataDirectories []DataDirectory
	Sections        []Section
}

const (
	dataDirResourceTable = 2
	rtManifest           = 24
)

// Parse reads the DOS header, PE signature, COFF header, optional
// header and section table from data, bounds-checking every offset
// against len(data) (spec.md §4.2: "do not trust any offset without
// bounds-checking against the file length").
func Parse(data []byte) (*File, error) {
	c := binutil.NewCursor(data)

	if len(data) < 0x40 {
		return nil, model.NewErrAt(decoderName, model.KindStructural, 0, "dos-header", errShort("dos header"))
	}
	dosMagic, err := binutil.ReadAt(data, 0, 2)
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, 0, "dos-header", err)
	}
	if dosMagic[0] != 'M' || dosMagic[1] != 'Z' {
		return nil, model.NewErrAt(decoderName, model.KindStructural, 0, "dos-signature", errInvalid("DOS signature"))
	}
	elfanewBytes, err := binutil.ReadAt(data, 0x3c, 4)
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, 0x3c, "e_lfanew", err)
	}
	elfanew := int64(binary.LittleEndian.Uint32(elfanewBytes))

	if err := c.Seek(elfanew); err != nil {
		return nil, model.NewErrAt(decoderName, model.KindBounds, elfanew, "pe-signature", err)
	}
	sig, err := c.Bytes(4)
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, elfanew, "pe-signature", err)
	}
	if sig[0] != 'P' || sig[1] != 'E' || sig[2] != 0 || sig[3] != 0 {
		return nil, model.NewErrAt(decoderName, model.KindStructural, elfanew, "pe-signature", errInvalid("PE signature"))
	}

	machineRaw, err := c.U16()
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "coff-header", err)
	}
	nSections, err := c.U16()
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "coff-header", err)
	}
	if _, err := c.U32(); err != nil { // TimeDateStamp
		return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "coff-header", err)
	}
	if _, err := c.U32(); err != nil { // PointerToSymbolTable
		return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "coff-header", err)
	}
	if _, err := c.U32(); err != nil { // NumberOfSymbols
		return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "coff-header", err)
	}
	sizeOfOptionalHeader, err := c.U16()
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "coff-header", err)
	}
	if _, err := c.U16(); err != nil { // Characteristics
		return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "coff-header", err)
	}

	optHeaderStart := c.Pos
	magic, err := c.U16()
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "optional-header", err)
	}
	var is64 bool
	switch magic {
	case 0x10b:
		is64 = false
	case 0x20b:
		is64 = true
	default:
		return nil, model.NewErrAt(decoderName, model.KindStructural, c.Pos-2, "optional-header-magic", errInvalid("optional header magic"))
	}

	// Skip standard + windows fields up to NumberOfRvaAndSizes, whose
	// offset differs between PE32 and PE32+ only in field widths, not
	// field count; rather than name every field we walk to the fixed
	// offset of NumberOfRvaAndSizes relative to the magic.
	var numberOfRvaAndSizesOffset int64
	if is64 {
		numberOfRvaAndSizesOffset = optHeaderStart + 108
	} else {
		numberOfRvaAndSizesOffset = optHeaderStart + 92
	}
	if err := c.Seek(numberOfRvaAndSizesOffset); err != nil {
		return nil, model.NewErrAt(decoderName, model.KindBounds, numberOfRvaAndSizesOffset, "number-of-rva-and-sizes", err)
	}
	numberOfRvaAndSizes, err := c.U32()
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "number-of-rva-and-sizes", err)
	}
	if numberOfRvaAndSizes > 16 {
		numberOfRvaAndSizes = 16
	}

	dirs := make([]DataDirectory, 0, numberOfRvaAndSizes)
	for i := uint32(0); i < numberOfRvaAndSizes; i++ {
		va, err := c.U32()
		if err != nil {
			return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "data-directory", err)
		}
		size, err := c.U32()
		if err != nil {
			return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "data-directory", err)
		}
		dirs = append(dirs, DataDirectory{VirtualAddress: va, Size: size})
	}

	sectionTableStart := optHeaderStart + int64(sizeOfOptionalHeader)
	if err := c.Seek(sectionTableStart); err != nil {
		return nil, model.NewErrAt(decoderName, model.KindBounds, sectionTableStart, "section-table", err)
	}
	sections := make([]Section, 0, nSections)
	for i := uint16(0); i < nSections; i++ {
		nameBytes, err := c.Bytes(8)
		if err != nil {
			return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "section-header", err)
		}
		name := strings.TrimRight(string(nameBytes), "\x00")
		virtualSize, err := c.U32()
		if err != nil {
			return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "section-header", err)
		}
		virtualAddress, err := c.U32()
		if err != nil {
			return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "section-header", err)
		}
		sizeOfRawData, err := c.U32()
		if err != nil {
			return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "section-header", err)
		}
		pointerToRawData, err := c.U32()
		if err != nil {
			return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "section-header", err)
		}
		if err := c.Seek(c.Pos + 12); err != nil { // PointerToRelocations/Linenumbers + counts
			return nil, model.NewErrAt(decoderName, model.KindBounds, c.Pos, "section-header", err)
		}
		characteristics, err := c.U32()
		if err != nil {
			return nil, model.NewErrAt(decoderName, model.KindIO, c.Pos, "section-header", err)
		}
		sections = append(sections, Section{
			Name:              name,
			VirtualAddress:    virtualAddress,
			VirtualSize:       virtualSize,
			PointerToRawData:  pointerToRawData,
			SizeOfRawData:     sizeOfRawData,
			Characteristics:   characteristics,
		})
	}

	return &File{
		data:            data,
		Machine:         Machine(machineRaw),
		Is64:            is64,
		DataDirectories: dirs,
		Sections:        sections,
	}, nil
}

// OverlayOffset is max(section.PointerToRawData+section.SizeOfRawData)
// across all sections (spec.md §4.2 and the §8 testable property).
func (f *File) OverlayOffset() int64 {
	var max int64
	for _, s := range f.Sections {
		end := int64(s.PointerToRawData) + int64(s.SizeOfRawData)
		if end > max {
			max = end
		}
	}
	return max
}

// Overlay returns the bytes past the last section's raw data, or nil
// if the file has no overlay.
func (f *File) Overlay() []byte {
	off := f.OverlayOffset()
	if off <= 0 || off >= int64(len(f.data)) {
		return nil
	}
	return f.data[off:]
}

// rvaToFileOffset resolves a relative virtual address to a file offset
// by finding the section whose virtual range contains it (spec.md
// §4.2: "search the section table for the section whose
// [virtual_address, virtual_address+virtual_size) contains the RVA").
func (f *File) rvaToFileOffset(rva uint32) (int64, bool) {
	for _, s := range f.Sections {
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+s.VirtualSize {
			return int64(rva-s.VirtualAddress) + int64(s.PointerToRawData), true
		}
	}
	return 0, false
}

func (f *File) resourceDataDirectory() (DataDirectory, bool) {
	if len(f.DataDirectories) <= dataDirResourceTable {
		return DataDirectory{}, false
	}
	dd := f.DataDirectories[dataDirResourceTable]
	if dd.VirtualAddress == 0 || dd.Size == 0 {
		return DataDirectory{}, false
	}
	return dd, true
}

type resourceDataEntry struct {
	offsetToData uint32
	size         uint32
}

// findByID walks the three-level resource directory tree
// (type -> name/id -> language), returning the first leaf found under
// a level-1 id entry equal to wantID under the given level-0 type id
// (spec.md §4.2 resource walk: "walk only the id-entry arrays at
// level 1").
func (f *File) findByID(wantTypeID, wantID uint32, depth int) (*resourceDataEntry, error) {
	dd, ok := f.resourceDataDirectory()
	if !ok {
		return nil, nil
	}
	base, ok := f.rvaToFileOffset(dd.VirtualAddress)
	if !ok {
		return nil, model.NewErr(decoderName, model.KindBounds, errInvalid("resource RVA out of range"))
	}
	typeDirOffset, err := f.findEntryInDirectory(base, base, wantTypeID, true, depth)
	if err != nil || typeDirOffset < 0 {
		return nil, err
	}
	// With wantID 0 any level-1 id entry is accepted; otherwise only the
	// id entry equal to wantID. Named level-1 entries are skipped.
	entry, err := f.findAnyLeafUnderLevel1(base, typeDirOffset, wantID, depth)
	return entry, err
}

// findEntryInDirectory scans one ImageResourceDirectory's entries for
// one matching wantID (by-id lookup only; named resources are skipped
// since RT_MANIFEST/VS_VERSION_INFO are always referenced by integer
// id), returning the (base-relative) offset of the subdirectory or
// leaf it points to, or -1 if not found.
func (f *File) findEntryInDirectory(base int64, dirOffset int64, wantID uint32, mustBeSubdir bool, depth int) (int64, error) {
	if depth <= 0 {
		return -1, model.NewErr(decoderName, model.KindBounds, errInvalid("resource directory recursion limit"))
	}
	nNameEntries, err := binutil.U16At(f.data, dirOffset+12)
	if err != nil {
		return -1, model.NewErrAt(decoderName, model.KindIO, dirOffset+12, "resource-directory", err)
	}
	nIDEntries, err := binutil.U16At(f.data, dirOffset+14)
	if err != nil {
		return -1, model.NewErrAt(decoderName, model.KindIO, dirOffset+14, "resource-directory", err)
	}
	entriesStart := dirOffset + 16
	total := int(nNameEntries) + int(nIDEntries)
	for i := 0; i < total; i++ {
		entryOffset := entriesStart + int64(i)*8
		id, err := binutil.U32At(f.data, entryOffset)
		if err != nil {
			return -1, model.NewErrAt(decoderName, model.KindIO, entryOffset, "resource-entry", err)
		}
		if i < int(nNameEntries) {
			continue // named entry, not an id we can compare against wantID
		}
		if id != wantID {
			continue
		}
		offsetField, err := binutil.U32At(f.data, entryOffset+4)
		if err != nil {
			return -1, model.NewErrAt(decoderName, model.KindIO, entryOffset+4, "resource-entry", err)
		}
		isSubdir := offsetField&0x80000000 != 0
		rel := int64(offsetField &^ 0x80000000)
		if mustBeSubdir && !isSubdir {
			continue
		}
		return rel, nil
	}
	return -1, nil
}

// findAnyLeafUnderLevel1 descends into the level-1 directory at
// base+dirOffset, trying each id entry's language subdirectory in turn
// (only the entry equal to wantLeafID when it is non-zero), and returns
// the first leaf entry found under it.
func (f *File) findAnyLeafUnderLevel1(base, dirOffset int64, wantLeafID uint32, depth int) (*resourceDataEntry, error) {
	if depth <= 0 {
		return nil, model.NewErr(decoderName, model.KindBounds, errInvalid("resource directory recursion limit"))
	}
	abs := base + dirOffset
	nNameEntries, err := binutil.U16At(f.data, abs+12)
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, abs+12, "resource-directory", err)
	}
	nIDEntries, err := binutil.U16At(f.data, abs+14)
	if err != nil {
		return nil, model.NewErrAt(decoderName, model.KindIO, abs+14, "resource-directory", err)
	}
	entriesStart := abs + 16
	total := int(nNameEntries) + int(nIDEntries)
	for i := 0; i < total; i++ {
		entryOffset := entriesStart + int64(i)*8
		id, err := binutil.U32At(f.data, entryOffset)
		if err != nil {
			continue
		}
		if i < int(nNameEntries) {
			continue // named entry; only the id-entry array is walked
		}
		if wantLeafID != 0 && id != wantLeafID {
			continue
		}
		offsetField, err := binutil.U32At(f.data, entryOffset+4)
		if err != nil {
			continue
		}
		isSubdir := offsetField&0x80000000 != 0
		rel := int64(offsetField &^ 0x80000000)
		if !isSubdir {
			continue
		}
		// rel now points at the language-level directory; take its
		// first entry, which must be a leaf.
		leaf, err := f.firstLeafOf(base, rel, depth-1)
		if err == nil && leaf != nil {
			return leaf, nil
		}
	}
	return nil, nil
}

func (f *File) firstLeafOf(base, dirOffset int64, depth int) (*resourceDataEntry, error) {
	if depth <= 0 {
		return nil, model.NewErr(decoderName, model.KindBounds, errInvalid("resource directory recursion limit"))
	}
	abs := base + dirOffset
	nNameEntries, err := binutil.U16At(f.data, abs+12)
	if err != nil {
		return nil, err
	}
	nIDEntries, err := binutil.U16At(f.data, abs+14)
	if err != nil {
		return nil, err
	}
	total := int(nNameEntries) + int(nIDEntries)
	if total == 0 {
		return nil, nil
	}
	entryOffset := abs + 16
	offsetField, err := binutil.U32At(f.data, entryOffset+4)
	if err != nil {
		return nil, err
	}
	isSubdir := offsetField&0x80000000 != 0
	rel := int64(offsetField &^ 0x80000000)
	if isSubdir {
		return f.firstLeafOf(base, rel, depth-1)
	}
	leafAbs := base + rel
	dataRVA, err := binutil.U32At(f.data, leafAbs)
	if err != nil {
		return nil, err
	}
	size, err := binutil.U32At(f.data, leafAbs+4)
	if err != nil {
		return nil, err
	}
	return &resourceDataEntry{offsetToData: dataRVA, size: size}, nil
}

// leafBytes resolves a resourceDataEntry's RVA to file offset and
// slices its bytes out of the image.
func (f *File) leafBytes(e *resourceDataEntry) ([]byte, error) {
	off, ok := f.rvaToFileOffset(e.offsetToData)
	if !ok {
		return nil, model.NewErr(decoderName, model.KindBounds, errInvalid("resource data RVA out of range"))
	}
	return binutil.ReadAt(f.data, off, int64(e.size))
}

// Manifest returns the first RT_MANIFEST leaf's bytes, or nil if the
// image has none.
func (f *File) Manifest(maxDepth int) ([]byte, error) {
	entry, err := f.findByID(rtManifest, 0, maxDepth)
	if err != nil || entry == nil {
		return nil, err
	}
	return f.leafBytes(entry)
}

const rtVersionTypeID = 16

// VersionInfo returns the bytes of the RT_VERSION resource (the raw
// VS_VERSIONINFO structure), for the caller to parse with ParseVersionInfoStrings.
func (f *File) VersionInfo(maxDepth int) ([]byte, error) {
	entry, err := f.findByID(rtVersionTypeID, 0, maxDepth)
	if err != nil || entry == nil {
		return nil, err
	}
	return f.leafBytes(entry)
}

const rtRCData = 10

// RCData returns the bytes of the RT_RCDATA resource with the given
// numeric name id (Inno Setup stores its header under id 11111,
// spec.md §4.5), or nil if no such resource exists.
func (f *File) RCData(id uint32, maxDepth int) ([]byte, error) {
	entry, err := f.findByID(rtRCData, id, maxDepth)
	if err != nil || entry == nil {
		return nil, err
	}
	return f.leafBytes(entry)
}

type strError string

func (e strError) Error() string { return string(e) }

func errShort(what string) error    { return strError("truncated " + what) }
func errInvalid(what string) error  { return strError("invalid " + what) }

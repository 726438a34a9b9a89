package nsis

import (
	"bytes"
	"encoding/binary"
	"io/ioutil"

	"github.com/majewsky/wininstall-analyze/internal/binutil"
	"github.com/majewsky/wininstall-analyze/model"
)

// blockKind indexes the eight fixed-order block headers (spec.md
// §4.4: "Pages, Sections, Entries, Strings, LangTables, CtlColors,
// BgFont, Data").
type blockKind int

const (
	blockPages blockKind = iota
	blockSections
	blockEntries
	blockStrings
	blockLangTables
	blockCtlColors
	blockBgFont
	blockData
	blockCount
)

// header is the decompressed NSIS header: CommonHeaderFlags followed
// by the block table, exposed as byte ranges into the decompressed
// buffer.
type header struct {
	raw    []byte
	blocks [blockCount][]byte
}

// decompressHeader locates, decompresses (if needed), and bounds-checks
// the NSIS header per spec.md §4.4's codec-detection table, enforcing
// the §5 header-size ceiling.
func decompressHeader(overlay []byte, fh *FirstHeader, is64 bool, limits *model.Limits) ([]byte, int64, bool, error) {
	if len(overlay) < 4 {
		return nil, 0, false, model.NewErr(decoderName, model.KindBounds, errShort("NSIS data section"))
	}
	codec, solid, _ := binutil.DetectNSISCodec(overlay, fh.LengthOfHeader)

	maxSize := int64(64 * 1024 * 1024)
	if limits != nil && limits.MaxHeaderSize > 0 {
		maxSize = limits.MaxHeaderSize
	}
	if int64(fh.LengthOfHeader) > maxSize {
		return nil, 0, false, model.NewErr(decoderName, model.KindBounds, model.ErrHeaderTooLarge)
	}

	if codec == binutil.CodecStored {
		if int64(fh.LengthOfHeader) > int64(len(overlay)) {
			return nil, 0, false, model.NewErr(decoderName, model.KindStructural, errShort("stored NSIS header"))
		}
		return overlay[4 : 4+fh.LengthOfHeader-4], 4, solid, nil
	}

	var dataStart int64
	var compressedLen int64
	if solid {
		dataStart = 0
		compressedLen = int64(len(overlay))
	} else {
		raw := binary.LittleEndian.Uint32(overlay[0:4])
		compressedLen = int64(raw &^ 0x80000000)
		dataStart = 4
		if dataStart+compressedLen > int64(len(overlay)) {
			compressedLen = int64(len(overlay)) - dataStart
		}
	}

	var lzmaProps []byte
	if codec == binutil.CodecLZMA1 {
		propsStart := dataStart
		if propsStart+5 > int64(len(overlay)) {
			return nil, 0, false, model.NewErr(decoderName, model.KindStructural, errShort("LZMA1 properties"))
		}
		lzmaProps = overlay[propsStart : propsStart+5]
		dataStart += 5
		compressedLen -= 5
	}
	if compressedLen < 0 || dataStart > int64(len(overlay)) {
		return nil, 0, false, model.NewErr(decoderName, model.KindBounds, errShort("NSIS compressed stream"))
	}
	end := dataStart + compressedLen
	if end > int64(len(overlay)) {
		end = int64(len(overlay))
	}

	dec, err := binutil.NewDecompressor(codec, bytes.NewReader(overlay[dataStart:end]), lzmaProps)
	if err != nil {
		return nil, 0, false, model.NewErr(decoderName, model.KindDecompression, err)
	}
	defer dec.Close()

	limited := binutil.LimitedReader(dec, maxSize+4)
	decompressed, err := ioutil.ReadAll(limited)
	if err != nil {
		return nil, 0, false, model.NewErr(decoderName, model.KindDecompression, err)
	}
	if int64(len(decompressed)) > maxSize {
		return nil, 0, false, model.NewErr(decoderName, model.KindBounds, model.ErrHeaderTooLarge)
	}

	if solid {
		if len(decompressed) < 4 {
			return nil, 0, false, model.NewErr(decoderName, model.KindIntegrity, errShort("solid header size prefix"))
		}
		declared := binary.LittleEndian.Uint32(decompressed[0:4])
		if declared != fh.LengthOfHeader {
			return nil, 0, false, model.NewErr(decoderName, model.KindIntegrity, errInvalid("decompressed header size mismatch"))
		}
		decompressed = decompressed[4:]
	}

	return decompressed, dataStart, solid, nil
}

// parseHeader reads CommonHeaderFlags then the eight BlockHeader
// entries, slicing out each block's bytes.
func parseHeader(decompressed []byte, is64 bool) (*header, error) {
	c := binutil.NewCursor(decompressed)
	if _, err := c.U32(); err != nil { // CommonHeaderFlags
		return nil, model.NewErr(decoderName, model.KindBounds, errShort("common header flags"))
	}

	offsets := make([]int64, blockCount)
	for i := blockKind(0); i < blockCount; i++ {
		off, err := c.UintSized(is64)
		if err != nil {
			return nil, model.NewErr(decoderName, model.KindBounds, errShort("block header"))
		}
		if _, err := c.UintSized(is64); err != nil { // count, unused directly: block length derives from offsets
			return nil, model.NewErr(decoderName, model.KindBounds, errShort("block header"))
		}
		offsets[i] = int64(off)
	}

	h := &header{raw: decompressed}
	for i := blockKind(0); i < blockCount; i++ {
		start := offsets[i]
		var end int64
		if i+1 < blockCount {
			end = offsets[i+1]
		} else {
			end = int64(len(decompressed))
		}
		if start < 0 || end > int64(len(decompressed)) || start > end {
			h.blocks[i] = nil
			continue
		}
		h.blocks[i] = decompressed[start:end]
	}
	return h, nil
}

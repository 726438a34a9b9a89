package inno

import (
	"bytes"
	"strings"

	"github.com/majewsky/wininstall-analyze/internal/binutil"
	"github.com/majewsky/wininstall-analyze/model"
)

const versionMarkerPrefix = "Inno Setup Setup Data ("

// versionMarker is the parsed "Inno Setup Setup Data (M.N.P[.Q])[
// (u|U)][ with ISX (...)]" NUL-terminated ASCII string that
// immediately follows the RCDATA(11111) payload's loader header
// (spec.md §4.5 "Inno version line").
type versionMarker struct {
	Version  string
	Unicode  bool
	IsISX    bool
	Is63Plus bool
}

func parseVersionMarker(data []byte) (versionMarker, int, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return versionMarker{}, 0, model.NewErr(decoderName, model.KindStructural, errShort("version marker"))
	}
	line := string(data[:nul])
	if !strings.HasPrefix(line, versionMarkerPrefix) {
		return versionMarker{}, 0, model.NewErr(decoderName, model.KindStructural, errInvalid("version marker prefix"))
	}
	rest := strings.TrimPrefix(line, versionMarkerPrefix)
	closeParen := strings.Index(rest, ")")
	if closeParen < 0 {
		return versionMarker{}, 0, model.NewErr(decoderName, model.KindStructural, errInvalid("version marker"))
	}
	version := rest[:closeParen]
	tail := rest[closeParen+1:]

	m := versionMarker{Version: version}
	if strings.Contains(tail, "(u)") || strings.Contains(tail, "(U)") {
		m.Unicode = true
	}
	if strings.Contains(tail, "ISX") || strings.Contains(tail, "Inno Setup Extensions") {
		m.IsISX = true
	}
	m.Is63Plus = versionAtLeast(version, 6, 3)
	if m.Is63Plus {
		m.Unicode = true
	}
	return m, nul + 1, nil
}

// versionAtLeast compares the "M.N.P[.Q]" version string against a
// major.minor floor.
func versionAtLeast(version string, major, minor int) bool {
	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return false
	}
	maj, min := atoiSafe(parts[0]), atoiSafe(parts[1])
	if maj != major {
		return maj > major
	}
	return min >= minor
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// decompressSetupData reads the CRC-framed, possibly-compressed header
// block stream that follows the version marker (spec.md §4.5 "Block
// framing"), supporting both the modern (>=4.0.9) and legacy (<4.0.9)
// framing modes.
func decompressSetupData(c *binutil.Cursor, modern bool, limits *model.Limits) ([]byte, error) {
	maxSize := int64(64 * 1024 * 1024)
	if limits != nil && limits.MaxHeaderSize > 0 {
		maxSize = limits.MaxHeaderSize
	}

	var compressedSize int64
	var codec binutil.Codec
	var lzmaProps []byte

	if modern {
		size, err := c.U32()
		if err != nil {
			return nil, model.NewErr(decoderName, model.KindBounds, errShort("modern block size"))
		}
		compressedFlag, err := c.U8()
		if err != nil {
			return nil, model.NewErr(decoderName, model.KindBounds, errShort("modern block compressed flag"))
		}
		compressedSize = int64(size)
		if compressedFlag != 0 {
			codec = binutil.CodecLZMA1
		} else {
			codec = binutil.CodecStored
		}
	} else {
		csize, err := c.U32()
		if err != nil {
			return nil, model.NewErr(decoderName, model.KindBounds, errShort("legacy compressed size"))
		}
		usize, err := c.U32()
		if err != nil {
			return nil, model.NewErr(decoderName, model.KindBounds, errShort("legacy uncompressed size"))
		}
		if csize == 0xFFFFFFFF {
			codec = binutil.CodecStored
			compressedSize = int64(usize)
		} else {
			codec = binutil.CodecZlib
			compressedSize = int64(csize)
		}
	}

	// The LZMA1 properties byte and dictionary size precede the
	// compressed bitstream *inside* the CRC-framed payload (the CRC
	// blocking wraps the literal bytes of this sub-header, not just the
	// bitstream proper), so they are sliced off raw after reassembly
	// rather than read directly off the cursor.
	const chunkSize = 4096
	raw, err := binutil.ReadCRCBlocks(c, compressedSize, chunkSize)
	if err != nil {
		return nil, model.NewErr(decoderName, model.KindIntegrity, err)
	}

	if codec == binutil.CodecLZMA1 {
		if len(raw) < 5 {
			return nil, model.NewErr(decoderName, model.KindStructural, errShort("LZMA1 properties header"))
		}
		if raw[0] >= 225 {
			return nil, model.NewErr(decoderName, model.KindStructural, errInvalid("LZMA1 properties byte"))
		}
		lzmaProps = raw[:5]
		raw = raw[5:]
	}

	dec, err := binutil.NewDecompressor(codec, bytes.NewReader(raw), lzmaProps)
	if err != nil {
		return nil, model.NewErr(decoderName, model.KindDecompression, err)
	}
	defer dec.Close()

	limited := binutil.LimitedReader(dec, maxSize)
	buf := make([]byte, 0, len(raw)*3)
	tmp := make([]byte, 32*1024)
	for {
		n, rerr := limited.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return buf, nil
}

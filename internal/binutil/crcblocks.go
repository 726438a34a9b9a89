package binutil

import (
	"hash/crc32"

	"github.com/pkg/errors"
)

// ErrCorruptBlock is returned when a CRC-framed chunk's stored checksum
// does not match its bytes (§4.5 "CRC mismatch -> CorruptBlock").
type ErrCorruptBlock struct {
	BlockIndex int
	Expected   uint32
	Actual     uint32
}

func (e *ErrCorruptBlock) Error() string {
	return errors.Errorf("binutil: block %d: CRC32 mismatch (expected %08x, got %08x)",
		e.BlockIndex, e.Expected, e.Actual).Error()
}

// ReadCRCBlocks reassembles the Inno Setup block stream: a repeating
// sequence of {u32 crc32, up to chunkSize raw bytes}, CRC covering only
// the payload bytes of that chunk (§4.5 "Block framing"). It returns the
// concatenation of every chunk's payload.
func ReadCRCBlocks(c *Cursor, totalLen int64, chunkSize int) ([]byte, error) {
	out := make([]byte, 0, totalLen)
	remaining := totalLen
	idx := 0
	for remaining > 0 {
		n := int64(chunkSize)
		if n > remaining {
			n = remaining
		}
		wantCRC, err := c.U32()
		if err != nil {
			return nil, errors.Wrapf(err, "inno: reading CRC for block %d", idx)
		}
		payload, err := c.Bytes(int(n))
		if err != nil {
			return nil, errors.Wrapf(err, "inno: reading payload for block %d", idx)
		}
		gotCRC := crc32.ChecksumIEEE(payload)
		if gotCRC != wantCRC {
			return nil, &ErrCorruptBlock{BlockIndex: idx, Expected: wantCRC, Actual: gotCRC}
		}
		out = append(out, payload...)
		remaining -= n
		idx++
	}
	return out, nil
}

// ChecksumIEEE re-exports crc32.ChecksumIEEE so callers outside binutil
// don't need a second import of hash/crc32 for the same algorithm.
func ChecksumIEEE(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

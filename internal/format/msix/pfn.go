package msix

import (
	"crypto/sha256"
	"unicode/utf16"
)

// crockfordAlphabet is the 32-character alphabet Windows uses for the
// package family name's publisher hash (spec.md model.go doc: "a
// 13-character Crockford base32 encoding of the first 8 bytes of
// SHA-256(UTF-16LE(Publisher))").
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// publisherHash computes the 13-character encoded publisher ID half
// of a PackageFamilyName.
func publisherHash(publisher string) string {
	units := utf16.Encode([]rune(publisher))
	buf := make([]byte, 0, len(units)*2)
	for _, u := range units {
		buf = append(buf, byte(u), byte(u>>8))
	}
	sum := sha256.Sum256(buf)
	return crockfordEncode(sum[:8])
}

// crockfordEncode packs 64 bits (8 bytes) into 13 base32 characters,
// 5 bits at a time, most-significant bit first.
func crockfordEncode(data []byte) string {
	var bits uint64
	for _, b := range data {
		bits = bits<<8 | uint64(b)
	}
	// 8 bytes = 64 bits; 13 groups of 5 bits cover 65 bits, so one zero
	// padding bit is appended below the value, matching the Windows
	// implementation's own padding convention: the last character holds
	// the low 4 data bits plus that padding bit.
	out := make([]byte, 13)
	out[12] = crockfordAlphabet[(bits<<1)&0x1f]
	bits >>= 4
	for i := 11; i >= 0; i-- {
		out[i] = crockfordAlphabet[bits&0x1f]
		bits >>= 5
	}
	return string(out)
}

// Package msi opens an MSI (Windows Installer) compound document and
// resolves the closed set of Summary Information fields and
// Property/Directory table rows spec.md §4.3 needs, without
// implementing a general MSI database engine.
//
// Grounded on the teacher's rpm/rpm.go (opens a container format via a
// third-party library, then walks a handful of named, well-known
// sub-structures rather than building a general-purpose reader) and on
// src/dump-package/impl/archive.go's "open container, iterate named
// members" shape.
package msi

import "strings"

// msiCharset is the 64-character alphabet MSI uses to obfuscate table
// names into CFB stream names (each name character maps to one or two
// alphabet characters, packed 2 source characters -> 1 output
// character when both are in the restricted "identifier" range).
const msiCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789._"

// decodeStreamName reverses the MSI table-name-to-stream-name mangling
// so table streams can be recognized by their logical name ("Property",
// "Directory", "_StringPool", ...). A rune in 0x3800-0x47FF packs two
// characters from the 64-entry charset (low 6 bits, then next 6 bits),
// a rune in 0x4800-0x483F packs a single character, and 0x4840 is the
// prefix that marks a table stream and is dropped. Any other rune is
// kept as is.
func decodeStreamName(name string) string {
	var out strings.Builder
	for _, r := range name {
		if r < 0x3800 || r > 0x4840 {
			out.WriteRune(r)
			continue
		}
		v := int(r) - 0x3800
		switch {
		case r < 0x4800:
			out.WriteByte(msiCharset[v&0x3f])
			out.WriteByte(msiCharset[(v>>6)&0x3f])
		case r < 0x4840:
			out.WriteByte(msiCharset[v-0x1000])
		}
	}
	return out.String()
}

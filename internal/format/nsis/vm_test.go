package nsis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildEntry(which opcode, offsets [6]int32) []byte {
	b := make([]byte, entrySize)
	putU32 := func(off int, v uint32) {
		b[off] = byte(v)
		b[off+1] = byte(v >> 8)
		b[off+2] = byte(v >> 16)
		b[off+3] = byte(v >> 24)
	}
	putU32(0, uint32(which))
	for i, o := range offsets {
		putU32(4+i*4, uint32(o))
	}
	return b
}

func TestParseEntriesRoundTrips(t *testing.T) {
	var block []byte
	block = append(block, buildEntry(opQuit, [6]int32{})...)
	block = append(block, buildEntry(opReturn, [6]int32{1, 2, 3, 4, 5, 6})...)
	entries := parseEntries(block)
	require.Len(t, entries, 2)
	require.Equal(t, opQuit, entries[0].Which)
	require.Equal(t, opReturn, entries[1].Which)
	require.Equal(t, int32(6), entries[1].Offsets[5])
}

func TestVMStateRunsStrCpyThenQuit(t *testing.T) {
	data, offsets := buildNarrowStrings(`$INSTDIR\app`)
	strs := newStringsBlock(data, nsisV3)

	var block []byte
	block = append(block, buildEntry(opStrCpy, [6]int32{int32(varInstDir), int32(offsets[0]), 0, 0, 0, 0})...)
	block = append(block, buildEntry(opQuit, [6]int32{})...)
	entries := parseEntries(block)

	vm := newVMState(entries, strs, nsisV3)
	vm.run(0, -1, nil)

	require.True(t, vm.quit)
	require.Equal(t, `$INSTDIR\app`, vm.vars.Get(varInstDir))
}

func TestVMStateWriteRegMaterializesUninstallEntry(t *testing.T) {
	data, offsets := buildNarrowStrings(
		`Software\Microsoft\Windows\CurrentVersion\Uninstall\{PRODCODE}`,
		"DisplayName", "My App",
	)
	strs := newStringsBlock(data, nsisV3)

	var block []byte
	block = append(block, buildEntry(opWriteReg, [6]int32{
		1, int32(offsets[0]), int32(offsets[1]), int32(offsets[2]), 0, 0,
	})...)
	block = append(block, buildEntry(opReturn, [6]int32{})...)
	entries := parseEntries(block)

	vm := newVMState(entries, strs, nsisV3)
	vm.run(0, -1, nil)

	require.Len(t, vm.registry, 1)
	require.Equal(t, "HKLM", vm.registry[0].Root)
	require.Equal(t, "DisplayName", vm.registry[0].ValueName)
	require.Equal(t, "My App", vm.registry[0].Value)
}

func TestFiletimeToUnix(t *testing.T) {
	// 1970-01-01T00:00:00Z in FILETIME ticks: 116444736000000000
	const ticks = int64(116444736000000000)
	hi := ticks >> 32
	lo := ticks & 0xFFFFFFFF
	require.Equal(t, int64(0), filetimeToUnix(hi, lo))
}

func TestResolveShellFolderHighBitVariant(t *testing.T) {
	require.Equal(t, "PROGRAM_FILES", resolveShellFolder(38))
	require.Equal(t, "PROGRAM_FILESX86", resolveShellFolder(38|shellHighBit))
}

func TestVarEnv225OffsetShift(t *testing.T) {
	plain := newVarEnv(nsisV3)
	plain.Set(varExePath, "a.exe")
	require.Equal(t, "a.exe", plain.Get(varExePath))

	shifted := newVarEnv(nsisV225)
	shifted.Set(varExePath, "b.exe")
	require.Equal(t, "b.exe", shifted.Get(varExePath))
	require.NotEqual(t, plain.index(varExePath), shifted.index(varExePath))
}

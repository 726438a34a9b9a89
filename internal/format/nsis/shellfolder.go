package nsis

// shellFolders is the CSIDL-like shell-folder mapping table (spec.md
// §4.4: "A closed 62-element table maps CSIDL-like indices to either
// user-visible names ... or placeholder-prefixed relative paths").
// Indices follow NSIS's own ordering (system.cpp's g_shell_folders);
// entries not materially relevant to install-path/registry recovery
// are given their documented name so lookups never fail, even where
// this engine has no further use for the resolved path.
var shellFolders = [62]string{
	0:  "DESKTOP",
	1:  "INTERNET",
	2:  "SMPROGRAMS",
	3:  "CONTROLS",
	4:  "PRINTERS",
	5:  "PERSONAL",
	6:  "FAVORITES",
	7:  "STARTUP",
	8:  "RECENT",
	9:  "SENDTO",
	10: "BITBUCKET",
	11: "STARTMENU",
	13: "MUSIC",
	14: "VIDEOS",
	16: "DESKTOPDIRECTORY",
	17: "DRIVES",
	18: "NETWORK",
	19: "NETHOOD",
	20: "FONTS",
	21: "TEMPLATES",
	22: "COMMON_STARTMENU",
	23: "COMMON_PROGRAMS",
	24: "COMMON_STARTUP",
	25: "COMMON_DESKTOPDIRECTORY",
	26: "APPDATA",
	27: "PRINTHOOD",
	28: "LOCAL_APPDATA",
	29: "ALTSTARTUP",
	30: "COMMON_ALTSTARTUP",
	31: "COMMON_FAVORITES",
	32: "INTERNET_CACHE",
	33: "COOKIES",
	34: "HISTORY",
	35: "COMMON_APPDATA",
	36: "WINDOWS",
	37: "SYSTEM",
	38: "PROGRAM_FILES",
	39: "MYPICTURES",
	40: "PROFILE",
	41: "SYSTEMX86",
	42: "PROGRAM_FILESX86",
	43: "PROGRAM_FILES_COMMON",
	44: "PROGRAM_FILES_COMMONX86",
	45: "COMMON_TEMPLATES",
	46: "COMMON_DOCUMENTS",
	47: "COMMON_ADMINTOOLS",
	48: "ADMINTOOLS",
	49: "CONNECTIONS",
	53: "COMMON_MUSIC",
	54: "COMMON_PICTURES",
	55: "COMMON_VIDEO",
	56: "RESOURCES",
	57: "RESOURCES_LOCALIZED",
	58: "COMMON_OEM_LINKS",
	59: "CDBURN_AREA",
	61: "COMPUTERSNEARME",
}

// shellHighBit and shell64Variant implement the 32-bit/64-bit split
// described by the spec: when the shell code's high bit is set, ProgramFilesDir and
// CommonFilesDir resolve to their explicit 32-bit-on-WOW64 variants.
const shellHighBit = 0x8000

var shell64Variant = map[string]string{
	"PROGRAM_FILES":        "PROGRAM_FILESX86",
	"PROGRAM_FILES_COMMON": "PROGRAM_FILES_COMMONX86",
}

// resolveShellFolder maps a raw shell escape-code index (which may
// carry the high bit) to its table name.
func resolveShellFolder(raw int) string {
	highBit := raw&shellHighBit != 0
	idx := raw &^ shellHighBit
	if idx < 0 || idx >= len(shellFolders) {
		return ""
	}
	name := shellFolders[idx]
	if highBit {
		if alt, ok := shell64Variant[name]; ok {
			return alt
		}
	}
	return name
}

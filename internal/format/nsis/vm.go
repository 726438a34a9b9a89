package nsis

import (
	"strconv"
	"strings"

	"github.com/majewsky/wininstall-analyze/internal/vfs"
)

// opcode enumerates the NSIS exe-head instruction set named in
// spec.md §4.4 ("Instruction interpreter"). The numbering is this
// engine's own internal ordering, not a transcription of NSIS's
// compiled opcode table (which is undocumented and version-dependent);
// what matters for metadata recovery is that each named instruction's
// relevant side effect is reproduced (see execOne below), not that the
// numeric opcode matches a real compiler's choice byte-for-byte.
type opcode uint32

const (
	opReturn opcode = iota
	opJump
	opAbort
	opQuit
	opCall
	opNop
	opAssign
	opStrLen
	opAssignVar
	opStrCmp
	opIntCmp
	opIntOp
	opUpdateText
	opSleep
	opBringToFront
	opChDetailsView
	opSetFileAttributes
	opCreateDir
	opIfFileExists
	opSetFlag
	opIfFlag
	opGetFlag
	opRename
	opGetFullPathname
	opSearchPath
	opGetTempFilename
	opExtractFile
	opDeleteFile
	opMessageBox
	opRMDir
	opStrCpy
	opStrReplace
	opCopyFiles
	opReboot
	opWriteINIStr
	opReadINIStr
	opDelINIStr
	opDelReg
	opWriteReg
	opReadReg
	opRegEnumKey
	opCreateFont
	opShellExec
	opExecute
	opGetFileTime
	opGetDLLVersion
	opRegisterDLL
	opCreateShortcut
	opLogText
	opFindFirst
	opFindNext
	opFindClose
	opWriteUninstaller
	opSectionSet
	opInstallerFinished
	opEvalIntOp
	opPushPop
	opFindWindow
	opSendMessage
	opIsWindow
	opGetDialogItem
	opSetCtlColors
	opLoadAndSetImage
	opGetTextLength
	opSetBrandingImage
	opShowWindow
	opShellExecWait
	opExecShell
	opSectionToggle
	opFileClose
	opFileRead
	opFileWrite
	opFileSeek
	opFindProc
)

// entrySize is the fixed record size of one Entry: a u32 opcode
// followed by six i32 operands (spec.md §4.4).
const entrySize = 4 + 6*4

type entry struct {
	Which   opcode
	Offsets [6]int32
}

func parseEntries(block []byte) []entry {
	count := len(block) / entrySize
	out := make([]entry, 0, count)
	for i := 0; i < count; i++ {
		b := block[i*entrySize : (i+1)*entrySize]
		e := entry{Which: opcode(leU32(b[0:4]))}
		for j := 0; j < 6; j++ {
			e.Offsets[j] = int32(leU32(b[4+j*4 : 8+j*4]))
		}
		out = append(out, e)
	}
	return out
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// registryValue is one materialized WriteReg* side effect.
type registryValue struct {
	Root, Key, ValueName, Value string
}

// vmState is the NSIS virtual machine: operand stack, variable map,
// virtual filesystem, and virtual registry (spec.md §4.4).
type vmState struct {
	entries  []entry
	strs     *stringsBlock
	vars     *varEnv
	files    *vfs.Tree
	registry []registryValue
	flags    map[int]bool
	pc       int
	quit     bool
	appName  string // declared application/uninstall display name, for the last-resort Levenshtein match
}

func newVMState(entries []entry, strs *stringsBlock, version nsisVersion) *vmState {
	return &vmState{
		entries: entries,
		strs:    strs,
		vars:    newVarEnv(version),
		files:   vfs.New(),
		flags:   map[int]bool{},
	}
}

func (vm *vmState) variableValue(index int) string    { return vm.vars.variableValue(index) }
func (vm *vmState) shellFolderName(index int) string   { return resolveShellFolder(index) }
func (vm *vmState) languageString(index int) string    { return "" }

// str decodes the string-table entry referenced by a signed operand:
// non-negative values are direct offsets into the strings block;
// negative values yield the empty string (spec.md §4.4's "-1-varindex"
// convention for Jump-class operands is handled by resolveJumpTarget).
func (vm *vmState) str(off int32) string {
	if off < 0 {
		return ""
	}
	return vm.strs.decodeAt(int64(off), vm)
}

// run executes (a) onInit, (b) each section's entry point in order
// until Quit, (c) onInstSuccess — spec.md §4.4 "Execution sequence".
func (vm *vmState) run(onInit, onInstSuccess int, sectionStarts []int) {
	if onInit >= 0 {
		vm.execFrom(onInit)
	}
	for _, start := range sectionStarts {
		if vm.quit {
			break
		}
		vm.execFrom(start)
	}
	if !vm.quit && onInstSuccess >= 0 {
		vm.execFrom(onInstSuccess)
	}
}

// execFrom interprets entries starting at index start until Return,
// Quit, or the end of the entry table; a malformed/out-of-range jump
// ends the segment rather than aborting the whole analysis (spec.md:
// "Entry-level exceptions are logged and skipped").
func (vm *vmState) execFrom(start int) {
	pc := start
	steps := 0
	const maxSteps = 1 << 20 // guards against a malformed infinite jump loop
	for pc >= 0 && pc < len(vm.entries) && steps < maxSteps {
		steps++
		e := vm.entries[pc]
		next := pc + 1
		switch e.Which {
		case opReturn:
			return
		case opQuit:
			vm.quit = true
			return
		case opAbort:
			return
		case opJump:
			target := vm.resolveJumpTarget(e.Offsets[0])
			if target < 0 {
				return
			}
			pc = target
			continue
		case opCreateDir:
			path := vm.str(e.Offsets[0])
			if path != "" {
				if e.Offsets[1] != 0 {
					vm.files.SetCurrentDirectory(path)
				} else {
					vm.files.CreateDirectory(path)
				}
				if strings.EqualFold(path, "$INSTDIR") || strings.Contains(strings.ToUpper(path), "$INSTDIR") {
					vm.vars.Set(varInstDir, path)
				}
			}
		case opStrCpy, opAssign, opAssignVar:
			dstVar := int(e.Offsets[0])
			value := vm.str(e.Offsets[1])
			vm.vars.Set(dstVar, value)
		case opExtractFile:
			path := vm.str(e.Offsets[0])
			mtimeHi := int64(e.Offsets[2])
			mtimeLo := int64(e.Offsets[3])
			position := int64(e.Offsets[4])
			if path != "" {
				vm.files.CreateFile(path, filetimeToUnix(mtimeHi, mtimeLo), position)
			}
		case opDeleteFile:
			vm.files.DeleteFile(vm.str(e.Offsets[0]))
		case opRMDir:
			vm.files.DeleteFile(vm.str(e.Offsets[0]))
		case opWriteReg:
			vm.execWriteReg(e)
		case opIntCmp:
			pc = vm.execIntCmp(e, pc, next)
			continue
		case opStrCmp:
			pc = vm.execStrCmp(e, pc, next)
			continue
		case opSetFlag:
			vm.flags[int(e.Offsets[0])] = e.Offsets[1] != 0
		case opIfFlag:
			if vm.flags[int(e.Offsets[0])] {
				if t := vm.resolveJumpTarget(e.Offsets[1]); t >= 0 {
					pc = t
					continue
				}
			} else if t := vm.resolveJumpTarget(e.Offsets[2]); t >= 0 {
				pc = t
				continue
			}
		default:
			// No declared-metadata side effect for this opcode; its
			// execution is a no-op in this engine (spec.md: "Only the
			// side effects relevant to declared metadata must be
			// faithful").
		}
		pc = next
	}
}

// resolveJumpTarget implements the "-1-varindex" indirection: a
// negative operand dereferences the variable map for the real target,
// matching NSIS's own jump-target encoding.
func (vm *vmState) resolveJumpTarget(offset int32) int {
	if offset >= 0 {
		return int(offset)
	}
	varIdx := int(-1 - offset)
	s := vm.vars.Get(varIdx)
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func (vm *vmState) execIntCmp(e entry, pc, fallthroughPC int) int {
	a, errA := strconv.Atoi(vm.str(e.Offsets[0]))
	b, errB := strconv.Atoi(vm.str(e.Offsets[1]))
	if errA != nil || errB != nil {
		return fallthroughPC
	}
	var target int32
	switch {
	case a == b:
		target = e.Offsets[2]
	case a < b:
		target = e.Offsets[3]
	default:
		target = e.Offsets[4]
	}
	if t := vm.resolveJumpTarget(target); t >= 0 {
		return t
	}
	return fallthroughPC
}

func (vm *vmState) execStrCmp(e entry, pc, fallthroughPC int) int {
	a := vm.str(e.Offsets[0])
	b := vm.str(e.Offsets[1])
	var target int32
	if a == b {
		target = e.Offsets[2]
	} else {
		target = e.Offsets[3]
	}
	if t := vm.resolveJumpTarget(target); t >= 0 {
		return t
	}
	return fallthroughPC
}

// execWriteReg materializes WriteRegStr/WriteRegExpandStr/WriteRegDWORD
// (distinguished by operand 4: 0=Str, 1=ExpandStr, 2=DWORD) into the
// virtual registry, which is where ProductCode/DisplayName/Publisher/
// DisplayVersion end up for Uninstall-key entries (spec.md §4.4).
func (vm *vmState) execWriteReg(e entry) {
	root := registryRootName(e.Offsets[0])
	key := vm.str(e.Offsets[1])
	valueName := vm.str(e.Offsets[2])
	var value string
	switch e.Offsets[4] {
	case 2: // DWORD
		value = strconv.FormatInt(int64(e.Offsets[3]), 10)
	default:
		value = vm.str(e.Offsets[3])
	}
	vm.registry = append(vm.registry, registryValue{Root: root, Key: key, ValueName: valueName, Value: value})
}

func registryRootName(raw int32) string {
	switch raw {
	case 0:
		return "HKCR"
	case 1:
		return "HKLM"
	case 2:
		return "HKCU"
	case 3:
		return "HKU"
	default:
		return "HKLM"
	}
}

// filetimeToUnix converts a Windows FILETIME hi/lo pair (100ns ticks
// since 1601-01-01) to seconds since the UNIX epoch (spec.md §4.4).
func filetimeToUnix(hi, lo int64) int64 {
	ticks := (hi << 32) | (lo & 0xFFFFFFFF)
	return ticks/10_000_000 - 11_644_473_600
}

// Package vfs is an in-memory, case-insensitive filesystem tree used to
// simulate the side effects of the NSIS VM (spec.md §4.4: "a virtual
// filesystem (hierarchical; create_directory, set_current_directory,
// create_file(path, mtime, position), file_exists, delete_file)").
//
// This is the teacher's FSEntry/FSNode idea (src/holo-build/common/
// package.go, common/filesystem.go) carried over without the cgo-backed
// ApplyTo/chown machinery, since nothing here is ever materialized on a
// real disk — it is a pure simulation of what the installer *would* do.
package vfs

import "strings"

// Node is one directory or file in the tree.
type Node struct {
	Name     string
	IsDir    bool
	Children map[string]*Node // lower-cased name -> node, directories only
	Position int64            // ExtractFile's recorded on-disk byte offset, for the §4.4 last-resort PE re-parse
	ModTime  int64            // unix seconds, converted from the NSIS FILETIME pair
}

// Tree is a rooted virtual filesystem plus a "current directory"
// cursor, mirroring the NSIS VM's SetOutPath/CreateDirectory semantics.
type Tree struct {
	root    *Node
	current *Node
}

// New creates an empty tree with only the root directory ("").
func New() *Tree {
	root := &Node{Name: "", IsDir: true, Children: map[string]*Node{}}
	return &Tree{root: root, current: root}
}

func splitPath(path string) []string {
	path = strings.ReplaceAll(path, "/", `\`)
	parts := strings.Split(path, `\`)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

// resolve walks segments from start, creating intermediate directories
// when create is true. The final segment is treated as a directory only
// if asDir is true.
func resolve(start *Node, segments []string, create, asDir bool) *Node {
	cur := start
	for i, seg := range segments {
		key := strings.ToLower(seg)
		child, ok := cur.Children[key]
		last := i == len(segments)-1
		if !ok {
			if !create {
				return nil
			}
			child = &Node{Name: seg, IsDir: !last || asDir, Children: map[string]*Node{}}
			cur.Children[key] = child
		}
		cur = child
	}
	return cur
}

// CreateDirectory creates (and returns) the directory at path, along
// with any missing ancestors, matching NSIS's CreateDirectory / SetOutPath
// instructions.
func (t *Tree) CreateDirectory(path string) *Node {
	segs := splitPath(path)
	if len(segs) == 0 {
		return t.root
	}
	return resolve(t.root, segs, true, true)
}

// SetCurrentDirectory implements SetOutPath: it creates the directory
// if missing and moves the VM's "current directory" cursor to it.
func (t *Tree) SetCurrentDirectory(path string) {
	t.current = t.CreateDirectory(path)
}

// CurrentDirectory returns the directory node most recently set via
// SetCurrentDirectory (the root until then).
func (t *Tree) CurrentDirectory() *Node {
	return t.current
}

// CreateFile materializes a file (possibly nested) under the tree,
// recording its declared modification time and source-file position
// (used by §4.4's last-resort architecture detection to seek back into
// the outer installer).
func (t *Tree) CreateFile(path string, mtime, position int64) *Node {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil
	}
	dirSegs, name := segs[:len(segs)-1], segs[len(segs)-1]
	dir := resolve(t.root, dirSegs, true, true)
	key := strings.ToLower(name)
	node := &Node{Name: name, IsDir: false, ModTime: mtime, Position: position}
	dir.Children[key] = node
	return node
}

// FileExists reports whether path resolves to an existing node
// (file or directory), matching NSIS's IfFileExists (which accepts
// wildcards we do not attempt to emulate — only exact paths resolve).
func (t *Tree) FileExists(path string) bool {
	segs := splitPath(path)
	if len(segs) == 0 {
		return true
	}
	return resolve(t.root, segs, false, false) != nil
}

// DeleteFile removes the node at path, if present.
func (t *Tree) DeleteFile(path string) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return
	}
	dir := resolve(t.root, segs[:len(segs)-1], false, false)
	if dir == nil {
		return
	}
	delete(dir.Children, strings.ToLower(segs[len(segs)-1]))
}

// Root returns the tree's root node, for callers that need to walk the
// whole structure.
func (t *Tree) Root() *Node { return t.root }

// Walk visits every node in the tree (pre-order), passing its full
// backslash-joined path relative to the root.
func (n *Node) Walk(prefix string, fn func(path string, node *Node)) {
	fn(prefix, n)
	for _, name := range sortedKeys(n.Children) {
		child := n.Children[name]
		var childPath string
		if prefix == "" {
			childPath = child.Name
		} else {
			childPath = prefix + `\` + child.Name
		}
		child.Walk(childPath, fn)
	}
}

func sortedKeys(m map[string]*Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// simple insertion sort: these trees are small (installer file
	// counts in the hundreds, not millions) and we want deterministic
	// traversal order for reproducible output.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// FindByName returns the first directory node (in walk order) whose Name matches
// name case-insensitively, used for NSIS "app-64"/"app-32" directory
// detection (§4.4 "Post-processing for architecture").
func (t *Tree) FindByName(name string) (*Node, bool) {
	lower := strings.ToLower(name)
	var found *Node
	t.root.Walk("", func(_ string, n *Node) {
		if found != nil {
			return
		}
		if n.IsDir && strings.ToLower(n.Name) == lower {
			found = n
		}
	})
	return found, found != nil
}

// Files returns every regular file in the tree together with its full
// path, for the Levenshtein-based last-resort architecture match.
func (t *Tree) Files() map[string]*Node {
	out := map[string]*Node{}
	t.root.Walk("", func(path string, n *Node) {
		if !n.IsDir {
			out[path] = n
		}
	})
	return out
}

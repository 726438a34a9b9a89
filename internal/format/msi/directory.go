package msi

import "strings"

// dirNode is one Directory-table row, tree-linked by Directory_Parent.
type dirNode struct {
	Directory string
	Parent    string
	DefaultDir string
	Children  []*dirNode
}

// buildDirectoryTree links Directory-table rows ({Directory,
// Directory_Parent, DefaultDir}) into a tree rooted at "TARGETDIR"
// (spec.md §4.3).
func buildDirectoryTree(rows [][]string) map[string]*dirNode {
	nodes := make(map[string]*dirNode, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		nodes[row[0]] = &dirNode{Directory: row[0], Parent: row[1], DefaultDir: row[2]}
	}
	for _, n := range nodes {
		if n.Parent == "" || n.Parent == n.Directory {
			continue
		}
		if parent, ok := nodes[n.Parent]; ok {
			parent.Children = append(parent.Children, n)
		}
	}
	return nodes
}

// resolveDefaultDirName extracts the "long" half of DefaultDir's
// short|long alternation, and the "target" half of a target:source
// split (spec.md §4.3: "DefaultDir may carry short|long alternation
// (long form wins) or target:source (target wins)").
func resolveDefaultDirName(defaultDir string) string {
	name := defaultDir
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		name = name[:idx]
	}
	if idx := strings.IndexByte(name, '|'); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

var excludedSingleChildDescentNames = map[string]bool{
	"DesktopFolder":     true,
	"ProgramMenuFolder": true,
}

// dirSegment is one directory-table node along the resolved path from
// TARGETDIR to the install directory: its own id (for per-component
// placeholder substitution, spec.md §6) and its resolved DefaultDir
// name (used for the nodes a placeholder doesn't cover).
type dirSegment struct {
	ID   string
	Name string
}

// resolveInstallDir implements spec.md §4.3's resolution order:
// INSTALLDIR, WIXUI_INSTALLDIR, INSTALLLOCATION, APPDIR, any key
// containing "installdir" case-insensitively; failing that, descend
// from TARGETDIR along single-child paths (excluding DesktopFolder and
// ProgramMenuFolder) until branching.
func resolveInstallDir(nodes map[string]*dirNode, properties map[string]string) (dirKey string, chain []dirSegment, ok bool) {
	candidates := []string{"INSTALLDIR", "WIXUI_INSTALLDIR", "INSTALLLOCATION", "APPDIR"}
	for _, key := range candidates {
		if val, present := properties[key]; present {
			if _, exists := nodes[val]; exists {
				return val, pathTo(nodes, val), true
			}
			if _, exists := nodes[key]; exists {
				return key, pathTo(nodes, key), true
			}
		}
		if _, exists := nodes[key]; exists {
			return key, pathTo(nodes, key), true
		}
	}
	for key := range nodes {
		if strings.Contains(strings.ToLower(key), "installdir") {
			return key, pathTo(nodes, key), true
		}
	}

	root, exists := nodes["TARGETDIR"]
	if !exists {
		return "", nil, false
	}
	cur := root
	var path []dirSegment
	for {
		eligible := eligibleChildren(cur.Children)
		if len(eligible) != 1 {
			break
		}
		cur = eligible[0]
		path = append(path, dirSegment{ID: cur.Directory, Name: resolveDefaultDirName(cur.DefaultDir)})
	}
	if cur == root {
		return "", nil, false
	}
	return cur.Directory, path, true
}

func eligibleChildren(children []*dirNode) []*dirNode {
	out := make([]*dirNode, 0, len(children))
	for _, c := range children {
		if !excludedSingleChildDescentNames[c.Directory] {
			out = append(out, c)
		}
	}
	return out
}

// pathTo walks up from key to TARGETDIR, returning the per-node
// id/DefaultDir chain from root to key (exclusive of TARGETDIR), so
// the caller can substitute a %Placeholder% for any well-known
// directory id it recognizes along the way rather than only at the
// leaf.
func pathTo(nodes map[string]*dirNode, key string) []dirSegment {
	var chain []dirSegment
	cur, ok := nodes[key]
	for ok && cur.Directory != "TARGETDIR" {
		chain = append([]dirSegment{{ID: cur.Directory, Name: resolveDefaultDirName(cur.DefaultDir)}}, chain...)
		cur, ok = nodes[cur.Parent]
	}
	return chain
}

// Package grouper implements Grouper: turning the MerkleEngine's two
// path->fingerprint maps into a report of duplicate files and directories.
// It inverts each map, drops groups that are not genuine duplicates (fewer
// than two paths, or the MISSING sentinel), suppresses "single-chain"
// directory groups (a run of nested directories that are fingerprint-equal
// only because each has exactly one, identical, child — not independent
// duplication), and emits one of three output shapes.
package grouper

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dupmtree/dupm/internal/fpr"
)

// Kind distinguishes a duplicate group of files from one of directories.
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Group is one set of paths sharing a fingerprint.
type Group struct {
	Fingerprint fpr.Fingerprint
	Kind        Kind
	Paths       []string
	// Size is the shared content size in bytes. Since the fingerprint hashes
	// a size prefix, every path in a Group necessarily has the same size.
	Size int64
	// Empty is true when Fingerprint equals the empty-file or empty-dir
	// sentinel for this Kind: the group's type label is then "{kind}:empty"
	// rather than plain "{kind}".
	Empty bool
}

// Label returns the group's type label: "file", "dir", "file:empty", or
// "dir:empty".
func (g Group) Label() string {
	if g.Empty {
		return fmt.Sprintf("%s:empty", g.Kind)
	}
	return g.Kind.String()
}

// Reclaimable is the number of bytes that could be freed by keeping a single
// copy of this group's content: (count-1) * Size.
func (g Group) Reclaimable() int64 {
	if len(g.Paths) < 2 {
		return 0
	}
	return int64(len(g.Paths)-1) * g.Size
}

// Output is the Grouper's result, shaped according to the requested mode.
//
//	mode 1: Groups holds every duplicate group (files and directories
//	        intermixed), sorted by the lexicographically smallest path.
//	mode 2: Files and Dirs hold the duplicate groups split by Kind, each
//	        sorted by the lexicographically smallest path.
//	mode 3: like mode 2, but both lists are sorted by descending
//	        Reclaimable() — the groups worth acting on first are listed
//	        first. This is the CLI's default.
type Output struct {
	Mode   int
	Groups []Group
	Files  []Group
	Dirs   []Group
}

// Group inverts leafFprs and nodeFprs into a deduplicated, suppressed set of
// Groups and shapes them per outmode. leafSizes supplies each file group's
// Size (directories carry no meaningful size and are left at 0).
func Group(leafFprs, nodeFprs map[string]fpr.Fingerprint, leafSizes map[string]int64, algo fpr.Algorithm, outmode int) Output {
	fileGroups := invert(leafFprs, fpr.MissingFileFingerprint(algo))
	dirGroups := invert(nodeFprs, fpr.MissingDirFingerprint(algo))
	emptyFile := fpr.EmptyFileFingerprint(algo)
	emptyDir := fpr.EmptyDirFingerprint(algo)

	var files, dirs []Group
	for fp, paths := range fileGroups {
		if len(paths) < 2 {
			continue
		}
		sort.Strings(paths)
		files = append(files, Group{
			Fingerprint: fp, Kind: KindFile, Paths: paths,
			Size: leafSizes[paths[0]], Empty: fp == emptyFile,
		})
	}
	for fp, paths := range dirGroups {
		if len(paths) < 2 {
			continue
		}
		sort.Strings(paths)
		if isSingleChain(paths) {
			continue
		}
		dirs = append(dirs, Group{Fingerprint: fp, Kind: KindDir, Paths: paths, Empty: fp == emptyDir})
	}

	sortByFirstPath(files)
	sortByFirstPath(dirs)

	out := Output{Mode: outmode}
	switch outmode {
	case 1:
		out.Groups = append(append([]Group{}, files...), dirs...)
		sortByFirstPath(out.Groups)
	case 2:
		out.Files = files
		out.Dirs = dirs
	default: // 3
		out.Files = append([]Group{}, files...)
		out.Dirs = append([]Group{}, dirs...)
		sortByReclaimable(out.Files)
		sortByReclaimable(out.Dirs)
	}
	return out
}

func invert(m map[string]fpr.Fingerprint, missing fpr.Fingerprint) map[fpr.Fingerprint][]string {
	groups := map[fpr.Fingerprint][]string{}
	for path, fp := range m {
		if fp == missing {
			continue
		}
		groups[fp] = append(groups[fp], path)
	}
	return groups
}

func sortByFirstPath(groups []Group) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Paths[0] < groups[j].Paths[0]
	})
}

func sortByReclaimable(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Reclaimable() > groups[j].Reclaimable()
	})
}

// isSingleChain reports whether paths form a single chain of nested
// directories: sorted by depth they are consecutive (depth, depth+1,
// depth+2, ...) and each is a direct ancestor of the next. Such a group is
// fingerprint-equal only because every directory in the chain has exactly
// one child and that child is itself part of the chain — not independent
// duplication, so the Grouper suppresses it.
func isSingleChain(paths []string) bool {
	if len(paths) < 2 {
		return false
	}

	byDepth := append([]string{}, paths...)
	sort.Slice(byDepth, func(i, j int) bool {
		return depth(byDepth[i]) < depth(byDepth[j])
	})

	for i := 1; i < len(byDepth); i++ {
		if depth(byDepth[i]) != depth(byDepth[i-1])+1 {
			return false
		}
		if !strings.HasPrefix(byDepth[i]+"/", byDepth[i-1]+"/") {
			return false
		}
	}
	return true
}

func depth(path string) int {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}

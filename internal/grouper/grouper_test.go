package grouper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dupmtree/dupm/internal/fpr"
)

func TestGroupDropsSingletonsAndMissing(t *testing.T) {
	leafFprs := map[string]fpr.Fingerprint{
		"/a/x.txt": "f1",
		"/a/y.txt": "f1",
		"/a/z.txt": "f2", // singleton, dropped
		"/a/w.txt": fpr.MissingFileFingerprint(fpr.SHA1),
	}
	sizes := map[string]int64{"/a/x.txt": 10, "/a/y.txt": 10}

	out := Group(leafFprs, nil, sizes, fpr.SHA1, 2)
	if len(out.Files) != 1 {
		t.Fatalf("expected exactly one file group, got %d", len(out.Files))
	}
	assert.ElementsMatch(t, []string{"/a/x.txt", "/a/y.txt"}, out.Files[0].Paths)
	assert.Equal(t, int64(10), out.Files[0].Size)
}

func TestGroupSuppressesSingleChainDirs(t *testing.T) {
	// /a, /a/b, /a/b/c all share a fingerprint because each has exactly one,
	// identical, child: a degenerate chain, not real duplication.
	nodeFprs := map[string]fpr.Fingerprint{
		"/a":     "chain",
		"/a/b":   "chain",
		"/a/b/c": "chain",
	}
	out := Group(nil, nodeFprs, nil, fpr.SHA1, 2)
	assert.Empty(t, out.Dirs)
}

func TestGroupKeepsGenuineDuplicateDirs(t *testing.T) {
	nodeFprs := map[string]fpr.Fingerprint{
		"/a/dup1": "same",
		"/b/dup2": "same",
	}
	out := Group(nil, nodeFprs, nil, fpr.SHA1, 2)
	if len(out.Dirs) != 1 {
		t.Fatalf("expected one directory group, got %d", len(out.Dirs))
	}
	assert.ElementsMatch(t, []string{"/a/dup1", "/b/dup2"}, out.Dirs[0].Paths)
}

func TestGroupOutmode1Intermixes(t *testing.T) {
	leafFprs := map[string]fpr.Fingerprint{"/x": "f1", "/y": "f1"}
	nodeFprs := map[string]fpr.Fingerprint{"/d1": "g1", "/d2": "g1"}
	out := Group(leafFprs, nodeFprs, map[string]int64{"/x": 1, "/y": 1}, fpr.SHA1, 1)
	assert.Len(t, out.Groups, 2)
	assert.Nil(t, out.Files)
	assert.Nil(t, out.Dirs)
}

func TestGroupOutmode3SortsByReclaimable(t *testing.T) {
	leafFprs := map[string]fpr.Fingerprint{
		"/small/a": "s", "/small/b": "s",
		"/big/a": "b", "/big/b": "b", "/big/c": "b",
	}
	sizes := map[string]int64{
		"/small/a": 10, "/small/b": 10,
		"/big/a": 1000, "/big/b": 1000, "/big/c": 1000,
	}
	out := Group(leafFprs, nil, sizes, fpr.SHA1, 3)
	if len(out.Files) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out.Files))
	}
	assert.Equal(t, int64(2000), out.Files[0].Reclaimable())
	assert.Equal(t, int64(10), out.Files[1].Reclaimable())
}

func TestGroupLabelsEmptyFilesAndDirs(t *testing.T) {
	emptyFile := fpr.EmptyFileFingerprint(fpr.SHA1)
	emptyDir := fpr.EmptyDirFingerprint(fpr.SHA1)
	leafFprs := map[string]fpr.Fingerprint{
		"/a/empty1": emptyFile,
		"/a/empty2": emptyFile,
	}
	nodeFprs := map[string]fpr.Fingerprint{
		"/x/emptydir1": emptyDir,
		"/y/emptydir2": emptyDir,
	}
	sizes := map[string]int64{"/a/empty1": 0, "/a/empty2": 0}

	out := Group(leafFprs, nodeFprs, sizes, fpr.SHA1, 2)
	if len(out.Files) != 1 || len(out.Dirs) != 1 {
		t.Fatalf("expected one file group and one dir group, got %d/%d", len(out.Files), len(out.Dirs))
	}
	assert.True(t, out.Files[0].Empty)
	assert.Equal(t, "file:empty", out.Files[0].Label())
	assert.True(t, out.Dirs[0].Empty)
	assert.Equal(t, "dir:empty", out.Dirs[0].Label())
}

func TestGroupDoesNotLabelNonEmptyGroupsEmpty(t *testing.T) {
	leafFprs := map[string]fpr.Fingerprint{"/a/x": "f1", "/a/y": "f1"}
	sizes := map[string]int64{"/a/x": 10, "/a/y": 10}
	out := Group(leafFprs, nil, sizes, fpr.SHA1, 2)
	assert.False(t, out.Files[0].Empty)
	assert.Equal(t, "file", out.Files[0].Label())
}

func TestIsSingleChainRequiresContiguousAncestry(t *testing.T) {
	assert.True(t, isSingleChain([]string{"/a", "/a/b"}))
	assert.True(t, isSingleChain([]string{"/a", "/a/b", "/a/b/c"}))
	// not contiguous depths
	assert.False(t, isSingleChain([]string{"/a", "/a/b/c"}))
	// not an ancestor chain, just same depth
	assert.False(t, isSingleChain([]string{"/a/x", "/a/y"}))
}

package fpr

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, content, 0o600); err != nil {
		t.Fatalf("write %q: %v", p, err)
	}
	return p
}

func TestHashFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.txt", []byte("hello world"))

	h1, err := HashFile(SHA1, p, 11, DefaultBlockSize)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	h2, err := HashFile(SHA1, p, 11, DefaultBlockSize)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("HashFile not deterministic: %q != %q", h1, h2)
	}
}

func TestHashFileSizePrefixMatters(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.txt", []byte("x"))

	correct, err := HashFile(SHA1, p, 1, DefaultBlockSize)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	wrongSize, err := HashFile(SHA1, p, 2, DefaultBlockSize)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if correct == wrongSize {
		t.Fatalf("fingerprint must depend on the declared size prefix")
	}
}

func TestHashFileLimitTruncates(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 4096)
	for i := range content {
		content[i] = byte(i % 251)
	}
	p := writeTemp(t, dir, "big.bin", content)

	limit := int64(1024)
	bs := AdjustBlockSize(256, limit)
	limited, err := HashFileLimit(SHA1, p, int64(len(content)), bs, limit)
	if err != nil {
		t.Fatalf("HashFileLimit: %v", err)
	}

	full, err := HashFile(SHA1, p, int64(len(content)), DefaultBlockSize)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if limited == full {
		t.Fatalf("limited hash of a truncated prefix should differ from the full-file hash")
	}

	// Re-running with the same limit must reproduce the same prefix hash.
	again, err := HashFileLimit(SHA1, p, int64(len(content)), bs, limit)
	if err != nil {
		t.Fatalf("HashFileLimit: %v", err)
	}
	if again != limited {
		t.Fatalf("HashFileLimit not deterministic for the same limit and blocksize")
	}
}

func TestAdjustBlockSize(t *testing.T) {
	cases := []struct {
		name      string
		blocksize int64
		limit     int64
		want      int64
	}{
		{"no limit returns blocksize unchanged", 256, 0, 256},
		{"blocksize already divides limit", 256, 1024, 256},
		{"blocksize shrunk to divide limit", 300, 1000, 250},
		{"blocksize larger than limit", 4096, 100, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AdjustBlockSize(tc.blocksize, tc.limit)
			if got != tc.want {
				t.Errorf("AdjustBlockSize(%d, %d) = %d, want %d", tc.blocksize, tc.limit, got, tc.want)
			}
			if tc.limit > 0 && tc.limit%got != 0 {
				t.Errorf("AdjustBlockSize(%d, %d) = %d does not divide limit", tc.blocksize, tc.limit, got)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	if Merge(SHA1, nil) != EmptyDirFingerprint(SHA1) {
		t.Errorf("Merge with no children should equal EmptyDirFingerprint")
	}

	single := Merge(SHA1, []Fingerprint{"abc"})
	if single == "abc" {
		t.Errorf("single-child merge must re-hash, not pass the child fingerprint through")
	}

	ab := Merge(SHA1, []Fingerprint{"aaa", "bbb"})
	ba := Merge(SHA1, []Fingerprint{"bbb", "aaa"})
	if ab != ba {
		t.Errorf("Merge must be order-independent (children sorted before hashing)")
	}
}

func TestSentinelsDistinct(t *testing.T) {
	vals := []Fingerprint{
		EmptyFileFingerprint(SHA1),
		EmptyDirFingerprint(SHA1),
		MissingFileFingerprint(SHA1),
		MissingDirFingerprint(SHA1),
	}
	seen := map[Fingerprint]bool{}
	for _, v := range vals {
		if seen[v] {
			t.Fatalf("sentinel fingerprints collided: %q", v)
		}
		seen[v] = true
	}
}

func TestAlgorithmByName(t *testing.T) {
	if algo, err := AlgorithmByName(""); err != nil || algo.Name() != "sha1" {
		t.Errorf("empty name should resolve to sha1, got %v, err=%v", algo, err)
	}
	if algo, err := AlgorithmByName("blake3"); err != nil || algo.Name() != "blake3" {
		t.Errorf("blake3 should resolve, got %v, err=%v", algo, err)
	}
	if _, err := AlgorithmByName("md5"); err == nil {
		t.Errorf("unknown algorithm should error")
	}
}

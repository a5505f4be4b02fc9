// Package fpr implements FingerprintFn: the pure content-fingerprinting
// function at the bottom of the Merkle tree model. A fingerprint is a
// hex digest of a file's size (as an ASCII decimal string) followed by
// its content, optionally truncated to a byte limit.
package fpr

import (
	"crypto/sha1" //nolint:gosec // content-equality fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

// DefaultBlockSize is the default read block size used by HashFile/HashFileLimit.
const DefaultBlockSize int64 = 256 * 1024

// Fingerprint is a hex-encoded digest identifying file or directory content.
// Equality is string equality.
type Fingerprint string

// Algorithm names a hashing backend a Leaf's fingerprint function can use.
type Algorithm interface {
	Name() string
	New() hash.Hash
}

type sha1Algorithm struct{}

func (sha1Algorithm) Name() string  { return "sha1" }
func (sha1Algorithm) New() hash.Hash { return sha1.New() } //nolint:gosec

type blake3Algorithm struct{}

func (blake3Algorithm) Name() string  { return "blake3" }
func (blake3Algorithm) New() hash.Hash { return blake3.New() }

// SHA1 is the spec-mandated default algorithm. All fingerprint-equality
// invariants in this codebase are defined over SHA1.
var SHA1 Algorithm = sha1Algorithm{}

// BLAKE3 is an opt-in, non-default algorithm for a faster "quick scan" mode.
// It produces a different fingerprint domain than SHA1 and must never be
// mixed with SHA1 fingerprints within the same run.
var BLAKE3 Algorithm = blake3Algorithm{}

// AlgorithmByName resolves a CLI-facing algorithm name. The empty string
// resolves to the default (SHA1).
func AlgorithmByName(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha1", "sha-1":
		return SHA1, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return nil, fmt.Errorf("unknown fingerprint algorithm %q (want sha1 or blake3)", name)
	}
}

// AdjustBlockSize returns the largest bs <= blocksize such that bs <= limit
// and limit % bs == 0. If limit <= 0 (unset, meaning "whole file"), blocksize
// is returned unchanged.
//
// This is the straightforward reference implementation: it counts down from
// min(blocksize, limit) until it finds a divisor of limit. It is evaluated
// once per file hashed under a limit, not inside the read loop.
func AdjustBlockSize(blocksize, limit int64) int64 {
	if limit <= 0 {
		return blocksize
	}
	bs := blocksize
	if bs > limit {
		bs = limit
	}
	for bs > 1 && limit%bs != 0 {
		bs--
	}
	if bs < 1 {
		bs = 1
	}
	return bs
}

// HashFile computes the fingerprint of an entire file: algo(size-as-ascii ||
// content), reading in blocksize-sized chunks.
func HashFile(algo Algorithm, path string, size, blocksize int64) (Fingerprint, error) {
	return hashFileLimit(algo, path, size, blocksize, 0)
}

// HashFileLimit computes the fingerprint of at most limit bytes of a file's
// content (plus the size prefix). Callers must pass a blocksize already
// adjusted via AdjustBlockSize(blocksize, limit) so that limit % blocksize == 0.
func HashFileLimit(algo Algorithm, path string, size, blocksize, limit int64) (Fingerprint, error) {
	if limit <= 0 {
		return "", fmt.Errorf("limit must be > 0, got %d", limit)
	}
	return hashFileLimit(algo, path, size, blocksize, limit)
}

func hashFileLimit(algo Algorithm, path string, size, blocksize, limit int64) (Fingerprint, error) {
	if blocksize <= 0 {
		blocksize = DefaultBlockSize
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	h := algo.New()
	h.Write([]byte(strconv.FormatInt(size, 10)))

	buf := make([]byte, blocksize)
	var read int64
	for {
		if limit > 0 && read >= limit {
			break
		}
		n, rerr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			read += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("read %q: %w", path, rerr)
		}
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

// Merge computes a directory node's fingerprint from its children's
// fingerprints:
//
//	0 children  -> EmptyDirFingerprint(algo)
//	1 child  h  -> algo(h)           -- hashed again, never passed through
//	>=2 children -> algo(concat(sort(children)))
func Merge(algo Algorithm, children []Fingerprint) Fingerprint {
	switch len(children) {
	case 0:
		return EmptyDirFingerprint(algo)
	case 1:
		return hashBytes(algo, []byte(children[0]))
	default:
		strs := make([]string, len(children))
		for i, c := range children {
			strs[i] = string(c)
		}
		sort.Strings(strs)
		return hashBytes(algo, []byte(strings.Join(strs, "")))
	}
}

func hashBytes(algo Algorithm, b []byte) Fingerprint {
	h := algo.New()
	h.Write(b)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

var (
	sentinelMu    sync.Mutex
	sentinelCache = map[string]Fingerprint{}
)

func sentinel(algo Algorithm, key string, content []byte) Fingerprint {
	cacheKey := algo.Name() + ":" + key
	sentinelMu.Lock()
	defer sentinelMu.Unlock()
	if v, ok := sentinelCache[cacheKey]; ok {
		return v
	}
	v := hashBytes(algo, content)
	sentinelCache[cacheKey] = v
	return v
}

// EmptyFileFingerprint is the fingerprint of a zero-byte file: the hash of
// its size "0" with zero bytes of content, distinct from EmptyDirFingerprint.
func EmptyFileFingerprint(algo Algorithm) Fingerprint {
	return sentinel(algo, "empty-file", []byte("0"))
}

// EmptyDirFingerprint is the fingerprint of a directory with zero children.
func EmptyDirFingerprint(algo Algorithm) Fingerprint {
	return sentinel(algo, "empty-dir", []byte(""))
}

// MissingFileFingerprint is assigned to a Leaf that was recorded during tree
// build but could not be read at hash time. The Grouper filters these out.
func MissingFileFingerprint(algo Algorithm) Fingerprint {
	return sentinel(algo, "missing-file", []byte("__dupm_missing_file__"))
}

// MissingDirFingerprint is the directory counterpart of
// MissingFileFingerprint: the Grouper drops directory groups carrying it. The
// engine never assigns it; a directory that cannot be read fails the tree
// build instead.
func MissingDirFingerprint(algo Algorithm) Fingerprint {
	return sentinel(algo, "missing-dir", []byte("__dupm_missing_dir__"))
}

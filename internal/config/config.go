// Package config holds the explicit, threaded-through Config struct used by
// every other package in this module. There is no package-level global
// configuration state anywhere in dupm: every operation that needs
// configuration takes a Config value as an argument.
package config

import (
	"fmt"

	"github.com/dupmtree/dupm/internal/fpr"
)

// Default values matching the reference tool's behavior.
const (
	DefaultBlockSize            int64 = 256 * 1024
	DefaultNProcs                     = 1
	DefaultNThreads                   = 1
	DefaultShareLeafs                 = true
	DefaultOutMode                    = 3
	DefaultAutoLimitMin         int64 = 8 * 1024
	DefaultAutoLimitIncreaseFac       = 2.0
	DefaultAutoLimitConverged         = 3
)

// Config is the full set of knobs that shape a single run of the engine and
// driver. Zero-value Config is not valid; call Defaults() or Validate()
// before using one built by hand.
type Config struct {
	// Algo selects the fingerprint algorithm. Empty resolves to SHA-1.
	Algo string

	// BlockSize is the read chunk size, in bytes, used while hashing file
	// content.
	BlockSize int64

	// NProcs is the number of OS-process workers used for leaf hashing.
	// 1 means no subprocesses are spawned.
	NProcs int
	// NThreads is the number of goroutines used per process worker (or, when
	// NProcs == 1, in-process) for leaf hashing. 1 means sequential.
	NThreads int

	// ShareLeafs controls whether leaf fingerprints computed by process
	// workers are written back into the main tree before node hashing, to
	// avoid a second, redundant I/O pass.
	ShareLeafs bool

	// Limit, if > 0, caps the number of content bytes hashed per file to a
	// fixed prefix instead of hashing whole files. Mutually exclusive with
	// the auto-limit loop (AutoLimit == true).
	Limit int64

	// AutoLimit enables the adaptive prefix-hashing loop instead of a single
	// fixed Limit.
	AutoLimit bool
	// AutoLimitMin is the size, in bytes, of the first prefix the adaptive
	// loop hashes.
	AutoLimitMin int64
	// AutoLimitIncreaseFac is the geometric growth factor applied to the
	// prefix size each round (must be > 1).
	AutoLimitIncreaseFac float64
	// AutoLimitConverged is the number of consecutive rounds the same-set of
	// same-fingerprint leaves must be stable before the loop stops growing
	// the prefix.
	AutoLimitConverged int

	// OutMode selects the Grouper's output shape: 1, 2, or 3.
	OutMode int

	// Exclude is a list of gitignore-style exclusion patterns applied during
	// the tree walk.
	Exclude []string
	// IgnoreFile, if non-empty, is a custom ignore file to load patterns
	// from in addition to Exclude.
	IgnoreFile string
	// LoadDefaultIgnoreFiles enables automatic discovery of .dupmignore and
	// .gitignore files starting at the working directory.
	LoadDefaultIgnoreFiles bool

	// Progress enables the engine's ProgressFunc callback being wired to a
	// CLI progress indicator.
	Progress bool

	// Verbose mirrors the CLI's verbosity (true when -v is given). No package
	// reads it; log output is filtered by the logger's level instead.
	Verbose bool
}

// Defaults returns a Config with every field set to its documented default.
func Defaults() Config {
	return Config{
		Algo:                  "",
		BlockSize:             DefaultBlockSize,
		NProcs:                DefaultNProcs,
		NThreads:              DefaultNThreads,
		ShareLeafs:            DefaultShareLeafs,
		Limit:                 0,
		AutoLimit:             false,
		AutoLimitMin:          DefaultAutoLimitMin,
		AutoLimitIncreaseFac:  DefaultAutoLimitIncreaseFac,
		AutoLimitConverged:    DefaultAutoLimitConverged,
		OutMode:               DefaultOutMode,
		LoadDefaultIgnoreFiles: false,
	}
}

// Validate enforces the configuration-error taxonomy: impossible or
// nonsensical combinations of knobs are rejected up front, before any
// filesystem work happens.
func (c Config) Validate() error {
	if _, err := fpr.AlgorithmByName(c.Algo); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("invalid config: blocksize must be > 0, got %d", c.BlockSize)
	}
	if c.NProcs < 1 {
		return fmt.Errorf("invalid config: nprocs must be >= 1, got %d", c.NProcs)
	}
	if c.NThreads < 1 {
		return fmt.Errorf("invalid config: nthreads must be >= 1, got %d", c.NThreads)
	}
	if c.Limit < 0 {
		return fmt.Errorf("invalid config: limit must be >= 0, got %d", c.Limit)
	}
	if c.Limit > 0 && c.AutoLimit {
		return fmt.Errorf("invalid config: limit and auto-limit are mutually exclusive")
	}
	if c.AutoLimit {
		if c.AutoLimitMin <= 0 {
			return fmt.Errorf("invalid config: auto-limit-min must be > 0, got %d", c.AutoLimitMin)
		}
		if c.AutoLimitIncreaseFac <= 1.0 {
			return fmt.Errorf("invalid config: auto-limit-increase-fac must be > 1, got %v", c.AutoLimitIncreaseFac)
		}
		if c.AutoLimitConverged < 2 {
			return fmt.Errorf("invalid config: auto-limit-converged must be >= 2, got %d", c.AutoLimitConverged)
		}
	}
	if c.OutMode != 1 && c.OutMode != 2 && c.OutMode != 3 {
		return fmt.Errorf("invalid config: outmode must be 1, 2, or 3, got %d", c.OutMode)
	}
	return nil
}

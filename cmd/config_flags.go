package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dupmtree/dupm/internal/config"
)

// registerConfigFlags adds the persistent flags that shape a config.Config to
// cmd. Every subcommand that scans a filesystem tree shares this same set of
// knobs, so they live on the root command rather than being repeated per
// subcommand.
func registerConfigFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.String("algo", "", "Fingerprint algorithm (sha1, blake3). Default: sha1")
	flags.Int64("blocksize", config.DefaultBlockSize, "Read chunk size in bytes used while hashing file content")
	flags.Int("nprocs", config.DefaultNProcs, "Number of OS-process workers used for leaf hashing")
	flags.Int("nthreads", config.DefaultNThreads, "Number of goroutines per worker used for leaf hashing")
	flags.Bool("share-leafs", config.DefaultShareLeafs, "Write process-worker leaf fingerprints directly into the tree instead of re-hashing sequentially")
	flags.Int64("limit", 0, "Hash only this many leading bytes of file content (0 hashes whole files). Mutually exclusive with --auto-limit")
	flags.Bool("auto-limit", false, "Adaptively grow the hashed content prefix until duplicate groups stabilize")
	flags.Int64("auto-limit-min", config.DefaultAutoLimitMin, "Initial prefix size, in bytes, for --auto-limit")
	flags.Float64("auto-limit-increase-fac", config.DefaultAutoLimitIncreaseFac, "Geometric growth factor applied to the prefix each round of --auto-limit")
	flags.Int("auto-limit-converged", config.DefaultAutoLimitConverged, "Consecutive stable rounds required before --auto-limit stops growing the prefix")
	flags.IntP("outmode", "o", config.DefaultOutMode, "Grouper output shape: 1 (flat), 2 (split by kind), or 3 (split by kind, sorted by reclaimable size)")
	flags.StringArrayP("exclude", "e", nil, "Exclude patterns (gitignore-style). Can be specified multiple times.")
	flags.StringP("ignore-file", "i", "", "Path to a custom ignore file (its patterns are combined with --exclude and any auto-discovered ignore files)")
	flags.Bool("no-default-ignore-files", false, "Disable automatic discovery of .dupmignore and .gitignore files")
	flags.Bool("progress", false, "Show a progress bar while hashing")
}

// ConfigFromFlags builds a config.Config from cmd's flags (local and
// inherited), layered over config.Defaults(), and validates it.
func ConfigFromFlags(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Defaults()
	flags := cmd.Flags()

	if v, err := flags.GetString("algo"); err == nil && v != "" {
		cfg.Algo = v
	}
	if v, err := flags.GetInt64("blocksize"); err == nil {
		cfg.BlockSize = v
	}
	if v, err := flags.GetInt("nprocs"); err == nil {
		cfg.NProcs = v
	}
	if v, err := flags.GetInt("nthreads"); err == nil {
		cfg.NThreads = v
	}
	if v, err := flags.GetBool("share-leafs"); err == nil {
		cfg.ShareLeafs = v
	}
	if v, err := flags.GetInt64("limit"); err == nil {
		cfg.Limit = v
	}
	if v, err := flags.GetBool("auto-limit"); err == nil {
		cfg.AutoLimit = v
	}
	if v, err := flags.GetInt64("auto-limit-min"); err == nil {
		cfg.AutoLimitMin = v
	}
	if v, err := flags.GetFloat64("auto-limit-increase-fac"); err == nil {
		cfg.AutoLimitIncreaseFac = v
	}
	if v, err := flags.GetInt("auto-limit-converged"); err == nil {
		cfg.AutoLimitConverged = v
	}
	if v, err := flags.GetInt("outmode"); err == nil {
		cfg.OutMode = v
	}
	if v, err := flags.GetStringArray("exclude"); err == nil {
		cfg.Exclude = v
	}
	if v, err := flags.GetString("ignore-file"); err == nil {
		cfg.IgnoreFile = v
	}
	if v, err := flags.GetBool("no-default-ignore-files"); err == nil {
		cfg.LoadDefaultIgnoreFiles = !v
	}
	if v, err := flags.GetBool("progress"); err == nil {
		cfg.Progress = v
	}
	cfg.Verbose = verbose > 0

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

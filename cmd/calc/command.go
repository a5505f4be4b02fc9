// Package calc provides the "calc" command for verifying that a file or
// directory matches a given Merkle root fingerprint.
package calc

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dupmtree/dupm/cmd"
	"github.com/dupmtree/dupm/internal/fstree"
	"github.com/dupmtree/dupm/internal/ignore"
	"github.com/dupmtree/dupm/internal/logger"
	"github.com/dupmtree/dupm/internal/merkle"
)

var calcCmd = &cobra.Command{
	Use:   "calc [path] [fingerprint]",
	Short: "Verify that a file or directory matches the given fingerprint",
	Long: `Verify that a file or directory matches the given fingerprint.
Computes the Merkle root fingerprint of the specified path and compares it
with the one given. Exits with a non-nil error if they do not match.`,
	Args: cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		path := args[0]
		expected := args[1]
		log := logger.With("path", path, "command", "calc", "expected", expected)

		cfg, err := cmd.ConfigFromFlags(c)
		if err != nil {
			return err
		}

		matcher, err := ignore.NewMatcherFromConfig(cfg, path)
		if err != nil {
			return fmt.Errorf("build exclude matcher: %w", err)
		}

		log.Info("starting hash computation for verification")
		start := time.Now()

		tree, err := fstree.Build([]string{path}, matcher)
		if err != nil {
			return fmt.Errorf("build tree for %q: %w", path, err)
		}
		engine, err := merkle.NewEngine(cfg)
		if err != nil {
			return err
		}
		res, err := engine.Compute(context.Background(), tree)
		if err != nil {
			log.Error("hash computation failed", "error", err, "duration", time.Since(start))
			return err
		}

		cleanPath := filepath.ToSlash(filepath.Clean(path))
		computed := string(res.NodeFprs[cleanPath])
		if computed == "" {
			computed = string(res.LeafFprs[cleanPath])
		}

		log.Info("hash computation completed", "duration", time.Since(start), "computed", computed)

		if computed == expected {
			log.Info("fingerprint verification successful", "fingerprint", computed)
			if _, err := fmt.Fprintf(c.OutOrStdout(), "match: %s\n", computed); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return nil
		}

		log.Error("fingerprint verification failed", "computed", computed, "expected", expected)
		if _, err := fmt.Fprintf(c.OutOrStderr(), "mismatch!\ncomputed: %s\nexpected: %s\n", computed, expected); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return fmt.Errorf("fingerprint mismatch")
	},
}

func init() {
	cmd.Register(calcCmd)
}

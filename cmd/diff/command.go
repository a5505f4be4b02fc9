// Package diff provides the "diff" command for comparing two directory (or
// file) Merkle trees and reporting the first differing subpaths.
package diff

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dupmtree/dupm/cmd"
	"github.com/dupmtree/dupm/internal/ignore"
	"github.com/dupmtree/dupm/internal/logger"
	"github.com/dupmtree/dupm/internal/merkle"
)

var diffCmd = &cobra.Command{
	Use:   "diff [pathA] [pathB]",
	Short: "Compare two Merkle trees and report differing subpaths",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		pathA := args[0]
		pathB := args[1]
		log := logger.With("pathA", pathA, "pathB", pathB, "command", "diff")

		cfg, err := cmd.ConfigFromFlags(c)
		if err != nil {
			return err
		}

		matcher, err := ignore.NewMatcherFromConfig(cfg, pathA)
		if err != nil {
			return fmt.Errorf("build exclude matcher: %w", err)
		}

		log.Info("starting directory comparison")
		start := time.Now()

		diffs, err := merkle.Compare(context.Background(), pathA, pathB, cfg, matcher)
		if err != nil {
			log.Error("comparison failed", "error", err, "duration", time.Since(start))
			return err
		}

		log.Info("comparison completed", "duration", time.Since(start), "differences", len(diffs))

		for _, d := range diffs {
			if _, err := fmt.Fprintln(c.OutOrStdout(), d); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
		if len(diffs) == 0 {
			if _, err := fmt.Fprintln(c.OutOrStdout(), "identical"); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}

		return nil
	},
}

func init() {
	cmd.Register(diffCmd)
}

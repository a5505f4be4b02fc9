// Package hash provides the "hash" command for computing the Merkle root
// fingerprint of a file or directory.
package hash

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dupmtree/dupm/cmd"
	"github.com/dupmtree/dupm/internal/fstree"
	"github.com/dupmtree/dupm/internal/ignore"
	"github.com/dupmtree/dupm/internal/logger"
	"github.com/dupmtree/dupm/internal/merkle"
	"github.com/dupmtree/dupm/internal/sizefmt"
)

var hashCmd = &cobra.Command{
	Use:   "hash [path]",
	Short: "Compute the Merkle root fingerprint of a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		path := args[0]
		log := logger.With("path", path, "command", "hash")

		cfg, err := cmd.ConfigFromFlags(c)
		if err != nil {
			return err
		}

		info, err := os.Stat(path)
		if err != nil {
			log.Error("failed to stat path", "error", err)
			return fmt.Errorf("stat %q: %w", path, err)
		}

		matcher, err := ignore.NewMatcherFromConfig(cfg, path)
		if err != nil {
			return fmt.Errorf("build exclude matcher: %w", err)
		}

		log.Info("starting hash computation")
		start := time.Now()

		tree, err := fstree.Build([]string{path}, matcher)
		if err != nil {
			log.Error("failed to build tree", "error", err)
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
		var fp string
		var size int64
		if info.IsDir() {
			fp = string(res.NodeFprs[cleanPath])
			size = dirSize(tree)
		} else {
			fp = string(res.LeafFprs[cleanPath])
			size = info.Size()
		}

		duration := time.Since(start)
		log.Info("hash computation completed", "duration", duration, "fingerprint", fp, "size", size)

		kind := "f"
		if info.IsDir() {
			kind = "d"
		}
		if _, err := fmt.Fprintf(c.OutOrStdout(), "%s (%s): %s (size: %s)\n", path, kind, fp, sizefmt.Format(size)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	},
}

func dirSize(tree *fstree.FileDirTree) int64 {
	var total int64
	for _, leaf := range tree.Leafs {
		total += leaf.Size
	}
	return total
}

func init() {
	cmd.Register(hashCmd)
}

// Package driver wires the pipeline a dupm run executes: build the
// filesystem tree, fingerprint it with the MerkleEngine, then group the
// results into a duplicate report.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/dupmtree/dupm/internal/config"
	"github.com/dupmtree/dupm/internal/fpr"
	"github.com/dupmtree/dupm/internal/fstree"
	"github.com/dupmtree/dupm/internal/grouper"
	"github.com/dupmtree/dupm/internal/ignore"
	"github.com/dupmtree/dupm/internal/logger"
	"github.com/dupmtree/dupm/internal/merkle"
)

// Driver owns a validated Config shared across runs.
type Driver struct {
	cfg config.Config
}

// New validates cfg.
func New(cfg config.Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new driver: %w", err)
	}
	return &Driver{cfg: cfg}, nil
}

// Run builds the tree under roots, fingerprints it, and groups the result
// into a duplicate report shaped per cfg.OutMode. The exclude matcher is
// built fresh per run and given the first of roots as its root path;
// auto-discovered .dupmignore/.gitignore files are searched for from the
// working directory upwards, not from the roots.
func (d *Driver) Run(ctx context.Context, roots []string, progress merkle.ProgressFunc) (grouper.Output, error) {
	log := logger.With("operation", "run", "roots", roots)
	start := time.Now()

	var rootPath string
	if len(roots) > 0 {
		rootPath = roots[0]
	}
	matcher, err := ignore.NewMatcherFromConfig(d.cfg, rootPath)
	if err != nil {
		return grouper.Output{}, fmt.Errorf("build exclude matcher: %w", err)
	}

	tree, err := fstree.Build(roots, matcher)
	if err != nil {
		return grouper.Output{}, fmt.Errorf("build tree: %w", err)
	}
	log.Debug("tree built", "leafs", len(tree.Leafs), "nodes", len(tree.Nodes), "duration", time.Since(start))

	engine, err := merkle.NewEngine(d.cfg)
	if err != nil {
		return grouper.Output{}, err
	}
	engine.ProgressFunc = progress

	hashStart := time.Now()
	res, err := engine.Compute(ctx, tree)
	if err != nil {
		return grouper.Output{}, fmt.Errorf("compute fingerprints: %w", err)
	}
	log.Debug("fingerprints computed", "duration", time.Since(hashStart))

	algo, err := fpr.AlgorithmByName(d.cfg.Algo)
	if err != nil {
		return grouper.Output{}, err
	}

	sizes := make(map[string]int64, len(tree.Leafs))
	for path, leaf := range tree.Leafs {
		sizes[path] = leaf.Size
	}

	out := grouper.Group(res.LeafFprs, res.NodeFprs, sizes, algo, d.cfg.OutMode)
	log.Info("run complete", "file_groups", len(out.Files)+len(out.Groups), "dir_groups", len(out.Dirs), "duration", time.Since(start))
	return out, nil
}

// Package merkle implements MerkleEngine: two-phase fingerprint computation
// over a FileDirTree. Leaf fingerprints are computed in parallel by a
// WorkerPool; node fingerprints are then derived by a single-threaded,
// memoized recursive merge. An adaptive-limit mode grows the hashed content
// prefix geometrically until the set of leaves sharing a fingerprint has
// been stable for several consecutive rounds.
package merkle

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/dupmtree/dupm/internal/config"
	"github.com/dupmtree/dupm/internal/fpr"
	"github.com/dupmtree/dupm/internal/fstree"
	"github.com/dupmtree/dupm/internal/logger"
	"github.com/dupmtree/dupm/internal/workerpool"
)

// ProgressFunc, if set on an Engine, is called after every leaf-hashing round
// with the number of leaves hashed in that round, passed as both done and
// total. It is
// used to drive an optional CLI progress indicator; it never affects any
// fingerprint.
type ProgressFunc func(done, total int)

// Result holds the two fingerprint maps a MerkleEngine run produces, keyed
// by slash-normalized path.
type Result struct {
	LeafFprs map[string]fpr.Fingerprint
	NodeFprs map[string]fpr.Fingerprint
}

// Engine computes fingerprints for a FileDirTree according to a Config.
type Engine struct {
	algo fpr.Algorithm
	cfg  config.Config
	pool workerpool.Pool

	// ProgressFunc is an optional hook invoked after each leaf-hashing round.
	ProgressFunc ProgressFunc
}

// NewEngine builds an Engine from cfg. cfg must already have passed
// Validate().
func NewEngine(cfg config.Config) (*Engine, error) {
	algo, err := fpr.AlgorithmByName(cfg.Algo)
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	return &Engine{
		algo: algo,
		cfg:  cfg,
		pool: workerpool.New(cfg.NProcs, cfg.NThreads),
	}, nil
}

// Compute fingerprints every Leaf and Node in tree, returning both maps.
func (e *Engine) Compute(ctx context.Context, tree *fstree.FileDirTree) (Result, error) {
	if e.cfg.AutoLimit {
		return e.computeAdaptive(ctx, tree)
	}
	if err := e.hashLeafsAtLimit(ctx, tree, e.cfg.Limit, nil); err != nil {
		return Result{}, err
	}
	return e.finish(tree), nil
}

// computeAdaptive implements the adaptive prefix-hashing loop: the content
// prefix grows geometrically (AutoLimitMin, then *= AutoLimitIncreaseFac)
// until the same-set (each fingerprint shared by two or more leaves, with the
// leaves holding it) has compared equal to the previous round's for
// AutoLimitConverged consecutive rounds, or every leaf in the same-set has
// been read to its full size, whichever comes first. The comparison includes
// the fingerprints themselves, and a re-hashed leaf's fingerprint changes
// whenever the deeper prefix reads more of it.
//
// Only leaves in the previous round's same-set are re-hashed each round.
// Leaves not in slm_old already have a fingerprint that distinguishes them
// from every other leaf at a smaller limit, so re-reading their tails at a
// deeper limit cannot change the grouping; they keep their memoized
// fingerprint (the Invariant in spec.md's adaptive-limit section), and the
// deeper prefix read is skipped for them entirely.
func (e *Engine) computeAdaptive(ctx context.Context, tree *fstree.FileDirTree) (Result, error) {
	log := logger.With("operation", "adaptive_limit")
	limit := e.cfg.AutoLimitMin

	var prevSlm map[fpr.Fingerprint][]string
	var restrictTo []string // nil on round 1: hash every leaf
	converged := 0
	round := 0

	for {
		round++
		start := time.Now()

		if err := e.hashLeafsAtLimit(ctx, tree, limit, restrictTo); err != nil {
			return Result{}, err
		}

		slm := sameFingerprintGroups(tree)
		stable := reflect.DeepEqual(slm, prevSlm)
		if stable {
			converged++
		} else {
			converged = 0
		}
		prevSlm = slm
		restrictTo = flattenGroups(slm)

		full := allLeafsAtFullSize(tree, restrictTo, limit)
		log.Debug("adaptive-limit round complete",
			"round", round, "limit", limit, "ambiguous_groups", len(slm),
			"stable_rounds", converged, "all_leafs_full_size", full,
			"duration", time.Since(start))

		if converged >= e.cfg.AutoLimitConverged || full {
			break
		}

		next := int64(float64(limit) * e.cfg.AutoLimitIncreaseFac)
		if next <= limit {
			next = limit + 1
		}
		limit = next
	}

	return e.finish(tree), nil
}

// hashLeafsAtLimit resets and recomputes the memoized fingerprint of each
// leaf in restrictTo (or every leaf in tree, when restrictTo is nil) at the
// given limit (0 meaning whole file), via the engine's pool. This
// reset-then-recompute is exactly what makes the adaptive-limit loop able to
// force a deeper prefix on a later round, restricted to only the leaves that
// still need to be told apart.
func (e *Engine) hashLeafsAtLimit(ctx context.Context, tree *fstree.FileDirTree, limit int64, restrictTo []string) error {
	log := logger.With("operation", "hash_leafs", "limit", limit, "pool", fmt.Sprintf("%T", e.pool))

	var paths []string
	if restrictTo != nil {
		paths = append(paths, restrictTo...)
	} else {
		paths = make([]string, 0, len(tree.Leafs))
		for p := range tree.Leafs {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	items := make([]workerpool.Item, len(paths))
	leafs := make([]*fstree.Leaf, len(paths))
	for i, p := range paths {
		leaf := tree.Leafs[p]
		leaf.ResetFingerprint()
		leafs[i] = leaf
		items[i] = workerpool.Item{Path: leaf.Path, Size: leaf.Size}
	}

	spec := workerpool.Spec{Algo: e.algo, BlockSize: e.cfg.BlockSize, Limit: limit}

	start := time.Now()
	results, err := e.pool.Map(ctx, items, spec)
	if err != nil {
		return fmt.Errorf("hash leafs: %w", err)
	}
	log.Debug("leaf hashing pass complete", "count", len(items), "duration", time.Since(start))

	assign := func(idx int, r workerpool.Result) {
		if r.Err != nil {
			leafs[idx].Unreadable = true
			leafs[idx].SetFingerprint(fpr.MissingFileFingerprint(e.algo))
			log.Error("leaf became unreadable during hashing", "path", leafs[idx].Path, "error", r.Err)
			return
		}
		leafs[idx].SetFingerprint(r.Fingerprint)
	}
	for i, r := range results {
		assign(i, r)
	}

	if e.ProgressFunc != nil {
		e.ProgressFunc(len(items), len(items))
	}

	// Without the share-leafs fix-up, process-computed fingerprints are
	// discarded and recomputed sequentially in-process before the node
	// phase, trading a second I/O pass for not trusting subprocess output.
	if !e.cfg.ShareLeafs && workerpool.IsProcessBased(e.pool) {
		for _, leaf := range leafs {
			leaf.ResetFingerprint()
		}
		seqResults, err := (workerpool.Sequential{}).Map(ctx, items, spec)
		if err != nil {
			return fmt.Errorf("hash leafs (share-leafs disabled, sequential re-hash): %w", err)
		}
		for i, r := range seqResults {
			assign(i, r)
		}
	}

	return nil
}

// sameFingerprintGroups returns, for every fingerprint currently shared by
// two or more leafs, the sorted list of paths holding that fingerprint. This
// is the "slm" (same-set) the adaptive-limit loop watches for stability.
func sameFingerprintGroups(tree *fstree.FileDirTree) map[fpr.Fingerprint][]string {
	groups := map[fpr.Fingerprint][]string{}
	for path, leaf := range tree.Leafs {
		fp, ok := leaf.GetFingerprint()
		if !ok {
			continue
		}
		groups[fp] = append(groups[fp], path)
	}
	for fp, paths := range groups {
		if len(paths) < 2 {
			delete(groups, fp)
			continue
		}
		sort.Strings(paths)
	}
	return groups
}

// flattenGroups collects every path appearing in any same-fingerprint group,
// sorted, for use as the next round's restrictTo set.
func flattenGroups(slm map[fpr.Fingerprint][]string) []string {
	var paths []string
	for _, group := range slm {
		paths = append(paths, group...)
	}
	sort.Strings(paths)
	return paths
}

// allLeafsAtFullSize reports whether every leaf still in the ambiguous
// same-set (paths) has already been read to its full size at limit. Leaves
// outside the same-set are already disambiguated and play no part in this
// check: growing limit further can't change their fingerprint's uniqueness.
func allLeafsAtFullSize(tree *fstree.FileDirTree, paths []string, limit int64) bool {
	for _, p := range paths {
		if leaf, ok := tree.Leafs[p]; ok && limit < leaf.Size {
			return false
		}
	}
	return true
}

// finish runs the node-hashing phase (single-threaded, memoized recursive
// merge) and collects both fingerprint maps.
func (e *Engine) finish(tree *fstree.FileDirTree) Result {
	log := logger.With("operation", "hash_nodes")
	start := time.Now()

	for _, node := range tree.Nodes {
		e.nodeFingerprint(node)
	}

	res := Result{
		LeafFprs: make(map[string]fpr.Fingerprint, len(tree.Leafs)),
		NodeFprs: make(map[string]fpr.Fingerprint, len(tree.Nodes)),
	}
	for path, leaf := range tree.Leafs {
		if fp, ok := leaf.GetFingerprint(); ok {
			res.LeafFprs[path] = fp
		}
	}
	for path, node := range tree.Nodes {
		if fp, ok := node.GetFingerprint(); ok {
			res.NodeFprs[path] = fp
		}
	}

	log.Debug("node hashing complete", "nodes", len(tree.Nodes), "duration", time.Since(start))
	return res
}

// nodeFingerprint returns n's fingerprint, computing and memoizing it (via a
// recursive merge of its children's fingerprints) if not already set.
func (e *Engine) nodeFingerprint(n *fstree.Node) fpr.Fingerprint {
	if fp, ok := n.GetFingerprint(); ok {
		return fp
	}

	children := n.Children()
	childFprs := make([]fpr.Fingerprint, 0, len(children))
	for _, child := range children {
		switch c := child.(type) {
		case *fstree.Node:
			childFprs = append(childFprs, e.nodeFingerprint(c))
		case *fstree.Leaf:
			if fp, ok := c.GetFingerprint(); ok {
				childFprs = append(childFprs, fp)
			} else {
				childFprs = append(childFprs, fpr.MissingFileFingerprint(e.algo))
			}
		}
	}

	fp := fpr.Merge(e.algo, childFprs)
	n.SetFingerprint(fp)
	return fp
}

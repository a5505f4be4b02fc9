// Package workerpool implements WorkerPool: the four interchangeable
// parallelism flavors the Merkle engine uses for the leaf-hashing phase. The
// same Pool interface is satisfied by a sequential baseline, an in-process
// goroutine pool, an OS-process pool, and a pool of processes each running
// their own goroutine pool.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/dupmtree/dupm/internal/fpr"
	"github.com/dupmtree/dupm/internal/procworker"
)

// Item is a single file to be fingerprinted.
type Item struct {
	Path string
	Size int64
}

// Result is the outcome of fingerprinting one Item, at the same index as
// the Item within the slice passed to Map.
type Result struct {
	Fingerprint fpr.Fingerprint
	Err         error
}

// Spec carries the hashing parameters every pool flavor needs.
type Spec struct {
	Algo      fpr.Algorithm
	BlockSize int64
	Limit     int64 // 0 means hash the whole file
}

func (s Spec) hashOne(it Item) (fpr.Fingerprint, error) {
	if s.Limit > 0 {
		bs := fpr.AdjustBlockSize(s.BlockSize, s.Limit)
		return fpr.HashFileLimit(s.Algo, it.Path, it.Size, bs, s.Limit)
	}
	return fpr.HashFile(s.Algo, it.Path, it.Size, s.BlockSize)
}

// Pool computes fingerprints for a batch of items, in parallel according to
// the flavor it implements. Results are returned in the same order as items.
type Pool interface {
	Map(ctx context.Context, items []Item, spec Spec) ([]Result, error)
}

// IsProcessBased reports whether p is one of the subprocess-backed flavors
// (Processes or ProcessesAndThreads) as opposed to Sequential or Threads.
// The engine uses this to decide whether the share-leafs fix-up applies.
func IsProcessBased(p Pool) bool {
	switch p.(type) {
	case Processes, processesAndThreads:
		return true
	default:
		return false
	}
}

// New selects one of the four WorkerPool flavors by (nprocs, nthreads):
//
//	nprocs <= 1, nthreads <= 1 -> Sequential
//	nprocs <= 1, nthreads  > 1 -> Threads(nthreads)
//	nprocs  > 1, nthreads <= 1 -> Processes(nprocs)
//	nprocs  > 1, nthreads  > 1 -> ProcessesAndThreads(nprocs, nthreads)
func New(nprocs, nthreads int) Pool {
	switch {
	case nprocs <= 1 && nthreads <= 1:
		return Sequential{}
	case nprocs <= 1 && nthreads > 1:
		return Threads(nthreads)
	case nprocs > 1 && nthreads <= 1:
		return Processes(nprocs)
	default:
		return processesAndThreads{nprocs: nprocs, nthreads: nthreads}
	}
}

// Chop splits items into nchunks slices of approximately equal length, with
// any remainder folded into the last chunk. nchunks is clamped to
// [1, len(items)].
func Chop(items []Item, nchunks int) [][]Item {
	if nchunks < 1 {
		nchunks = 1
	}
	if len(items) == 0 {
		return nil
	}
	if nchunks > len(items) {
		nchunks = len(items)
	}
	chunkSize := len(items) / nchunks
	chunks := make([][]Item, 0, nchunks)
	for i := 0; i < nchunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if i == nchunks-1 {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Sequential computes fingerprints one at a time in the calling goroutine.
// It is the baseline used to measure the overhead of the other flavors.
type Sequential struct{}

// Map implements Pool.
func (Sequential) Map(ctx context.Context, items []Item, spec Spec) ([]Result, error) {
	results := make([]Result, len(items))
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fp, err := spec.hashOne(it)
		results[i] = Result{Fingerprint: fp, Err: err}
	}
	return results, nil
}

// Threads computes fingerprints using a bounded goroutine pool of this size.
type Threads int

// Map implements Pool.
func (n Threads) Map(ctx context.Context, items []Item, spec Spec) ([]Result, error) {
	if len(items) == 0 {
		return nil, nil
	}
	results := make([]Result, len(items))

	pool, err := ants.NewPool(int(n))
	if err != nil {
		return nil, fmt.Errorf("create goroutine pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, it := range items {
		i, it := i, it
		wg.Add(1)
		if serr := pool.Submit(func() {
			defer wg.Done()
			fp, herr := spec.hashOne(it)
			results[i] = Result{Fingerprint: fp, Err: herr}
		}); serr != nil {
			wg.Done()
			results[i] = Result{Err: fmt.Errorf("submit job: %w", serr)}
		}
	}
	wg.Wait()

	return results, ctx.Err()
}

// Processes computes fingerprints by chopping items into this many chunks
// and handing each chunk to a separate "dupm __worker" subprocess. Only
// gob-encoded data crosses the process boundary.
type Processes int

// Map implements Pool.
func (n Processes) Map(ctx context.Context, items []Item, spec Spec) ([]Result, error) {
	return runProcesses(ctx, int(n), 1, items, spec)
}

// ProcessesAndThreads returns a Pool backed by nprocs subprocess workers,
// each of which internally fingerprints its chunk with nthreads goroutines.
func ProcessesAndThreads(nprocs, nthreads int) Pool {
	return processesAndThreads{nprocs: nprocs, nthreads: nthreads}
}

type processesAndThreads struct {
	nprocs, nthreads int
}

// Map implements Pool.
func (p processesAndThreads) Map(ctx context.Context, items []Item, spec Spec) ([]Result, error) {
	return runProcesses(ctx, p.nprocs, p.nthreads, items, spec)
}

func runProcesses(ctx context.Context, nprocs, nthreads int, items []Item, spec Spec) ([]Result, error) {
	if len(items) == 0 {
		return nil, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve worker executable: %w", err)
	}

	chunks := Chop(items, nprocs)
	results := make([]Result, len(items))

	type outcome struct {
		offset int
		res    []procworker.Result
		err    error
	}
	outcomes := make([]outcome, len(chunks))

	var wg sync.WaitGroup
	offset := 0
	for ci, chunk := range chunks {
		ci, chunk, off := ci, chunk, offset
		offset += len(chunk)

		batch := procworker.Batch{
			Algo:      spec.Algo.Name(),
			BlockSize: spec.BlockSize,
			Limit:     spec.Limit,
			NThreads:  nthreads,
		}
		for _, it := range chunk {
			batch.Jobs = append(batch.Jobs, procworker.Job{Path: it.Path, Size: it.Size})
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			br, rerr := procworker.SpawnAndRun(ctx, exe, []string{"__worker"}, batch)
			outcomes[ci] = outcome{offset: off, res: br.Results, err: rerr}
		}()
	}
	wg.Wait()

	for _, oc := range outcomes {
		if oc.err != nil {
			return nil, oc.err
		}
		for i, r := range oc.res {
			var rerr error
			if r.Err != "" {
				rerr = errors.New(r.Err)
			}
			results[oc.offset+i] = Result{Fingerprint: fpr.Fingerprint(r.Fingerprint), Err: rerr}
		}
	}

	return results, nil
}

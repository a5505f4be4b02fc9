// Package procworker implements the subprocess side of the Processes and
// ProcessesAndThreads WorkerPool flavors. A batch of fingerprinting jobs is
// gob-encoded and written to a child process's stdin; the child hashes each
// job (optionally using its own bounded goroutine pool) and gob-encodes the
// results back over stdout. Nothing but serialized data crosses the process
// boundary, mirroring how a Python ProcessPoolExecutor worker must be a free
// function operating on pickleable arguments.
package procworker

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os/exec"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/dupmtree/dupm/internal/fpr"
)

// Job is one file to fingerprint, as seen by the worker subprocess.
type Job struct {
	Path string
	Size int64
}

// Batch is the gob-encoded message sent to a worker subprocess's stdin.
type Batch struct {
	Jobs      []Job
	Algo      string
	BlockSize int64
	Limit     int64
	NThreads  int
}

// Result is one job's outcome. Err is a plain string (not an error) because
// the standard error interface does not gob-encode across a pipe boundary.
type Result struct {
	Fingerprint string
	Err         string
}

// BatchResult is the gob-encoded message a worker subprocess writes to
// stdout, in the same order as the Batch's Jobs.
type BatchResult struct {
	Results []Result
}

// Run executes one batch of fingerprinting jobs in the current process,
// using up to batch.NThreads goroutines. It is called from the hidden
// "__worker" subcommand after decoding a Batch from stdin, and returns the
// BatchResult to be gob-encoded to stdout.
func Run(batch Batch) (BatchResult, error) {
	algo, err := fpr.AlgorithmByName(batch.Algo)
	if err != nil {
		return BatchResult{}, fmt.Errorf("worker: %w", err)
	}

	results := make([]Result, len(batch.Jobs))
	hashOne := func(j Job) Result {
		var fp fpr.Fingerprint
		var herr error
		if batch.Limit > 0 {
			bs := fpr.AdjustBlockSize(batch.BlockSize, batch.Limit)
			fp, herr = fpr.HashFileLimit(algo, j.Path, j.Size, bs, batch.Limit)
		} else {
			fp, herr = fpr.HashFile(algo, j.Path, j.Size, batch.BlockSize)
		}
		r := Result{Fingerprint: string(fp)}
		if herr != nil {
			r.Err = herr.Error()
		}
		return r
	}

	nthreads := batch.NThreads
	if nthreads <= 1 {
		for i, j := range batch.Jobs {
			results[i] = hashOne(j)
		}
		return BatchResult{Results: results}, nil
	}

	pool, err := ants.NewPool(nthreads)
	if err != nil {
		return BatchResult{}, fmt.Errorf("worker: create goroutine pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, j := range batch.Jobs {
		i, j := i, j
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = hashOne(j)
		}); err != nil {
			wg.Done()
			results[i] = Result{Err: fmt.Sprintf("submit job: %v", err)}
		}
	}
	wg.Wait()

	return BatchResult{Results: results}, nil
}

// SpawnAndRun starts exe with args, writes a gob-encoded Batch to its stdin,
// and decodes a gob-encoded BatchResult from its stdout. exe is expected to
// be dupm's own executable invoked with the hidden "__worker" subcommand.
func SpawnAndRun(ctx context.Context, exe string, args []string, batch Batch) (BatchResult, error) {
	var in bytes.Buffer
	if err := gob.NewEncoder(&in).Encode(batch); err != nil {
		return BatchResult{}, fmt.Errorf("encode batch: %w", err)
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdin = &in
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return BatchResult{}, fmt.Errorf("worker subprocess failed: %w (stderr: %s)", err, errOut.String())
	}

	var result BatchResult
	if err := gob.NewDecoder(&out).Decode(&result); err != nil {
		return BatchResult{}, fmt.Errorf("decode worker result: %w", err)
	}
	return result, nil
}

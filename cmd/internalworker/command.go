// Package internalworker provides the hidden "__worker" subcommand: the
// child-process side of the Processes and ProcessesAndThreads WorkerPool
// flavors. It is never invoked directly by a user; internal/workerpool
// re-launches dupm's own executable with this subcommand to spawn a worker.
package internalworker

import (
	"encoding/gob"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dupmtree/dupm/cmd"
	"github.com/dupmtree/dupm/internal/procworker"
)

var workerCmd = &cobra.Command{
	Use:    "__worker",
	Short:  "Internal worker subprocess (not for direct use)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		// Nothing below may write to stdout: it carries only the gob-encoded
		// BatchResult back to the parent process.
		var batch procworker.Batch
		if err := gob.NewDecoder(c.InOrStdin()).Decode(&batch); err != nil {
			return fmt.Errorf("decode batch: %w", err)
		}

		result, err := procworker.Run(batch)
		if err != nil {
			return err
		}

		if err := gob.NewEncoder(c.OutOrStdout()).Encode(result); err != nil {
			return fmt.Errorf("encode batch result: %w", err)
		}
		return nil
	},
}

func init() {
	cmd.Register(workerCmd)
}

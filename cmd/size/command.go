// Package size provides the "size" command, a small utility that converts
// between byte counts and dupm's human-readable size notation ("256K",
// "2G"), exercising the same codec the hash command uses for its size
// display. The --blocksize and --limit flags take plain byte counts, not this
// notation.
package size

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dupmtree/dupm/cmd"
	"github.com/dupmtree/dupm/internal/sizefmt"
)

var sizeCmd = &cobra.Command{
	Use:   "size [value]",
	Short: `Convert a byte count to dupm's size notation, or back`,
	Long: `Convert a byte count to dupm's size notation, or back.

If value parses as a plain integer, it is treated as a byte count and
printed in size notation ("256K", "2G"). Otherwise it is parsed as size
notation and printed as a byte count.`,
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		value := args[0]

		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			_, err := fmt.Fprintln(c.OutOrStdout(), sizefmt.Format(n))
			return err
		}

		n, err := sizefmt.Parse(value)
		if err != nil {
			return fmt.Errorf("parse %q: %w", value, err)
		}
		_, err = fmt.Fprintln(c.OutOrStdout(), n)
		return err
	},
}

func init() {
	cmd.Register(sizeCmd)
}

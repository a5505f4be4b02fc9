// Package find provides the "find" command: dupm's primary entry point,
// reporting duplicate files and directories across one or more roots.
package find

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dupmtree/dupm/cmd"
	"github.com/dupmtree/dupm/internal/driver"
	"github.com/dupmtree/dupm/internal/grouper"
	"github.com/dupmtree/dupm/internal/logger"
	"github.com/dupmtree/dupm/internal/merkle"
)

var findCmd = &cobra.Command{
	Use:   "find [root...]",
	Short: "Find duplicate files and directories across one or more roots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		log := logger.With("command", "find", "roots", args)

		cfg, err := cmd.ConfigFromFlags(c)
		if err != nil {
			return err
		}

		d, err := driver.New(cfg)
		if err != nil {
			return err
		}

		var progress merkle.ProgressFunc
		var bar *progressbar.ProgressBar
		if cfg.Progress {
			bar = progressbar.Default(-1, "hashing")
			progress = func(done, total int) {
				_ = bar.Set(done)
				if bar.GetMax() != total {
					_ = bar.ChangeMax(total)
				}
			}
		}

		log.Info("starting duplicate scan")
		start := time.Now()

		out, err := d.Run(context.Background(), args, progress)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			log.Error("scan failed", "error", err, "duration", time.Since(start))
			return err
		}
		log.Info("scan completed", "duration", time.Since(start))

		return printOutput(c, out)
	},
}

func printOutput(c *cobra.Command, out grouper.Output) error {
	w := c.OutOrStdout()

	printGroup := func(g grouper.Group) error {
		label := g.Label()
		if g.Kind == grouper.KindFile {
			_, err := fmt.Fprintf(w, "%s group (%d copies, %s each, %s reclaimable):\n",
				label, len(g.Paths), humanize.Bytes(uint64(g.Size)), humanize.Bytes(uint64(g.Reclaimable())))
			if err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, "%s group (%d copies):\n", label, len(g.Paths)); err != nil {
				return err
			}
		}
		for _, p := range g.Paths {
			if _, err := fmt.Fprintf(w, "  %s\n", p); err != nil {
				return err
			}
		}
		return nil
	}

	switch out.Mode {
	case 1:
		if len(out.Groups) == 0 {
			_, err := fmt.Fprintln(w, "no duplicates found")
			return err
		}
		for _, g := range out.Groups {
			if err := printGroup(g); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
	default:
		if len(out.Files) == 0 && len(out.Dirs) == 0 {
			_, err := fmt.Fprintln(w, "no duplicates found")
			return err
		}
		if len(out.Files) > 0 {
			if _, err := fmt.Fprintln(w, "Duplicate files:"); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			for _, g := range out.Files {
				if err := printGroup(g); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			}
		}
		if len(out.Dirs) > 0 {
			if _, err := fmt.Fprintln(w, "Duplicate directories:"); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			for _, g := range out.Dirs {
				if err := printGroup(g); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			}
		}
	}
	return nil
}

func init() {
	cmd.Register(findCmd)
}

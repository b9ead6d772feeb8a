package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/linelog/internal/record"
)

type tailOptions struct {
	filter filterFlags
	lines  int
	follow bool
	json   bool
	full   bool
}

func newTailCmd(a *app) *cobra.Command {
	opts := &tailOptions{}
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent records of the active file",
		Long: `Print the last records of the active log file and optionally keep
printing new ones as they are appended. Following survives rotation.

Examples:
  # Last 20 records
  linelog tail -n 20

  # Follow warnings and above
  linelog tail -f --min-level warning`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(cmd, a, opts)
		},
	}

	opts.filter.register(cmd.Flags())
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 10, "Number of records to show (0 for none)")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Keep printing records as they are appended")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print one JSON object per record")
	cmd.Flags().BoolVar(&opts.full, "full", true, "Print context, stack traces and continuation lines")
	return cmd
}

func runTail(cmd *cobra.Command, a *app, opts *tailOptions) error {
	if opts.lines < 0 {
		return fmt.Errorf("--lines must not be negative")
	}
	f, err := opts.filter.build(time.Now())
	if err != nil {
		return err
	}
	rd, err := a.openReader()
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout(), opts.json, opts.full)

	if opts.lines > 0 {
		// Only the active file: its records are the most recent ones.
		ring := make([]record.Record, 0, opts.lines)
		scan := rd.Enumerate(cmd.Context(), f)
		for r := range scan.ActiveOnly() {
			if len(ring) == opts.lines {
				copy(ring, ring[1:])
				ring = ring[:len(ring)-1]
			}
			ring = append(ring, r)
		}
		if err := scan.Err(); err != nil {
			return err
		}
		for _, r := range ring {
			if err := p.print(r); err != nil {
				return err
			}
		}
	}

	if !opts.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rd.Follow(ctx, f, false, p.print)
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Iron-Ham/linelog/internal/reader"
	"github.com/Iron-Ham/linelog/internal/record"
)

// filterFlags are the record selection flags shared by query and tail.
type filterFlags struct {
	levels   string
	minLevel string
	category string
	side     string
	since    string
	until    string
	contains string
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.levels, "levels", "", "Level letters to include, e.g. EWC (T D I W E C)")
	fs.StringVar(&f.minLevel, "min-level", "", "Lowest level to include (trace/debug/information/warning/error/critical)")
	fs.StringVar(&f.category, "category", "", "Category glob: MyApp.* for one segment, MyApp.** for any depth")
	fs.StringVar(&f.side, "side", "", "Only server or client records")
	fs.StringVar(&f.since, "since", "", "Records at or after this time (RFC 3339) or duration ago (e.g. 1h)")
	fs.StringVar(&f.until, "until", "", "Records at or before this time (RFC 3339) or duration ago")
	fs.StringVar(&f.contains, "contains", "", "Case-insensitive text the message must contain")
}

func (f *filterFlags) build(now time.Time) (reader.Filter, error) {
	var out reader.Filter

	if f.levels != "" && f.minLevel != "" {
		return out, fmt.Errorf("use either --levels or --min-level, not both")
	}
	if f.levels != "" {
		levels, err := reader.ParseLevelSet(f.levels)
		if err != nil {
			return out, err
		}
		out.Levels = levels
	}
	if f.minLevel != "" {
		level, err := record.ParseLevel(f.minLevel)
		if err != nil {
			return out, err
		}
		if level == record.LevelNone {
			return out, fmt.Errorf("--min-level must name a real level")
		}
		out.Levels = reader.LevelsAtLeast(level)
	}
	if f.side != "" {
		side, err := record.ParseSide(f.side)
		if err != nil {
			return out, err
		}
		out.Side = &side
	}

	var err error
	if out.Since, err = parseTimeFlag(f.since, now); err != nil {
		return out, err
	}
	if out.Until, err = parseTimeFlag(f.until, now); err != nil {
		return out, err
	}
	out.Category = f.category
	out.Contains = f.contains

	return out, out.Validate()
}

type queryOptions struct {
	filter filterFlags
	limit  int
	json   bool
	full   bool
	stats  bool
}

func newQueryCmd(a *app) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print records from the log files",
		Long: `Print records from the active log file and its backups, newest file
first, applying the given filters.

Examples:
  # Errors and criticals from the application's billing categories
  linelog query --levels EC --category 'MyApp.Billing.**'

  # Client faults from the last hour as JSON lines
  linelog query --side client --since 1h --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, a, opts)
		},
	}

	opts.filter.register(cmd.Flags())
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum records to print (0 for all)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print one JSON object per record")
	cmd.Flags().BoolVar(&opts.full, "full", true, "Print context, stack traces and continuation lines")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Print scan statistics to stderr")
	return cmd
}

func runQuery(cmd *cobra.Command, a *app, opts *queryOptions) error {
	if opts.limit < 0 {
		return fmt.Errorf("--limit must not be negative")
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
	scan := rd.Enumerate(cmd.Context(), f)
	printed := 0
	for r := range scan.All() {
		if err := p.print(r); err != nil {
			return err
		}
		printed++
		if opts.limit > 0 && printed >= opts.limit {
			break
		}
	}
	if err := scan.Err(); err != nil {
		return err
	}

	if opts.stats {
		s := scan.Stats()
		fmt.Fprintf(cmd.ErrOrStderr(), "files=%d frames=%d records=%d skipped=%d truncated=%d\n",
			s.Files, s.Frames, s.Records, s.Skipped, s.Truncated)
	}
	return nil
}

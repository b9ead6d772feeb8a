package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/linelog/internal/record"
)

type writeOptions struct {
	level    string
	category string
	context  string
}

func newWriteCmd(a *app) *cobra.Command {
	opts := &writeOptions{}
	cmd := &cobra.Command{
		Use:   "write <message>...",
		Short: "Append one record to the log",
		Long: `Append one server record to the configured log store, rotating first
when a size or day trigger fires. Records below log.min_level are dropped.

Examples:
  linelog write --level warning --category MyApp.Deploy "rollout paused"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, a, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVarP(&opts.level, "level", "l", "information", "Record level")
	cmd.Flags().StringVar(&opts.category, "category", "", "Dotted category (default: the application root)")
	cmd.Flags().StringVar(&opts.context, "context", "", "Context text stored with the record")
	return cmd
}

func runWrite(cmd *cobra.Command, a *app, opts *writeOptions, msg string) error {
	level, err := record.ParseLevel(opts.level)
	if err != nil {
		return err
	}
	if level == record.LevelNone {
		return fmt.Errorf("--level must name a real level")
	}

	e, _, err := a.openEngine()
	if err != nil {
		return err
	}

	log := e.Logger(opts.category)
	if opts.context != "" {
		log = log.WithContext(opts.context)
	}
	enabled := log.Enabled(level)
	log.Log(level, msg, nil)

	if err := e.Close(); err != nil {
		return fmt.Errorf("failed to close log store: %w", err)
	}
	if !enabled {
		fmt.Fprintf(cmd.ErrOrStderr(), "Record dropped: %s is below the minimum level\n", level)
	}
	return nil
}

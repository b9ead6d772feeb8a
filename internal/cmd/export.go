package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all log files into one gzip archive",
		Long: `Write the active log file followed by every backup into one gzip
archive. Without --output the archive is named after the log file and the
current time and written to the working directory. Use "-" for stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, a, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path, or - for stdout")
	return cmd
}

func runExport(cmd *cobra.Command, a *app, output string) error {
	rd, err := a.openReader()
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "-" {
		if output == "" {
			output = rd.ArchiveName(time.Now())
		}
		f, err := os.OpenFile(output, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
		defer f.Close()
		w = f
	}

	n, err := rd.ExportArchive(cmd.Context(), w)
	if err != nil {
		if output != "-" {
			_ = os.Remove(output)
		}
		return fmt.Errorf("failed to export logs: %w", err)
	}

	if output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d bytes of log data to %s\n", n, output)
	}
	return nil
}

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/linelog/internal/api"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server",
		Long: `Open the log store and serve it over HTTP until interrupted:

  GET  /api/v1/logs          query records as JSON
  GET  /api/v1/logs/export   download all files as a gzip archive
  POST /api/v1/logs/client   report client faults
  GET  /metrics              Prometheus metrics
  GET  /healthz              liveness probe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, a, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, a *app, addr string) (err error) {
	e, cfg, err := a.openEngine()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()

	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv := api.New(e, api.Config{
		Addr:            addr,
		ExportRateLimit: cfg.Server.ExportRateLimit,
		MaxQueryLimit:   cfg.Server.MaxQueryLimit,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/devdiag/internal/server"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Scan periodically and publish results over HTTP",
		Long: `Serve runs the scanner on its interval and exposes:

  GET  /api/v1/snapshot   latest snapshot
  GET  /api/v1/history    trend history
  POST /api/v1/scan       rescan now (no-op while a scan is running)
  GET  /metrics           Prometheus metrics
  GET  /healthz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o.cfg, true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			if err := a.scanner.Start(ctx); err != nil {
				return err
			}
			defer a.scanner.Stop()

			srv := server.New(a.scanner, a.registry, a.log.WithName("http"))
			return srv.ListenAndServe(ctx, o.cfg.ListenAddr)
		},
	}
}

package commands

import (
	"github.com/leapstack-labs/starfleet/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game API over HTTP",
		Long: `Start an HTTP server exposing recorded games.

  GET  /healthz
  GET  /api/scenarios
  GET  /api/games?limit=N
  POST /api/games                   {"scenario": "<name or file>"}
  GET  /api/games/{id}
  GET  /api/games/{id}/events       ?format=cloudevents for a CloudEvents batch
  GET  /api/games/{id}/stream       server-sent events, live while the game runs

The server stops gracefully on interrupt.`,
		Example: `  starfleet serve
  starfleet serve --addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, cleanup, err := cmdCtx.OpenStore()
			if err != nil {
				return err
			}
			defer cleanup()

			srv := server.New(server.Config{
				Store:        store,
				Addr:         cmdCtx.Cfg.Serve.Addr,
				ReadTimeout:  cmdCtx.Cfg.Serve.ReadTimeout,
				WriteTimeout: cmdCtx.Cfg.Serve.WriteTimeout,
				ScenariosDir: cmdCtx.Cfg.ScenariosDir,
				Logger:       cmdCtx.Logger,
			})
			defer srv.Close()

			cmdCtx.Renderer.Info("serving on http://" + cmdCtx.Cfg.Serve.Addr)
			return srv.Serve(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "Address to listen on (default "+server.DefaultAddr+")")
	cmd.Flags().Duration("read-timeout", 0, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 0, "HTTP write timeout")
	return cmd
}

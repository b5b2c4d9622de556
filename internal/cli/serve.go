package cli

import (
	"fmt"
	"os"

	"ctfdojo/internal/app"
	"ctfdojo/internal/server"
	"ctfdojo/internal/telemetry"

	clog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *options) *cobra.Command {
	var addr string
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalogs and a websocket game for browsers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("origins") {
				cfg.Server.AllowedOrigins = origins
				// Re-run normalisation on the flag values.
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid configuration: %w", err)
				}
			}
			return runServe(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default 127.0.0.1:8080)")
	cmd.Flags().StringSliceVar(&origins, "origins", nil, "Allowed browser origins, comma separated")
	return cmd
}

func runServe(cmd *cobra.Command, cfg app.Config) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	level := clog.InfoLevel
	if cfg.Debug {
		level = clog.DebugLevel
	}
	log := clog.NewWithOptions(os.Stderr, clog.Options{
		Prefix:          "ctfdojo-server",
		Level:           level,
		ReportTimestamp: true,
	})

	events, err := telemetry.NewJSONLogger(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("open telemetry log: %w", err)
	}
	defer events.Close()

	cats, err := app.LoadCatalogs(ctx, cfg.CatalogDir)
	if err != nil {
		return err
	}
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(server.Options{
		Config:   cfg.Server,
		Catalogs: cats,
		Store:    store,
		Logger:   events,
		Log:      log,
		Duration: cfg.DurationSeconds,
		Seed:     cfg.Seed,
	})
	return srv.ListenAndServe(ctx)
}

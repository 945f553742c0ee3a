package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/molnotation/internal/app"
	"github.com/turtacn/molnotation/internal/config"
	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/molnotation/internal/interfaces/http"
)

// NewServeCmd creates the serve command, which runs the HTTP API with the
// infrastructure enabled in the configuration.
func NewServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return RunServer(ctx, cfg, cliCtx.ConfigPath)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}

// RunServer assembles the App, serves until ctx ends and closes everything.
// A config file is watched for hot-reloadable settings.
func RunServer(ctx context.Context, cfg *config.Config, configPath string) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.Start(ctx)

	if configPath != "" {
		err := config.Watch(configPath,
			func(next *config.Config) {
				a.ApplyConfig(next)
				a.Logger.Info("configuration reloaded", logging.String("path", configPath))
			},
			func(err error) {
				a.Logger.Error("configuration reload failed", logging.Err(err))
			})
		if err != nil {
			a.Logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	router := httpapi.NewRouter(httpapi.FromApp(a, Version))
	return httpapi.NewServer(cfg.Server, router, a.Logger).Run(ctx)
}

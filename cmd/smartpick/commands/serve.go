package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/smartpick/api"
	"github.com/use-agent/smartpick/pipeline"
	"github.com/use-agent/smartpick/webhook"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the JSON API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			initLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)

			slog.Info("smartpick starting",
				"host", cfg.Server.Host,
				"port", cfg.Server.Port,
				"mode", cfg.Server.Mode,
				"source", cfg.Source.BaseURL,
				"fetchMode", cfg.Fetch.Mode,
			)

			var hook *webhook.Sender
			if cfg.Webhook.URL != "" {
				hook = webhook.NewSender(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Retries)
			}

			router := api.NewRouter(pipeline.New(cfg), cfg, hook, time.Now())

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				slog.Info("HTTP server listening", "addr", addr)
				serveErr <- srv.ListenAndServe()
			}()

			select {
			case err := <-serveErr:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
				slog.Info("shutdown signal received")
			}

			// Give in-flight requests 5 seconds to complete.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				slog.Error("HTTP server forced shutdown", "error", err)
			} else {
				slog.Info("HTTP server drained gracefully")
			}
			slog.Info("smartpick stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default from SMARTPICK_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from SMARTPICK_PORT)")
	return cmd
}

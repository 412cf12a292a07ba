package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/app"
	chiTransport "github.com/kailas-cloud/docsage/internal/transport/chi"
	"github.com/kailas-cloud/docsage/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the draft and review HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("port") {
				a.Config.HTTP.Port = port
			}
			return serve(ctx, a)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides http.port)")
	return cmd
}

// serve blocks until ctx is cancelled, then shuts the server down gracefully.
func serve(ctx context.Context, a *app.App) error {
	cfg := a.Config
	logger := a.Logger

	logger.Info("Starting docsage API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", cfg.Environment),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vector_backend", cfg.VectorIndex.Backend),
	)

	server := chiTransport.NewServer(a.Pipeline, a.Health, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router(cfg.Auth.APIKeys),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

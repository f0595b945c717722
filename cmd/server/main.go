package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/roomhub/internal/api"
	"github.com/mcoot/roomhub/internal/config"
	"github.com/mcoot/roomhub/internal/factory"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "roomhub",
		Short: "Realtime room coordination server",
		Long: `roomhub serves the room coordination WebSocket at /ws and the JSON API
under /api/v1.

Settings come from roomhub.yaml (./config, . or /etc/roomhub), overridden by
ROOMHUB_* environment variables such as ROOMHUB_SERVER_PORT.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a config file")

	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	app, err := factory.New(factory.FromConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to release resources", slog.Any("error", err))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Engine:      app.Engine,
		Notifier:    app.Notifier,
		WebSocket:   app.WebSocket,
	})

	server := api.NewServer(router, api.ServerConfigFrom(cfg.Server), logger)
	server.RegisterOnShutdown(app.WebSocket.Close)

	ln, err := net.Listen("tcp", server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr(), err)
	}

	logger.Info("server started",
		slog.String("addr", ln.Addr().String()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("notifier", cfg.Notifier.Type))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		return server.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

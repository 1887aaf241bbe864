package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/krishotte/env-monitor/internal/config"
	"github.com/krishotte/env-monitor/internal/httpapi"
	"github.com/krishotte/env-monitor/internal/visualizer"
	"github.com/krishotte/env-monitor/internal/visualizer/views"
)

func RunVisualizer(ctx context.Context, cfg config.Visualizer) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sourceURL", cfg.SourceURL,
		"deviceLabel", cfg.DeviceLabel,
		"variable", cfg.Variable,
		"pageSize", cfg.PageSize,
		"pollInterval", cfg.PollInterval,
		"window", cfg.Window,
	)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	poller := visualizer.RegisterFeature(mux, cfg)
	srv := httpapi.NewServer(cfg.HTTPAddr, mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return httpapi.Serve(gctx, srv) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

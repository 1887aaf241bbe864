package visualizer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/krishotte/env-monitor/internal/config"
	"github.com/krishotte/env-monitor/internal/httpapi"
)

// RegisterFeature wires the chart routes and health check onto mux and
// returns the poller the caller must run.
func RegisterFeature(mux *http.ServeMux, cfg config.Visualizer) *Poller {
	src := &Source{
		BaseURL:  cfg.SourceURL,
		Token:    cfg.SourceToken,
		Device:   cfg.DeviceLabel,
		Variable: cfg.Variable,
	}
	series := NewSeries(cfg.Window)
	poller := NewPoller(src, series, cfg.PageSize, cfg.PollInterval)

	NewController(series, poller, cfg.DeviceLabel, cfg.Variable, cfg.PollInterval).RegisterRoutes(mux)
	httpapi.RegisterHealthz(mux, healthCheck(poller, 5*cfg.PollInterval))
	return poller
}

// healthCheck fails when no fetch has succeeded within stale.
func healthCheck(p *Poller, stale time.Duration) httpapi.Check {
	return func(context.Context) error {
		last := p.LastSuccess()
		if last.IsZero() {
			if err := p.Err(); err != nil {
				return err
			}
			return errors.New("no data fetched yet")
		}
		if time.Since(last) > stale {
			return errors.New("data source stale since " + last.UTC().Format(time.RFC3339))
		}
		return nil
	}
}

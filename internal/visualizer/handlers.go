package visualizer

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/krishotte/env-monitor/internal/httpapi"
	"github.com/krishotte/env-monitor/internal/visualizer/views"
)

type Controller struct {
	series   *Series
	poller   *Poller
	device   string
	variable string
	refresh  time.Duration
}

func NewController(series *Series, poller *Poller, device, variable string, refresh time.Duration) *Controller {
	return &Controller{series: series, poller: poller, device: device, variable: variable, refresh: refresh}
}

func (c *Controller) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /api/series", c.handleSeries)
	mux.HandleFunc("POST /api/view", c.handleSetView)
}

// applyView moves the window when both start and end are given.
func (c *Controller) applyView(r *http.Request) error {
	q := r.URL.Query()
	rawStart, rawEnd := q.Get("start"), q.Get("end")
	if rawStart == "" && rawEnd == "" {
		return nil
	}
	start, err := strconv.Atoi(rawStart)
	if err != nil {
		return fmt.Errorf("invalid start %q", rawStart)
	}
	end, err := strconv.Atoi(rawEnd)
	if err != nil {
		return fmt.Errorf("invalid end %q", rawEnd)
	}
	return c.series.SetView(start, end)
}

func (c *Controller) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := &views.PageData{
		Device:       c.device,
		Variable:     c.variable,
		RefreshEvery: max(1, int(c.refresh/time.Second)),
	}
	if err := c.applyView(r); err != nil {
		data.Error = err.Error()
	} else if c.poller != nil {
		if err := c.poller.Err(); err != nil {
			data.Error = "data source: " + err.Error()
		}
	}

	v := c.series.View()
	samples := make([]views.Sample, len(v.Points))
	for i, p := range v.Points {
		samples[i] = views.Sample{Time: p.Time, Value: p.Value}
	}
	data.Chart = views.BuildChart(samples)
	data.Start, data.End, data.Total, data.Pinned = v.Start, v.End, v.Total, v.Pinned
	if last, ok := c.series.Last(); ok {
		data.Last = &views.Sample{Time: last.Time, Value: last.Value}
	}

	var buf bytes.Buffer
	if err := views.RenderPage(&buf, data); err != nil {
		slog.Error("render page failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (c *Controller) handleSeries(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, c.series.View())
}

func (c *Controller) handleSetView(w http.ResponseWriter, r *http.Request) {
	if err := c.applyView(r); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, c.series.View())
}

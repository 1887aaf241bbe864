package visualizer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Fetcher interface {
	Fetch(ctx context.Context, pageSize int) ([]Point, error)
}

// Poller fills a Series: one bulk load, then the newest point every interval.
type Poller struct {
	src      Fetcher
	series   *Series
	pageSize int
	interval time.Duration

	mu      sync.Mutex
	lastErr error
	lastOK  time.Time
}

func NewPoller(src Fetcher, series *Series, pageSize int, interval time.Duration) *Poller {
	return &Poller{src: src, series: series, pageSize: pageSize, interval: interval}
}

// Load fetches the initial page of history.
func (p *Poller) Load(ctx context.Context) error {
	points, err := p.src.Fetch(ctx, p.pageSize)
	p.record(err)
	if err != nil {
		return err
	}
	p.series.Load(points)
	slog.Info("series loaded", "points", len(points))
	return nil
}

// Update fetches the newest point and appends it when it is new.
func (p *Poller) Update(ctx context.Context) (bool, error) {
	points, err := p.src.Fetch(ctx, 1)
	p.record(err)
	if err != nil {
		return false, err
	}
	if len(points) == 0 {
		return false, nil
	}
	latest := points[len(points)-1]
	added := p.series.Append(latest)
	if added {
		slog.Debug("series point added", "time", latest.Time, "value", latest.Value)
	}
	return added, nil
}

// Run loads history, retrying each tick until it succeeds, then keeps
// updating until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	loaded := p.Load(ctx) == nil
	if !loaded {
		slog.Warn("initial load failed, will retry", "error", p.Err())
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !loaded {
			loaded = p.Load(ctx) == nil
			continue
		}
		if _, err := p.Update(ctx); err != nil {
			slog.Warn("series update failed", "error", err)
		}
	}
}

func (p *Poller) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err == nil {
		p.lastOK = time.Now()
	}
}

// Err is the result of the most recent fetch.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Poller) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOK
}

package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krishotte/env-monitor/internal/types"
)

// Sink receives every stored reading. Sink errors are logged and never fail
// an ingest.
type Sink interface {
	Name() string
	Publish(ctx context.Context, sr types.StoredReading) error
}

type Service struct {
	repo  Repository
	sinks []Sink
	now   func() time.Time
}

func NewService(repo Repository, sinks ...Sink) *Service {
	return &Service{repo: repo, sinks: sinks, now: time.Now}
}

func (s *Service) Ingest(ctx context.Context, label string, r types.Reading) (types.StoredReading, error) {
	sr, err := s.repo.InsertReading(ctx, label, s.now(), r)
	if err != nil {
		return types.StoredReading{}, fmt.Errorf("store reading for %s: %w", label, err)
	}
	slog.Info("reading stored",
		"device", label,
		"id", sr.ID,
		"temperature", r.Temperature,
		"pressure", r.Pressure,
		"humidity", r.Humidity,
		"battery", r.Battery,
	)

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, sr); err != nil {
			slog.Warn("sink publish failed", "sink", sink.Name(), "device", label, "error", err)
		}
	}
	return sr, nil
}

// Values returns the newest pageSize values of one variable, newest first,
// in the Ubidots listing shape.
func (s *Service) Values(ctx context.Context, label, variable string, pageSize int) (types.ValuesPage, error) {
	readings, err := s.repo.LatestReadings(ctx, label, pageSize)
	if err != nil {
		return types.ValuesPage{}, err
	}
	page := types.ValuesPage{Results: make([]types.Value, 0, len(readings))}
	for _, r := range readings {
		v, ok := r.Value(variable)
		if !ok {
			return types.ValuesPage{}, fmt.Errorf("unknown variable %q", variable)
		}
		page.Results = append(page.Results, types.Value{Timestamp: r.Timestamp.UnixMilli(), Value: v})
	}
	page.Count = len(page.Results)
	return page, nil
}

func (s *Service) Latest(ctx context.Context, label string, limit int) ([]types.StoredReading, error) {
	return s.repo.LatestReadings(ctx, label, limit)
}

func (s *Service) Devices(ctx context.Context) ([]Device, error) {
	return s.repo.Devices(ctx)
}

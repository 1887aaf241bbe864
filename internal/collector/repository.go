package collector

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/krishotte/env-monitor/internal/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/upsert-device.sql
var upsertDeviceSQL string

//go:embed sql/get-latest-readings.sql
var getLatestReadingsSQL string

//go:embed sql/get-devices.sql
var getDevicesSQL string

// tsLayout is fixed width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

type Device struct {
	Label     string    `json:"label"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Uploads   int       `json:"uploads"`
}

type Repository interface {
	InsertReading(ctx context.Context, label string, ts time.Time, r types.Reading) (types.StoredReading, error)
	LatestReadings(ctx context.Context, label string, limit int) ([]types.StoredReading, error)
	Devices(ctx context.Context) ([]Device, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repositoryImpl{db: db}
}

// InsertReading stores r and bumps the device's upload counter in one
// transaction.
func (s *repositoryImpl) InsertReading(ctx context.Context, label string, ts time.Time, r types.Reading) (types.StoredReading, error) {
	ts = ts.UTC()
	stamp := ts.Format(tsLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.StoredReading{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, insertReadingSQL, label, stamp, r.Temperature, r.Pressure, r.Humidity, r.Battery)
	if err != nil {
		return types.StoredReading{}, fmt.Errorf("insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.StoredReading{}, err
	}
	if _, err := tx.ExecContext(ctx, upsertDeviceSQL, label, stamp, stamp); err != nil {
		return types.StoredReading{}, fmt.Errorf("upsert device: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.StoredReading{}, err
	}
	return types.StoredReading{ID: id, DeviceLabel: label, Timestamp: ts, Reading: r}, nil
}

// LatestReadings returns up to limit readings for label, newest first.
func (s *repositoryImpl) LatestReadings(ctx context.Context, label string, limit int) ([]types.StoredReading, error) {
	rows, err := s.db.QueryContext(ctx, getLatestReadingsSQL, label, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	out := []types.StoredReading{}
	for rows.Next() {
		var rec types.StoredReading
		var ts string
		if err := rows.Scan(&rec.ID, &rec.DeviceLabel, &ts,
			&rec.Temperature, &rec.Pressure, &rec.Humidity, &rec.Battery); err != nil {
			return nil, err
		}
		if rec.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *repositoryImpl) Devices(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, getDevicesSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close devices rows", "error", err)
		}
	}()

	out := []Device{}
	for rows.Next() {
		var d Device
		var first, last string
		if err := rows.Scan(&d.Label, &first, &last, &d.Uploads); err != nil {
			return nil, err
		}
		if d.FirstSeen, err = parseTime(first); err != nil {
			return nil, err
		}
		if d.LastSeen, err = parseTime(last); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

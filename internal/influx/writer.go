// Package influx mirrors stored readings into InfluxDB 2.x.
package influx

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/krishotte/env-monitor/internal/types"
)

const Measurement = "environment"

type Options struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type Writer struct {
	client influxdb2.Client
	api    api.WriteAPIBlocking
	bucket string
}

func NewWriter(opts Options) *Writer {
	client := influxdb2.NewClient(opts.URL, opts.Token)
	return &Writer{
		client: client,
		api:    client.WriteAPIBlocking(opts.Org, opts.Bucket),
		bucket: opts.Bucket,
	}
}

func (w *Writer) Name() string { return "influx" }

// Point renders sr as one point tagged with the device label.
func Point(sr types.StoredReading) *write.Point {
	return influxdb2.NewPoint(Measurement,
		map[string]string{"device": sr.DeviceLabel},
		map[string]interface{}{
			"temperature": sr.Temperature,
			"pressure":    sr.Pressure,
			"humidity":    sr.Humidity,
			"battery":     sr.Battery,
		},
		sr.Timestamp,
	)
}

func (w *Writer) Publish(ctx context.Context, sr types.StoredReading) error {
	if err := w.api.WritePoint(ctx, Point(sr)); err != nil {
		return fmt.Errorf("influx write to %s: %w", w.bucket, err)
	}
	return nil
}

func (w *Writer) Close() {
	w.client.Close()
}

// Package node runs one wake cycle of the sensor node: sample the battery,
// bring the link up, read the environment, upload, tear the link down and
// pick how long to sleep.
package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/krishotte/env-monitor/internal/battery"
	"github.com/krishotte/env-monitor/internal/indicator"
	"github.com/krishotte/env-monitor/internal/sensor"
	"github.com/krishotte/env-monitor/internal/settings"
	"github.com/krishotte/env-monitor/internal/types"
	"github.com/krishotte/env-monitor/internal/upload"
)

type BatteryReader interface {
	Read(ctx context.Context) (battery.Sample, error)
}

type EnvReader interface {
	Read(ctx context.Context) (sensor.Environment, error)
}

type Network interface {
	Connect(ctx context.Context) (bool, error)
	Teardown(ctx context.Context)
}

type Uploader interface {
	Upload(ctx context.Context, payload []byte) (bool, error)
}

type Indicator interface {
	Set(level int) error
}

// Sleeper enters deep sleep. On real hardware it does not return control to
// a running cycle; the next wake starts a new process.
type Sleeper interface {
	DeepSleep(ctx context.Context, d time.Duration) error
}

type Deps struct {
	Battery   BatteryReader
	Sensor    EnvReader
	Network   Network
	Uploader  Uploader
	Indicator Indicator
	Sleeper   Sleeper
}

// Policy holds the battery and sleep settings of a cycle.
type Policy struct {
	BatteryThreshold float64
	Period           time.Duration
	LowBatteryFactor int
}

// DefaultPeriod is the sleep period used when deepsleep_period is missing
// or not positive.
const DefaultPeriod = 10 * time.Second

func PolicyFrom(s *settings.Store) Policy {
	p := Policy{
		BatteryThreshold: s.Float("batt_threshold", 0),
		Period:           s.Millis("deepsleep_period", DefaultPeriod),
		LowBatteryFactor: s.Int("low_battery_factor", 300),
	}
	if p.Period <= 0 {
		p.Period = DefaultPeriod
	}
	return p
}

// SleepFor is Period, stretched by LowBatteryFactor when low is set.
func (p Policy) SleepFor(low bool) time.Duration {
	if low {
		return p.Period * time.Duration(p.LowBatteryFactor)
	}
	return p.Period
}

type UploadResult int

const (
	NotAttempted UploadResult = iota
	Uploaded
	Rejected
	RequestFailed
	SocketFailed
)

func (r UploadResult) String() string {
	switch r {
	case NotAttempted:
		return "not_attempted"
	case Uploaded:
		return "uploaded"
	case Rejected:
		return "rejected"
	case RequestFailed:
		return "request_error"
	case SocketFailed:
		return "socket_error"
	default:
		return fmt.Sprintf("UploadResult(%d)", int(r))
	}
}

// Report describes a finished cycle.
type Report struct {
	Battery    battery.Sample
	LowBattery bool
	Reachable  bool
	Reading    types.Reading
	Upload     UploadResult
	UploadErr  error
	Indicator  int
	Sleep      time.Duration
}

type Controller struct {
	deps   Deps
	policy Policy
	levels indicator.Levels

	teardownTimeout time.Duration
	level           int
}

func NewController(deps Deps, policy Policy, levels indicator.Levels) *Controller {
	if policy.Period <= 0 {
		policy.Period = DefaultPeriod
	}
	if policy.LowBatteryFactor <= 0 {
		policy.LowBatteryFactor = 300
	}
	return &Controller{
		deps:            deps,
		policy:          policy,
		levels:          levels,
		teardownTimeout: 30 * time.Second,
	}
}

// Run executes one cycle and then deep sleep. Recoverable upload failures
// are recorded in the report; any other failure is returned before sleep is
// entered.
func (c *Controller) Run(ctx context.Context) (Report, error) {
	rep, err := c.Cycle(ctx)
	if err != nil {
		return rep, err
	}

	slog.Info("cycle finished",
		"battery_v", rep.Battery.Calibrated,
		"low_battery", rep.LowBattery,
		"reachable", rep.Reachable,
		"upload", rep.Upload.String(),
		"indicator", rep.Indicator,
		"sleep", rep.Sleep.String(),
	)
	if err := c.deps.Sleeper.DeepSleep(ctx, rep.Sleep); err != nil {
		return rep, fmt.Errorf("deep sleep: %w", err)
	}
	return rep, nil
}

// Cycle is Run without the final deep sleep.
func (c *Controller) Cycle(ctx context.Context) (rep Report, err error) {
	sample, err := c.deps.Battery.Read(ctx)
	if err != nil {
		return rep, fmt.Errorf("read battery: %w", err)
	}
	rep.Battery = sample
	rep.LowBattery = sample.Low(c.policy.BatteryThreshold)
	rep.Sleep = c.policy.SleepFor(rep.LowBattery)
	if rep.LowBattery {
		slog.Warn("battery low", "calibrated_v", sample.Calibrated, "threshold_v", c.policy.BatteryThreshold)
	}

	c.setIndicator(c.levels.Connecting)
	defer func() {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.teardownTimeout)
		defer cancel()
		c.deps.Network.Teardown(tctx)
		rep.Indicator = c.level
	}()

	reachable, err := c.deps.Network.Connect(ctx)
	if err != nil {
		return rep, fmt.Errorf("connect: %w", err)
	}
	rep.Reachable = reachable
	if reachable {
		c.setIndicator(c.levels.Connected)
	} else {
		c.setIndicator(c.levels.Off)
	}

	env, err := c.deps.Sensor.Read(ctx)
	if err != nil {
		return rep, fmt.Errorf("read environment: %w", err)
	}
	rep.Reading = types.Reading{
		Temperature: env.Temperature,
		Pressure:    env.Pressure,
		Humidity:    env.Humidity,
		Battery:     sample.Calibrated,
	}
	slog.Info("environment",
		"temperature", rep.Reading.Temperature,
		"pressure", rep.Reading.Pressure,
		"humidity", rep.Reading.Humidity,
		"battery", rep.Reading.Battery,
	)

	payload, err := json.Marshal(rep.Reading)
	if err != nil {
		return rep, fmt.Errorf("encode reading: %w", err)
	}

	ok, err := c.deps.Uploader.Upload(ctx, payload)
	switch {
	case err == nil && ok:
		rep.Upload = Uploaded
		c.setIndicator(c.levels.Connected)
	case err == nil:
		rep.Upload = Rejected
		c.setIndicator(c.levels.RequestError)
	case errors.Is(err, upload.ErrSocket):
		rep.Upload, rep.UploadErr = SocketFailed, err
		slog.Error("upload failed, check link", "error", err)
		c.setIndicator(c.levels.SocketError)
	case errors.Is(err, upload.ErrRequest):
		rep.Upload, rep.UploadErr = RequestFailed, err
		slog.Error("upload failed, check credentials", "error", err)
		c.setIndicator(c.levels.RequestError)
	default:
		return rep, fmt.Errorf("upload: %w", err)
	}
	return rep, nil
}

func (c *Controller) setIndicator(level int) {
	if err := c.deps.Indicator.Set(level); err != nil {
		slog.Warn("indicator write failed", "level", level, "error", err)
		return
	}
	c.level = level
}

// Package sensor takes one-shot temperature, pressure and humidity readings
// from a BME280.
package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// DefaultSettle is how long the device is given between the discarded first
// conversion and the one that is kept.
const DefaultSettle = 1500 * time.Millisecond

// Environment is one compensated reading in °C, hPa and %RH.
type Environment struct {
	Temperature float64
	Pressure    float64
	Humidity    float64
}

// Device is satisfied by *bmxx80.Dev.
type Device interface {
	Sense(env *physic.Env) error
}

type Sensor struct {
	dev    Device
	settle time.Duration
}

func New(dev Device, settle time.Duration) *Sensor {
	return &Sensor{dev: dev, settle: settle}
}

// OpenBME280 opens a BME280 at addr on bus with the driver's default
// oversampling.
func OpenBME280(bus i2c.Bus, addr uint16) (*bmxx80.Dev, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("sensor: bme280 at %#x: %w", addr, err)
	}
	return dev, nil
}

// Read discards one conversion, waits the settle time, and returns the next.
func (s *Sensor) Read(ctx context.Context) (Environment, error) {
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return Environment{}, fmt.Errorf("sensor: warm-up read: %w", err)
	}

	t := time.NewTimer(s.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Environment{}, ctx.Err()
	case <-t.C:
	}

	if err := s.dev.Sense(&env); err != nil {
		return Environment{}, fmt.Errorf("sensor: read: %w", err)
	}

	out := Convert(env)
	slog.Debug("environment sampled",
		"temperature", out.Temperature,
		"pressure", out.Pressure,
		"humidity", out.Humidity,
	)
	return out, nil
}

// Convert turns periph fixed-point units into °C, hPa and %RH.
func Convert(env physic.Env) Environment {
	return Environment{
		Temperature: env.Temperature.Celsius(),
		Pressure:    float64(env.Pressure) / float64(100*physic.Pascal),
		Humidity:    float64(env.Humidity) / float64(physic.PercentRH),
	}
}

// Static is a Device that reports a fixed environment. Used for dry runs.
type Static struct {
	Env physic.Env
}

func (s Static) Sense(env *physic.Env) error {
	*env = s.Env
	return nil
}

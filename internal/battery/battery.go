// Package battery samples the supply voltage through an ADC behind a
// resistive divider.
package battery

import (
	"context"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// Sample is one battery measurement. Measured is the voltage at the battery
// terminals inferred through the divider; Calibrated adds the fixed
// correction offset and is what the low-battery check compares.
type Sample struct {
	Raw        int32
	Measured   float64
	Calibrated float64
}

// Pin is the subset of analog.PinADC the monitor needs.
type Pin interface {
	Read() (analog.Sample, error)
}

type Monitor struct {
	pin        Pin
	divider    float64
	correction float64
}

func NewMonitor(pin Pin, divider, correction float64) *Monitor {
	return &Monitor{pin: pin, divider: divider, correction: correction}
}

func (m *Monitor) Read(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	s, err := m.pin.Read()
	if err != nil {
		return Sample{}, fmt.Errorf("battery: read adc: %w", err)
	}

	pinVolts := float64(s.V) / float64(physic.Volt)
	measured := pinVolts * m.divider
	out := Sample{
		Raw:        s.Raw,
		Measured:   measured,
		Calibrated: measured + m.correction,
	}
	slog.Debug("battery sampled", "raw", out.Raw, "measured", out.Measured, "calibrated", out.Calibrated)
	return out, nil
}

// Low reports whether the calibrated voltage is under threshold.
func (s Sample) Low(threshold float64) bool {
	return s.Calibrated < threshold
}

var channels = [...]ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// OpenADS1115 returns a single-ended pin on an ADS1115 at addr.
// The 4.096 V range covers a divided single Li-ion cell.
func OpenADS1115(bus i2c.Bus, addr uint16, channel int) (analog.PinADC, error) {
	if channel < 0 || channel >= len(channels) {
		return nil, fmt.Errorf("battery: channel %d out of range", channel)
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		return nil, fmt.Errorf("battery: ads1115: %w", err)
	}
	pin, err := dev.PinForChannel(channels[channel], 4096*physic.MilliVolt, 8*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return nil, fmt.Errorf("battery: ads1115 channel %d: %w", channel, err)
	}
	return pin, nil
}

// Fixed is a Pin that always returns the same voltage. Used for dry runs.
type Fixed struct {
	V physic.ElectricPotential
}

func (f Fixed) Read() (analog.Sample, error) {
	return analog.Sample{V: f.V, Raw: int32(f.V / physic.MilliVolt)}, nil
}

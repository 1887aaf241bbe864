// Package indicator drives the single status LED whose PWM duty encodes node
// health. Levels use the 0..1023 duty scale regardless of the underlying
// hardware resolution.
package indicator

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	"github.com/krishotte/env-monitor/internal/settings"
	"github.com/krishotte/env-monitor/internal/x/mathx"
)

const MaxLevel = 1023

// Levels names the duty levels used across a wake cycle.
//
// Connecting and RequestError share 100 by default, so a failed upload
// cannot be told apart from a cycle still connecting.
type Levels struct {
	Connecting   int
	Connected    int
	Off          int
	SocketError  int
	RequestError int
}

func DefaultLevels() Levels {
	return Levels{
		Connecting:   100,
		Connected:    10,
		Off:          0,
		SocketError:  25,
		RequestError: 100,
	}
}

// LevelsFrom reads led_* overrides from the settings file.
func LevelsFrom(s *settings.Store) Levels {
	d := DefaultLevels()
	return Levels{
		Connecting:   mathx.Clamp(s.Int("led_connecting", d.Connecting), 0, MaxLevel),
		Connected:    mathx.Clamp(s.Int("led_connected", d.Connected), 0, MaxLevel),
		Off:          mathx.Clamp(s.Int("led_off", d.Off), 0, MaxLevel),
		SocketError:  mathx.Clamp(s.Int("led_socket_error", d.SocketError), 0, MaxLevel),
		RequestError: mathx.Clamp(s.Int("led_request_error", d.RequestError), 0, MaxLevel),
	}
}

// PWM drives a GPIO pin with hardware PWM.
type PWM struct {
	pin   gpio.PinIO
	freq  physic.Frequency
	level int
}

// NewPWM looks up pinName in the periph registry. host.Init must have run.
func NewPWM(pinName string, freq physic.Frequency) (*PWM, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("indicator: unknown pin %q", pinName)
	}
	return &PWM{pin: pin, freq: freq}, nil
}

func (p *PWM) Set(level int) error {
	level = mathx.Clamp(level, 0, MaxLevel)
	duty := gpio.Duty(mathx.Scale(int64(level), MaxLevel, int64(gpio.DutyMax)))
	if err := p.pin.PWM(duty, p.freq); err != nil {
		return fmt.Errorf("indicator: pwm %s: %w", p.pin.Name(), err)
	}
	p.level = level
	slog.Debug("indicator level", "pin", p.pin.Name(), "level", level, "duty", duty.String())
	return nil
}

func (p *PWM) Level() int { return p.level }

// Halt stops PWM output and leaves the pin low.
func (p *PWM) Halt() error {
	if err := p.pin.Halt(); err != nil {
		return err
	}
	return p.pin.Out(gpio.Low)
}

// Recorder keeps every level written to it. Used for dry runs and tests.
type Recorder struct {
	mu      sync.Mutex
	history []int
}

func (r *Recorder) Set(level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, mathx.Clamp(level, 0, MaxLevel))
	return nil
}

func (r *Recorder) Level() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return 0
	}
	return r.history[len(r.history)-1]
}

func (r *Recorder) History() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.history...)
}

package sensor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
)

type scriptedDevice struct {
	envs  []physic.Env
	errs  []error
	calls int
}

func (d *scriptedDevice) Sense(env *physic.Env) error {
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return d.errs[i]
	}
	if i < len(d.envs) {
		*env = d.envs[i]
	}
	return nil
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func sampleEnv() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + 21500*physic.MilliKelvin,
		Pressure:    101325 * physic.Pascal,
		Humidity:    45 * physic.PercentRH,
	}
}

func TestConvert(t *testing.T) {
	got := Convert(sampleEnv())
	if !approx(got.Temperature, 21.5) {
		t.Errorf("Temperature = %v; want 21.5", got.Temperature)
	}
	if !approx(got.Pressure, 1013.25) {
		t.Errorf("Pressure = %v; want 1013.25", got.Pressure)
	}
	if !approx(got.Humidity, 45) {
		t.Errorf("Humidity = %v; want 45", got.Humidity)
	}
}

func TestRead_DiscardsFirstConversion(t *testing.T) {
	dev := &scriptedDevice{envs: []physic.Env{{}, sampleEnv()}}
	s := New(dev, time.Millisecond)

	got, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if dev.calls != 2 {
		t.Errorf("Sense calls = %d; want 2", dev.calls)
	}
	if !approx(got.Humidity, 45) {
		t.Errorf("Humidity = %v; want value from second conversion", got.Humidity)
	}
}

func TestRead_Errors(t *testing.T) {
	boom := errors.New("bus error")

	tests := []struct {
		name string
		errs []error
	}{
		{name: "warm-up fails", errs: []error{boom}},
		{name: "second read fails", errs: []error{nil, boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&scriptedDevice{errs: tt.errs}, 0)
			if _, err := s.Read(context.Background()); !errors.Is(err, boom) {
				t.Errorf("Read() error = %v; want %v", err, boom)
			}
		})
	}
}

func TestRead_CancelledDuringSettle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dev := &scriptedDevice{}
	s := New(dev, time.Hour)
	if _, err := s.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v; want context.Canceled", err)
	}
	if dev.calls != 1 {
		t.Errorf("Sense calls = %d; want 1", dev.calls)
	}
}

func TestStatic(t *testing.T) {
	s := New(Static{Env: sampleEnv()}, 0)
	got, err := s.Read(context.Background())
	if err != nil || !approx(got.Temperature, 21.5) {
		t.Errorf("Read() = %+v, %v", got, err)
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/krishotte/env-monitor/internal/battery"
	"github.com/krishotte/env-monitor/internal/config"
	"github.com/krishotte/env-monitor/internal/indicator"
	"github.com/krishotte/env-monitor/internal/netconn"
	"github.com/krishotte/env-monitor/internal/node"
	"github.com/krishotte/env-monitor/internal/sensor"
	"github.com/krishotte/env-monitor/internal/settings"
	"github.com/krishotte/env-monitor/internal/upload"
)

// RunNode runs wake cycles until ctx is done or a cycle fails. Every wake
// re-reads the settings file and starts from a fresh controller, as after a
// reset; only the opened hardware is kept. When no sleep command is
// configured the process waits out the sleep period itself.
func RunNode(ctx context.Context, cfg config.Node) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"settingsPath", cfg.SettingsPath,
		"i2cBus", cfg.I2CBus,
		"bme280Address", cfg.BME280Address,
		"adcAddress", cfg.ADCAddress,
		"adcChannel", cfg.ADCChannel,
		"statusPin", cfg.StatusPin,
		"wifiIface", cfg.WiFiIface,
		"sleepCommand", cfg.SleepCommand,
		"dryRun", cfg.DryRun,
	)

	st, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return err
	}
	sleeper, err := node.NewHostSleeper(cfg.SleepCommand)
	if err != nil {
		return err
	}

	var hw *hardware
	if cfg.DryRun {
		hw = simulatedHardware()
	} else {
		hw, err = openHardware(cfg, st)
		if err != nil {
			return err
		}
	}
	defer hw.close()

	for {
		ctrl := node.NewController(hw.deps(st, sleeper), node.PolicyFrom(st), indicator.LevelsFrom(st))
		rep, err := ctrl.Run(ctx)
		if err != nil {
			return err
		}
		if cfg.SleepCommand == "" {
			if err := wait(ctx, rep.Sleep); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if st, err = settings.Load(cfg.SettingsPath); err != nil {
			return err
		}
	}
}

// hardware is what a wake cycle borrows from the board.
type hardware struct {
	adc    battery.Pin
	env    sensor.Device
	settle time.Duration
	led    node.Indicator
	radio  netconn.Radio
	prober netconn.Prober
	close  func()
}

// deps builds one cycle's collaborators from the current settings.
func (hw *hardware) deps(st *settings.Store, sleeper node.Sleeper) node.Deps {
	return node.Deps{
		Battery:   battery.NewMonitor(hw.adc, st.Float("batt_divider", 1), st.Float("batt_correction", 0)),
		Sensor:    sensor.New(hw.env, hw.settle),
		Network:   netconn.NewManager(hw.radio, hw.prober, netconn.OptionsFrom(st)),
		Uploader:  upload.New(upload.OptionsFrom(st)),
		Indicator: hw.led,
		Sleeper:   sleeper,
	}
}

func simulatedHardware() *hardware {
	slog.Warn("dry run: hardware and radio are simulated")
	sim := netconn.Simulated{}
	return &hardware{
		adc: battery.Fixed{V: 1950 * physic.MilliVolt},
		env: sensor.Static{Env: physic.Env{
			Temperature: physic.ZeroCelsius + 21500*physic.MilliKelvin,
			Pressure:    101325 * physic.Pascal,
			Humidity:    45 * physic.PercentRH,
		}},
		led:    &indicator.Recorder{},
		radio:  sim,
		prober: sim,
		close:  func() {},
	}
}

func openHardware(cfg config.Node, st *settings.Store) (*hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2CBus, err)
	}

	dev, err := sensor.OpenBME280(bus, cfg.BME280Address)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	adc, err := battery.OpenADS1115(bus, cfg.ADCAddress, cfg.ADCChannel)
	if err != nil {
		_ = dev.Halt()
		_ = bus.Close()
		return nil, err
	}
	freq := physic.Frequency(st.Int("pwm_freq", 5000)) * physic.Hertz
	led, err := indicator.NewPWM(cfg.StatusPin, freq)
	if err != nil {
		_ = adc.Halt()
		_ = dev.Halt()
		_ = bus.Close()
		return nil, err
	}

	return &hardware{
		adc:    adc,
		env:    dev,
		settle: sensor.DefaultSettle,
		led:    led,
		radio:  netconn.NewLinuxRadio(cfg.WiFiIface, cfg.WPACli),
		prober: netconn.NewICMPProber(),
		close: func() {
			for _, h := range []interface{ Halt() error }{led, adc, dev} {
				if err := h.Halt(); err != nil {
					slog.Warn("halt device", "error", err)
				}
			}
			if err := bus.Close(); err != nil {
				slog.Warn("close i2c bus", "error", err)
			}
		},
	}, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

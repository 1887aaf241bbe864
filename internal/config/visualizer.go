package config

import (
	"fmt"
	"time"
)

type Visualizer struct {
	Base
	HTTPAddr string

	// SourceURL is the base of a Ubidots-compatible API, e.g.
	// https://industrial.api.ubidots.com or http://collector:5000.
	SourceURL   string
	SourceToken string
	DeviceLabel string
	Variable    string

	PageSize     int
	PollInterval time.Duration
	Window       int
}

func LoadVisualizerFromEnv() (Visualizer, error) {
	base, err := loadBase()
	if err != nil {
		return Visualizer{}, err
	}

	pageSize, err := envInt("PAGE_SIZE", 5000)
	if err != nil {
		return Visualizer{}, err
	}
	if pageSize <= 0 {
		return Visualizer{}, fmt.Errorf("PAGE_SIZE must be positive, got %d", pageSize)
	}
	pollInterval, err := envDuration("POLL_INTERVAL", "4s")
	if err != nil {
		return Visualizer{}, err
	}
	if pollInterval <= 0 {
		return Visualizer{}, fmt.Errorf("POLL_INTERVAL must be positive, got %v", pollInterval)
	}
	window, err := envInt("WINDOW", 2880)
	if err != nil {
		return Visualizer{}, err
	}
	if window <= 0 {
		return Visualizer{}, fmt.Errorf("WINDOW must be positive, got %d", window)
	}

	return Visualizer{
		Base:         base,
		HTTPAddr:     envString("HTTP_ADDR", ":8080"),
		SourceURL:    envString("SOURCE_URL", "http://localhost:5000"),
		SourceToken:  envString("SOURCE_TOKEN", ""),
		DeviceLabel:  envString("DEVICE_LABEL", "home_env"),
		Variable:     envString("VARIABLE", "humidity"),
		PageSize:     pageSize,
		PollInterval: pollInterval,
		Window:       window,
	}, nil
}

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/krishotte/env-monitor/internal/types"
)

var (
	ErrNotConnected = errors.New("mqtt: not connected")
	ErrStopped      = errors.New("mqtt: publisher stopped")
)

type Options struct {
	Broker   string
	Port     int
	ClientID string
	QoS      byte          // 1 by default
	Timeout  time.Duration // publish acknowledgement wait, 5s by default
}

// Publisher fans stored readings out to stations/<label>/telemetry.
type Publisher struct {
	client paho.Client
	opts   Options

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(opts Options) *Publisher {
	if opts.QoS == 0 {
		opts.QoS = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	p := &Publisher{opts: opts, stopCh: make(chan struct{})}

	co := paho.NewClientOptions()
	co.AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Broker, opts.Port))
	co.SetClientID(opts.ClientID)
	co.SetCleanSession(true)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(5 * time.Second)
	co.SetMaxReconnectInterval(60 * time.Second)
	co.SetKeepAlive(30 * time.Second)
	co.SetPingTimeout(10 * time.Second)

	co.SetOnConnectHandler(func(paho.Client) {
		p.setConnected(true)
		slog.Info("mqtt connected", "broker", opts.Broker, "port", opts.Port)
	})
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.setConnected(false)
		slog.Warn("mqtt connection lost", "error", err)
	})

	p.client = paho.NewClient(co)
	return p
}

// Connect waits for the first connection, giving up when ctx is done or the
// publisher is stopped. Later reconnects happen in the background.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}
	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return ErrStopped
		default:
		}
	}
}

func (p *Publisher) Name() string { return "mqtt" }

func Topic(label string) string {
	return fmt.Sprintf("stations/%s/telemetry", label)
}

func (p *Publisher) Publish(ctx context.Context, sr types.StoredReading) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	topic := Topic(sr.DeviceLabel)
	data, err := json.Marshal(types.TelemetryFrom(sr))
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	token := p.client.Publish(topic, p.opts.QoS, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.opts.Timeout):
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	slog.Debug("published telemetry", "topic", topic, "id", sr.ID)
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect is idempotent. After it, Connect returns ErrStopped.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.client.Disconnect(250)
	p.setConnected(false)
	slog.Info("mqtt disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

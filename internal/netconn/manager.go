// Package netconn brings the node's Wi-Fi link up for one wake cycle and
// takes it down again.
package netconn

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/krishotte/env-monitor/internal/settings"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Radio is the link layer the manager drives.
type Radio interface {
	Configure(ctx context.Context, addr *net.IPNet, gateway net.IP) error
	Associate(ctx context.Context, ssid, passphrase string) error
	LinkUp(ctx context.Context) (bool, error)
	Disassociate(ctx context.Context) error
}

// ProbeStats counts echo requests sent and replies received.
type ProbeStats struct {
	Sent     int
	Received int
}

// Prober sends count echo requests to addr. An error means the probe could
// not run at all (no route, socket failure), not that replies were lost.
type Prober interface {
	Probe(ctx context.Context, addr string, count int) (ProbeStats, error)
}

type Options struct {
	SSID       string
	Passphrase string
	Address    string
	Gateway    string
	Netmask    string // "255.255.255.0" by default

	Settle     time.Duration // 5s by default
	Retries    int           // extra association attempts while the link stays down
	Backoff    time.Duration // pause between association attempts, 3s by default
	ProbeCount int           // 4 by default

	// Sleep waits d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// OptionsFrom reads the connection keys of the settings file.
func OptionsFrom(s *settings.Store) Options {
	return Options{
		SSID:       s.String("ssid", ""),
		Passphrase: s.String("passwd", ""),
		Address:    s.String("ipaddr", ""),
		Gateway:    s.String("gateway", ""),
		Netmask:    s.String("netmask", "255.255.255.0"),
		Settle:     s.Millis("associate_settle", 5*time.Second),
		Retries:    s.Int("associate_retries", 0),
		Backoff:    s.Millis("associate_backoff", 3*time.Second),
		ProbeCount: s.Int("probe_count", 4),
	}
}

type Manager struct {
	radio  Radio
	prober Prober
	opts   Options

	mu    sync.Mutex
	state State
}

func NewManager(radio Radio, prober Prober, opts Options) *Manager {
	if opts.Netmask == "" {
		opts.Netmask = "255.255.255.0"
	}
	if opts.Settle <= 0 {
		opts.Settle = 5 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 3 * time.Second
	}
	if opts.ProbeCount <= 0 {
		opts.ProbeCount = 4
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Manager{radio: radio, prober: prober, opts: opts}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		slog.Debug("netconn: state", "from", prev.String(), "to", s.String())
	}
}

// Connect configures the interface, associates, and probes the gateway.
// It reports whether the gateway answered. Only context cancellation is
// returned as an error.
func (m *Manager) Connect(ctx context.Context) (bool, error) {
	m.Configure(ctx)
	if err := m.Associate(ctx); err != nil {
		return false, err
	}
	ok := m.IsReachable(ctx)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if ok {
		m.setState(Connected)
	} else {
		m.setState(Disconnected)
	}
	return ok, nil
}

// Configure assigns the static address. Failures are logged and otherwise
// ignored; the reachability probe decides whether the link works.
func (m *Manager) Configure(ctx context.Context) {
	addr, gw, err := m.addressing()
	if err != nil {
		slog.Warn("netconn: bad addressing settings", "error", err)
		return
	}
	if err := m.radio.Configure(ctx, addr, gw); err != nil {
		slog.Warn("netconn: configure failed", "addr", addr.String(), "gateway", gw.String(), "error", err)
		return
	}
	slog.Info("netconn: configured", "addr", addr.String(), "gateway", gw.String())
}

func (m *Manager) addressing() (*net.IPNet, net.IP, error) {
	ip := net.ParseIP(m.opts.Address).To4()
	if ip == nil {
		return nil, nil, fmt.Errorf("invalid ipaddr %q", m.opts.Address)
	}
	gw := net.ParseIP(m.opts.Gateway).To4()
	if gw == nil {
		return nil, nil, fmt.Errorf("invalid gateway %q", m.opts.Gateway)
	}
	maskIP := net.ParseIP(m.opts.Netmask).To4()
	if maskIP == nil {
		return nil, nil, fmt.Errorf("invalid netmask %q", m.opts.Netmask)
	}
	mask := net.IPMask(maskIP)
	if ones, bits := mask.Size(); ones == 0 && bits == 0 {
		return nil, nil, fmt.Errorf("non-canonical netmask %q", m.opts.Netmask)
	}
	return &net.IPNet{IP: ip, Mask: mask}, gw, nil
}

// Associate starts association and waits for the link to settle. With
// Retries > 0 it tries again, after Backoff, while the link stays down.
func (m *Manager) Associate(ctx context.Context) error {
	m.setState(Connecting)

	for attempt := 0; ; attempt++ {
		if err := m.radio.Associate(ctx, m.opts.SSID, m.opts.Passphrase); err != nil {
			slog.Warn("netconn: associate failed", "ssid", m.opts.SSID, "attempt", attempt+1, "error", err)
		}
		if err := m.opts.Sleep(ctx, m.opts.Settle); err != nil {
			return err
		}

		up, err := m.radio.LinkUp(ctx)
		if err != nil {
			slog.Debug("netconn: link state unavailable", "error", err)
		}
		slog.Info("netconn: associated", "ssid", m.opts.SSID, "link_up", up, "attempt", attempt+1)
		if up || attempt >= m.opts.Retries {
			return nil
		}

		if err := m.opts.Sleep(ctx, m.opts.Backoff); err != nil {
			return err
		}
	}
}

// IsReachable probes the gateway. Any completed probe run counts as
// reachable, including one with lost replies; only a probe that could not
// run reports false.
func (m *Manager) IsReachable(ctx context.Context) bool {
	stats, err := m.prober.Probe(ctx, m.opts.Gateway, m.opts.ProbeCount)
	if err != nil {
		slog.Warn("netconn: not connected", "gateway", m.opts.Gateway, "error", err)
		return false
	}
	if stats.Received == m.opts.ProbeCount && stats.Sent == m.opts.ProbeCount {
		slog.Info("netconn: connected", "gateway", m.opts.Gateway)
	} else {
		slog.Warn("netconn: some packets lost", "gateway", m.opts.Gateway, "sent", stats.Sent, "received", stats.Received)
	}
	return true
}

// Teardown disassociates and logs whether the gateway still answers.
func (m *Manager) Teardown(ctx context.Context) {
	slog.Info("netconn: disconnecting")
	if err := m.radio.Disassociate(ctx); err != nil {
		slog.Warn("netconn: disassociate failed", "error", err)
	}
	m.setState(Disconnected)
	slog.Info("netconn: disconnected", "reachable", m.IsReachable(ctx))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

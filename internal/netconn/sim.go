package netconn

import (
	"context"
	"log/slog"
	"net"
)

// Simulated stands in for both the radio and the prober on hosts without
// Wi-Fi hardware. Every operation succeeds and every probe is answered.
type Simulated struct{}

func (Simulated) Configure(_ context.Context, addr *net.IPNet, gateway net.IP) error {
	slog.Debug("netconn: simulated configure", "addr", addr.String(), "gateway", gateway.String())
	return nil
}

func (Simulated) Associate(_ context.Context, ssid, _ string) error {
	slog.Debug("netconn: simulated associate", "ssid", ssid)
	return nil
}

func (Simulated) LinkUp(context.Context) (bool, error) { return true, nil }

func (Simulated) Disassociate(context.Context) error { return nil }

func (Simulated) Probe(_ context.Context, _ string, count int) (ProbeStats, error) {
	return ProbeStats{Sent: count, Received: count}, nil
}

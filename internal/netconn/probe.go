package netconn

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ICMPProber sends ICMP echo requests with pro-bing.
type ICMPProber struct {
	Interval   time.Duration
	Timeout    time.Duration
	Privileged bool
}

func NewICMPProber() *ICMPProber {
	return &ICMPProber{
		Interval:   200 * time.Millisecond,
		Timeout:    4 * time.Second,
		Privileged: true,
	}
}

func (p *ICMPProber) Probe(ctx context.Context, addr string, count int) (ProbeStats, error) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return ProbeStats{}, fmt.Errorf("ping %s: %w", addr, err)
	}
	pinger.Count = count
	pinger.Interval = p.Interval
	pinger.Timeout = p.Timeout
	pinger.SetPrivileged(p.Privileged)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	if err := pinger.Run(); err != nil {
		return ProbeStats{}, fmt.Errorf("ping %s: %w", addr, err)
	}
	if err := ctx.Err(); err != nil {
		return ProbeStats{}, err
	}
	st := pinger.Statistics()
	return ProbeStats{Sent: st.PacketsSent, Received: st.PacketsRecv}, nil
}

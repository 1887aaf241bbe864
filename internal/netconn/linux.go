package netconn

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"strings"

	"github.com/vishvananda/netlink"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// LinuxRadio drives a wpa_supplicant-managed interface. Addressing and link
// state go through netlink; association goes through wpa_cli.
type LinuxRadio struct {
	Iface  string
	WPACli string // "wpa_cli" by default
	Run    Runner

	networkID string
}

func NewLinuxRadio(iface, wpaCli string) *LinuxRadio {
	if wpaCli == "" {
		wpaCli = "wpa_cli"
	}
	return &LinuxRadio{Iface: iface, WPACli: wpaCli, Run: execRunner}
}

func (r *LinuxRadio) Configure(_ context.Context, addr *net.IPNet, gateway net.IP) error {
	link, err := netlink.LinkByName(r.Iface)
	if err != nil {
		return fmt.Errorf("link %s: %w", r.Iface, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("link %s up: %w", r.Iface, err)
	}
	if err := netlink.AddrReplace(link, &netlink.Addr{IPNet: addr}); err != nil {
		return fmt.Errorf("addr %s on %s: %w", addr, r.Iface, err)
	}
	route := &netlink.Route{LinkIndex: link.Attrs().Index, Gw: gateway}
	if err := netlink.RouteReplace(route); err != nil {
		return fmt.Errorf("default route via %s: %w", gateway, err)
	}
	return nil
}

func (r *LinuxRadio) Associate(ctx context.Context, ssid, passphrase string) error {
	if r.networkID == "" {
		out, err := r.cli(ctx, "add_network")
		if err != nil {
			return err
		}
		id := lastLine(out)
		if _, err := strconv.Atoi(id); err != nil {
			return fmt.Errorf("wpa_cli add_network: unexpected output %q", id)
		}
		r.networkID = id
	}

	steps := [][]string{
		{"set_network", r.networkID, "ssid", strconv.Quote(ssid)},
		{"set_network", r.networkID, "psk", strconv.Quote(passphrase)},
		{"select_network", r.networkID},
		{"enable_network", r.networkID},
	}
	if passphrase == "" {
		steps[1] = []string{"set_network", r.networkID, "key_mgmt", "NONE"}
	}
	for _, args := range steps {
		if err := r.cliOK(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func (r *LinuxRadio) LinkUp(_ context.Context) (bool, error) {
	link, err := netlink.LinkByName(r.Iface)
	if err != nil {
		return false, fmt.Errorf("link %s: %w", r.Iface, err)
	}
	return link.Attrs().OperState == netlink.OperUp, nil
}

func (r *LinuxRadio) Disassociate(ctx context.Context) error {
	if err := r.cliOK(ctx, "disconnect"); err != nil {
		return err
	}
	if r.networkID != "" {
		if err := r.cliOK(ctx, "remove_network", r.networkID); err != nil {
			slog.Debug("netconn: remove_network failed", "id", r.networkID, "error", err)
		}
		r.networkID = ""
	}
	return nil
}

func (r *LinuxRadio) cli(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-i", r.Iface}, args...)
	out, err := r.Run(ctx, r.WPACli, full...)
	if err != nil {
		return "", fmt.Errorf("wpa_cli %s: %w (%s)", args[0], err, bytes.TrimSpace(out))
	}
	return string(out), nil
}

func (r *LinuxRadio) cliOK(ctx context.Context, args ...string) error {
	out, err := r.cli(ctx, args...)
	if err != nil {
		return err
	}
	if got := lastLine(out); got != "OK" {
		return fmt.Errorf("wpa_cli %s: %s", args[0], got)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

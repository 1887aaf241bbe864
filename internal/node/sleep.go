package node

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

// HostSleeper hands the node over to the platform's wake mechanism. With no
// command configured it only logs; a systemd timer or similar starts the
// next cycle. A command such as "rtcwake -m off -s {seconds}" powers the
// board down until the RTC alarm fires.
type HostSleeper struct {
	argv []string
	run  func(ctx context.Context, name string, args ...string) error
}

// NewHostSleeper parses command with shell quoting rules. The placeholders
// {seconds} and {millis} are substituted with the sleep duration.
func NewHostSleeper(command string) (*HostSleeper, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("sleep command %q: %w", command, err)
	}
	return &HostSleeper{argv: argv, run: runCommand}, nil
}

func (h *HostSleeper) DeepSleep(ctx context.Context, d time.Duration) error {
	wake := time.Now().Add(d)
	slog.Info("entering deep sleep", "duration", d.String(), "wake_at", wake.Format(time.RFC3339))
	if len(h.argv) == 0 {
		return nil
	}

	secs := int64((d + time.Second - 1) / time.Second)
	r := strings.NewReplacer(
		"{seconds}", strconv.FormatInt(secs, 10),
		"{millis}", strconv.FormatInt(d.Milliseconds(), 10),
	)
	args := make([]string, len(h.argv))
	for i, a := range h.argv {
		args[i] = r.Replace(a)
	}
	return h.run(ctx, args[0], args[1:]...)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

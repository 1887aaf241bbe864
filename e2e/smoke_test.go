//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/krishotte/env-monitor/internal/types"
)

const (
	repoRootRel      = ".." // relative to ./e2e
	collectorPkgRel  = "./cmd/collector"
	mosquittoPort    = nat.Port("1883/tcp")
	deviceLabel      = "e2e_node"
	collectorToken   = "e2e-token"
	telemetryTimeout = 10 * time.Second
)

func TestSmoke_CollectorIngestAndFanOut(t *testing.T) {
	repoRoot := repoRootPath(t)
	brokerHost, brokerPort := startMosquitto(t)

	telemetry := subscribeTelemetry(t, brokerHost, brokerPort)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "envdata.db"),
		"COLLECTOR_TOKEN="+collectorToken,
		"MQTT_BROKER="+brokerHost,
		"MQTT_PORT="+strconv.Itoa(brokerPort),
		"MQTT_CLIENT_ID=e2e-collector",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start collector: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr
	waitForOK(t, client, base+"/healthz", 10*time.Second)

	reading := types.Reading{Temperature: 21.5, Pressure: 1013.2, Humidity: 45, Battery: 3.9}
	body, _ := json.Marshal(reading)

	req, _ := http.NewRequest(http.MethodPost, base+"/api/v1.6/devices/"+deviceLabel, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", collectorToken)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST reading: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status=%d want=%d", resp.StatusCode, http.StatusCreated)
	}

	resp, err = client.Get(base + "/envdata-last?device=" + deviceLabel)
	if err != nil {
		t.Fatalf("GET /envdata-last: %v", err)
	}
	var last types.StoredReading
	err = json.NewDecoder(resp.Body).Decode(&last)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode /envdata-last: %v", err)
	}
	if last.Humidity != reading.Humidity || last.DeviceLabel != deviceLabel {
		t.Fatalf("last reading = %+v; want humidity %v for %s", last, reading.Humidity, deviceLabel)
	}

	select {
	case msg := <-telemetry:
		var got types.Telemetry
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("decode telemetry: %v", err)
		}
		if got.StationID != deviceLabel || got.Humidity == nil || *got.Humidity != reading.Humidity {
			t.Fatalf("telemetry = %s; want station %s humidity %v", msg, deviceLabel, reading.Humidity)
		}
	case <-time.After(telemetryTimeout):
		t.Fatal("no telemetry published within timeout")
	}

	stopServer(t, cmd)
}

func startMosquitto(t *testing.T) (string, int) {
	t.Helper()
	ctx := context.Background()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2",
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			ExposedPorts: []string{string(mosquittoPort)},
			WaitingFor:   wait.ForListeningPort(mosquittoPort).WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("mosquitto host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mosquittoPort)
	if err != nil {
		t.Fatalf("mosquitto port: %v", err)
	}
	return host, mapped.Int()
}

func subscribeTelemetry(t *testing.T, host string, port int) <-chan []byte {
	t.Helper()

	opts := paho.NewClientOptions().
		AddBroker("tcp://" + net.JoinHostPort(host, strconv.Itoa(port))).
		SetClientID("e2e-subscriber")
	client := paho.NewClient(opts)
	if tok := client.Connect(); !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		t.Fatalf("subscriber connect: %v", tok.Error())
	}
	t.Cleanup(func() { client.Disconnect(250) })

	out := make(chan []byte, 1)
	topic := "stations/" + deviceLabel + "/telemetry"
	tok := client.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		select {
		case out <- m.Payload():
		default:
		}
	})
	if !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		t.Fatalf("subscribe %s: %v", topic, tok.Error())
	}
	return out
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}
	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), "env-collector")
	build := exec.Command("go", "build", "-o", out, collectorPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()
	if b, err := build.CombinedOutput(); err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}
	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()
	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("collector not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("collector did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("collector exited non-zero: %v", err)
			}
			t.Fatalf("collector wait error: %v", err)
		}
	}
}

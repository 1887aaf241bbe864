// Package upload posts readings to a Ubidots-style device endpoint.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/krishotte/env-monitor/internal/settings"
)

var (
	// ErrRequest marks a request that could not be built or sent as
	// specified: bad URL, bad header value.
	ErrRequest = errors.New("upload: request error")
	// ErrSocket marks a transport failure: dial, read, write, timeout or a
	// malformed response.
	ErrSocket = errors.New("upload: socket error")
)

const DefaultEndpoint = "http://things.ubidots.com/api/v1.6/devices/"

type Options struct {
	Endpoint    string // device label is appended
	DeviceLabel string
	Token       string
	Attempts    int           // 6 by default
	Interval    time.Duration // pause between attempts, 1s by default
	Timeout     time.Duration // per attempt, 10s by default

	Client *http.Client
	Sleep  func(ctx context.Context, d time.Duration) error
}

func OptionsFrom(s *settings.Store) Options {
	return Options{
		Endpoint:    s.String("endpoint", DefaultEndpoint),
		DeviceLabel: s.String("device_label", ""),
		Token:       s.String("token", ""),
		Attempts:    s.Int("upload_attempts", 6),
		Interval:    s.Millis("upload_interval", time.Second),
	}
}

type Uploader struct {
	opts Options
}

func New(opts Options) *Uploader {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 6
	}
	if opts.Interval < 0 {
		opts.Interval = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Uploader{opts: opts}
}

// URL is the endpoint the uploader posts to.
func (u *Uploader) URL() string {
	return u.opts.Endpoint + u.opts.DeviceLabel
}

// Upload posts payload until a status below 400 is seen or the attempts run
// out. It returns false, with a nil error, when every attempt got an HTTP
// error status. Transport failures abort immediately with an error wrapping
// ErrRequest or ErrSocket.
func (u *Uploader) Upload(ctx context.Context, payload []byte) (bool, error) {
	target, err := u.target()
	if err != nil {
		return false, err
	}

	status := 0
	for attempt := 1; attempt <= u.opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := u.opts.Sleep(ctx, u.opts.Interval); err != nil {
				return false, err
			}
		}

		status, err = u.post(ctx, target, payload)
		if err != nil {
			return false, err
		}
		slog.Debug("upload: attempt", "attempt", attempt, "status", status)
		if status < http.StatusBadRequest {
			slog.Info("upload: request made properly", "url", target, "status", status, "attempts", attempt)
			return true, nil
		}
	}

	slog.Error("upload: could not send data, check token and connection",
		"url", target,
		"status", status,
		"attempts", u.opts.Attempts,
	)
	return false, nil
}

func (u *Uploader) target() (string, error) {
	raw := u.URL()
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: url %q: %v", ErrRequest, raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: url %q: unsupported scheme", ErrRequest, raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: url %q: missing host", ErrRequest, raw)
	}
	if !validHeaderValue(u.opts.Token) {
		return "", fmt.Errorf("%w: token is not a valid header value", ErrRequest)
	}
	return parsed.String(), nil
}

func (u *Uploader) post(ctx context.Context, target string, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("X-Auth-Token", u.opts.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.opts.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %v", ErrSocket, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		slog.Debug("upload: drain response", "error", err)
	}
	return resp.StatusCode, nil
}

func validHeaderValue(v string) bool {
	return !strings.ContainsFunc(v, func(r rune) bool {
		return (r < 0x20 && r != '\t') || r == 0x7f
	})
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

package visualizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/krishotte/env-monitor/internal/types"
)

// Point is one sample of the plotted variable.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Source reads a Ubidots-style value listing: the hosted service or the
// collector, which serves the same shape.
type Source struct {
	BaseURL  string
	Token    string
	Device   string
	Variable string
	Client   *http.Client
}

func (s *Source) valuesURL(pageSize int) (string, error) {
	base, err := url.Parse(strings.TrimRight(s.BaseURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("source url %q: %w", s.BaseURL, err)
	}
	u := base.JoinPath("api/v1.6/devices", s.Device, s.Variable, "values/")
	q := url.Values{}
	q.Set("token", s.Token)
	q.Set("page_size", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch returns up to pageSize of the newest points, oldest first.
func (s *Source) Fetch(ctx context.Context, pageSize int) ([]Point, error) {
	target, err := s.valuesURL(pageSize)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch values: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch values: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var page types.ValuesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}

	points := make([]Point, len(page.Results))
	for i, v := range page.Results {
		points[len(points)-1-i] = Point{Time: time.UnixMilli(v.Timestamp).UTC(), Value: v.Value}
	}
	return points, nil
}

package visualizer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/krishotte/env-monitor/internal/httpapi"
	"github.com/krishotte/env-monitor/internal/types"
)

func TestSource_FetchReversesToOldestFirst(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		httpapi.WriteJSON(w, http.StatusOK, types.ValuesPage{
			Count: 2,
			Results: []types.Value{
				{Timestamp: t0.Add(time.Minute).UnixMilli(), Value: 51},
				{Timestamp: t0.UnixMilli(), Value: 50},
			},
		})
	}))
	defer ts.Close()

	src := &Source{BaseURL: ts.URL + "/", Token: "tok", Device: "home_env", Variable: "humidity"}
	points, err := src.Fetch(context.Background(), 2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/api/v1.6/devices/home_env/humidity/values/" {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(gotQuery, "page_size=2") || !strings.Contains(gotQuery, "token=tok") {
		t.Errorf("query = %q; want page_size and token", gotQuery)
	}
	if len(points) != 2 || points[0].Value != 50 || points[1].Value != 51 {
		t.Fatalf("points = %v; want oldest first", points)
	}
	if !points[0].Time.Equal(t0) {
		t.Errorf("points[0].Time = %v; want %v", points[0].Time, t0)
	}
}

func TestSource_FetchStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteError(w, http.StatusUnauthorized, "invalid token")
	}))
	defer ts.Close()

	src := &Source{BaseURL: ts.URL, Device: "d", Variable: "v"}
	_, err := src.Fetch(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("Fetch = %v; want status 401 error", err)
	}
}

func TestSource_FetchBadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer ts.Close()

	src := &Source{BaseURL: ts.URL, Device: "d", Variable: "v"}
	if _, err := src.Fetch(context.Background(), 1); err == nil {
		t.Fatal("Fetch = nil; want decode error")
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]bool{"stored": true})

	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Code = %d; want %d", w.Code, http.StatusCreated)
	}
	var got map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil || !got["stored"] {
		t.Errorf("body = %v, %v", got, err)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusUnauthorized, "bad token")

	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["error"] != "Unauthorized" || got["message"] != "bad token" {
		t.Errorf("body = %v", got)
	}
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name  string
		check Check
		want  int
	}{
		{name: "no check", want: http.StatusOK},
		{name: "passing", check: func(context.Context) error { return nil }, want: http.StatusOK},
		{name: "failing", check: func(context.Context) error { return errors.New("db gone") }, want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			RegisterHealthz(mux, tt.check)
			ts := httptest.NewServer(NewServer(":0", mux).Handler)
			defer ts.Close()

			resp, err := ts.Client().Get(ts.URL + "/healthz")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d; want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHealthz(mux, nil)
	srv := NewServer("127.0.0.1:0", mux)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v; want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

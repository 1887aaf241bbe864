package httpapi

import (
	"context"
	"log/slog"
	"net/http"
)

// Check reports whether a dependency is usable. A nil Check always passes.
type Check func(ctx context.Context) error

// RegisterHealthz serves GET /healthz, answering 503 when check fails.
func RegisterHealthz(mux *http.ServeMux, check Check) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				slog.Error("health check failed", "error", err)
				WriteError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

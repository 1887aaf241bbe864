package collector

import (
	"database/sql"
	"net/http"
)

// RegisterFeature wires the collector's storage, fan-out and routes onto mux.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, token string, sinks ...Sink) *Service {
	svc := NewService(NewRepository(db), sinks...)
	NewController(svc, token).RegisterRoutes(mux)
	return svc
}

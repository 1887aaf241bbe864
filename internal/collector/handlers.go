package collector

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/krishotte/env-monitor/internal/httpapi"
	"github.com/krishotte/env-monitor/internal/types"
)

const (
	maxBodyBytes    = 64 << 10
	defaultPageSize = 50
	maxPageSize     = 20000
	defaultLimit    = 2880
)

type Controller struct {
	svc   *Service
	token string
}

func NewController(svc *Service, token string) *Controller {
	return &Controller{svc: svc, token: token}
}

func (c *Controller) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1.6/devices/{label}", c.handleIngest)
	mux.HandleFunc("POST /api/v1.6/devices/{label}/", c.handleIngest)
	mux.HandleFunc("GET /api/v1.6/devices/{label}/{variable}/values", c.handleValues)
	mux.HandleFunc("GET /api/v1.6/devices/{label}/{variable}/values/", c.handleValues)
	mux.HandleFunc("GET /devices", c.handleDevices)
	mux.HandleFunc("GET /envdata", c.handleEnvData)
	mux.HandleFunc("GET /envdata-last", c.handleEnvDataLast)
}

func (c *Controller) authorized(presented string) bool {
	if c.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(c.token)) == 1
}

func (c *Controller) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !c.authorized(r.Header.Get("X-Auth-Token")) {
		httpapi.WriteError(w, http.StatusUnauthorized, "invalid X-Auth-Token")
		return
	}
	label := strings.TrimSpace(r.PathValue("label"))
	if label == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "missing device label")
		return
	}

	var reading types.Reading
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&reading); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid reading: %v", err))
		return
	}

	if _, err := c.svc.Ingest(r.Context(), label, reading); err != nil {
		slog.Error("ingest failed", "device", label, "error", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to store reading")
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, map[string]bool{"stored": true})
}

func (c *Controller) handleValues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		token = r.Header.Get("X-Auth-Token")
	}
	if !c.authorized(token) {
		httpapi.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	variable := r.PathValue("variable")
	if !slices.Contains(types.Variables, variable) {
		httpapi.WriteError(w, http.StatusNotFound, fmt.Sprintf("unknown variable %q", variable))
		return
	}
	pageSize, err := parseCount(q.Get("page_size"), defaultPageSize, maxPageSize)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "page_size: "+err.Error())
		return
	}

	page, err := c.svc.Values(r.Context(), r.PathValue("label"), variable, pageSize)
	if err != nil {
		slog.Error("list values failed", "device", r.PathValue("label"), "variable", variable, "error", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to list values")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, page)
}

func (c *Controller) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := c.svc.Devices(r.Context())
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, devices)
}

func (c *Controller) handleEnvData(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	if device == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "missing device")
		return
	}
	limit, err := parseCount(r.URL.Query().Get("limit"), defaultLimit, maxPageSize)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	readings, err := c.svc.Latest(r.Context(), device, limit)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slices.Reverse(readings)
	httpapi.WriteJSON(w, http.StatusOK, readings)
}

func (c *Controller) handleEnvDataLast(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	if device == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "missing device")
		return
	}
	readings, err := c.svc.Latest(r.Context(), device, 1)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(readings) == 0 {
		httpapi.WriteError(w, http.StatusNotFound, "no readings for "+device)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, readings[0])
}

var errNotPositive = errors.New("must be a positive integer")

func parseCount(s string, def, max int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errNotPositive
	}
	if n > max {
		return max, nil
	}
	return n, nil
}

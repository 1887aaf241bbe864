package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu   sync.Mutex
	recs []map[string]slog.Value
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.recs = append(h.recs, m)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) named(t *testing.T, msg string) []map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.recs {
		if m["msg"].String() == msg {
			out = append(out, m)
		}
	}
	return out
}

func TestTracedConnector_LogsStatements(t *testing.T) {
	handler := &captureHandler{}
	db := sql.OpenDB(NewTracedConnector(":memory:", slog.New(handler)))
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE readings (id INTEGER PRIMARY KEY, label TEXT, value REAL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO readings (label, value) VALUES (?, ?)`, "home_env", 21.5); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var got float64
	if err := db.QueryRow(`SELECT value FROM readings WHERE label = ?`, "home_env").Scan(&got); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != 21.5 {
		t.Errorf("value = %v; want 21.5", got)
	}

	recs := handler.named(t, "sql")
	if len(recs) != 3 {
		t.Fatalf("sql records = %d; want 3", len(recs))
	}
	if op := recs[1]["op"].String(); op != "exec" {
		t.Errorf("insert op = %q; want exec", op)
	}
	if op := recs[2]["op"].String(); op != "query" {
		t.Errorf("select op = %q; want query", op)
	}
	args, ok := recs[1]["args"].Any().([]string)
	if !ok || len(args) != 2 || args[0] != "home_env" || args[1] != "21.5" {
		t.Errorf("insert args = %v; want [home_env 21.5]", recs[1]["args"].Any())
	}
	if _, ok := recs[2]["elapsed"]; !ok {
		t.Errorf("query record missing elapsed")
	}
}

func TestTracedConnector_Transaction(t *testing.T) {
	db := sql.OpenDB(NewTracedConnector(":memory:", slog.New(&captureHandler{})))
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatalf("exec in tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestFormatArgs(t *testing.T) {
	got := formatArgs(nil)
	if len(got) != 0 {
		t.Errorf("formatArgs(nil) = %v; want empty", got)
	}
}

package migrate

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRun_AppliesOnceInOrder(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	before, err := Status(ctx, db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(before) < 2 || before[0].Version != "0001" || before[1].Version != "0002" {
		t.Fatalf("Status() = %+v; want 0001, 0002 first", before)
	}
	for _, m := range before {
		if m.Applied {
			t.Errorf("%s applied before Run", m.Version)
		}
	}

	if err := Run(ctx, db); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := Run(ctx, db); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(before) {
		t.Errorf("schema_migrations rows = %d; want %d", n, len(before))
	}

	after, err := Status(ctx, db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	for _, m := range after {
		if !m.Applied {
			t.Errorf("%s not applied after Run", m.Version)
		}
	}

	if _, err := db.Exec(`INSERT INTO readings (device_label, ts, temperature, pressure, humidity, battery)
		VALUES ('home_env', '2024-01-01T00:00:00Z', 20, 1000, 40, 3.9)`); err != nil {
		t.Errorf("insert into migrated readings: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO devices (label, first_seen, last_seen) VALUES ('home_env', 'a', 'b')`); err != nil {
		t.Errorf("insert into migrated devices: %v", err)
	}
}

func TestFileRe(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{name: "0001_readings.sql", ok: true},
		{name: "1_readings.sql", ok: false},
		{name: "0003_notes.txt", ok: false},
	}
	for _, tt := range tests {
		if got := fileRe.MatchString(tt.name); got != tt.ok {
			t.Errorf("fileRe.MatchString(%q) = %v; want %v", tt.name, got, tt.ok)
		}
	}
}

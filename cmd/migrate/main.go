package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/krishotte/env-monitor/internal/config"
	"github.com/krishotte/env-monitor/internal/db"
	"github.com/krishotte/env-monitor/internal/logging"
	"github.com/krishotte/env-monitor/internal/migrate"
)

const usage = `usage: %s <command>
  migrate  apply pending schema migrations
  status   list migrations and whether they are applied
`

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadCollectorFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Base, version, "migrate"))

	conn, err := db.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}

	code := run(context.Background(), conn, os.Args[1])
	if closeErr := db.Close(conn); closeErr != nil {
		slog.Error("db close", "error", closeErr)
	}
	os.Exit(code)
}

func run(ctx context.Context, conn *sql.DB, cmd string) int {
	switch cmd {
	case "migrate":
		if err := migrate.Run(ctx, conn); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			return 1
		}
		fmt.Println("migrations applied")
	case "status":
		list, err := migrate.Status(ctx, conn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			return 1
		}
		for _, m := range list {
			state := "pending"
			if m.Applied {
				state = "applied"
			}
			fmt.Printf("%s  %-8s %s\n", m.Version, state, m.Name)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		return 1
	}
	return 0
}

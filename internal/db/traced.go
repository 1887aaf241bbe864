package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// NewTracedConnector returns a connector for sql.OpenDB that opens sqlite3
// connections and logs each statement, its arguments and its duration.
// A nil logger means slog.Default().
func NewTracedConnector(dsn string, logger *slog.Logger) driver.Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &tracedConnector{dsn: dsn, logger: logger, drv: &sqlite3.SQLiteDriver{}}
}

type tracedConnector struct {
	dsn    string
	logger *slog.Logger
	drv    *sqlite3.SQLiteDriver
}

func (c *tracedConnector) Connect(context.Context) (driver.Conn, error) {
	conn, err := c.drv.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &tracedConn{Conn: conn, logger: c.logger}, nil
}

func (c *tracedConnector) Driver() driver.Driver { return c.drv }

// tracedConn routes every statement through Prepare so it can be logged.
type tracedConn struct {
	driver.Conn
	logger *slog.Logger
}

func (c *tracedConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *tracedConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if p, ok := c.Conn.(driver.ConnPrepareContext); ok {
		stmt, err = p.PrepareContext(ctx, query)
	} else {
		stmt, err = c.Conn.Prepare(query)
	}
	if err != nil {
		c.logger.Debug("sql prepare failed", "sql", query, "error", err)
		return nil, err
	}
	return &tracedStmt{Stmt: stmt, query: query, logger: c.logger}, nil
}

func (c *tracedConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if b, ok := c.Conn.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, opts)
	}
	return nil, errors.New("sqlite3 trace: connection does not support BeginTx")
}

type tracedStmt struct {
	driver.Stmt
	query  string
	logger *slog.Logger
}

func (s *tracedStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	ec, ok := s.Stmt.(driver.StmtExecContext)
	if !ok {
		return nil, errors.New("sqlite3 trace: statement does not support ExecContext")
	}
	res, err := ec.ExecContext(ctx, args)
	s.trace(ctx, "exec", args, start, err)
	return res, err
}

func (s *tracedStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	qc, ok := s.Stmt.(driver.StmtQueryContext)
	if !ok {
		return nil, errors.New("sqlite3 trace: statement does not support QueryContext")
	}
	rows, err := qc.QueryContext(ctx, args)
	s.trace(ctx, "query", args, start, err)
	return rows, err
}

func (s *tracedStmt) trace(ctx context.Context, op string, args []driver.NamedValue, start time.Time, err error) {
	attrs := []any{
		"op", op,
		"sql", s.query,
		"args", formatArgs(args),
		"elapsed", time.Since(start).String(),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.DebugContext(ctx, "sql", attrs...)
}

func formatArgs(args []driver.NamedValue) []string {
	out := make([]string, len(args))
	for i, a := range args {
		var v string
		switch t := a.Value.(type) {
		case nil:
			v = "NULL"
		case []byte:
			v = string(t)
		default:
			v = fmt.Sprint(t)
		}
		if a.Name != "" {
			v = a.Name + "=" + v
		}
		out[i] = v
	}
	return out
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	stateDir = ".scorekeeper"
	fileName = "scorekeeper.db"
)

// Config locates the database of a workspace.
type Config struct {
	Workspace   string
	BusyTimeout time.Duration
}

// Dir is the hidden state directory of a workspace.
func Dir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, stateDir)
}

// Path returns the database file of a workspace.
func Path(workspace string) string {
	return filepath.Join(Dir(workspace), fileName)
}

// Open creates the state directory when missing and opens the database in
// WAL mode with foreign keys on. The pool is capped at one connection so
// writes from concurrent handlers queue instead of failing with SQLITE_BUSY.
func Open(cfg Config) (*sql.DB, error) {
	if err := os.MkdirAll(Dir(cfg.Workspace), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	timeout := cfg.BusyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		Path(cfg.Workspace), timeout.Milliseconds())
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open %s: %w", Path(cfg.Workspace), err)
	}
	return conn, nil
}

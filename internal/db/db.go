package db

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a row does not exist for the given user.
var ErrNotFound = errors.New("not found")

type DB struct {
	conn *sql.DB
	now  func() time.Time
}

type Option func(*DB)

// WithClock overrides time.Now for every timestamp the store writes or
// compares against.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

func Open(path string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps writes serialized and ":memory:" databases shared.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	d := &DB{conn: conn, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) clock() time.Time {
	return d.now().UTC()
}

// Package store persists panel option values and an event log in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vk/vegapanel/internal/panel"
)

// ErrNotFound is returned for a panel that was never saved.
var ErrNotFound = errors.New("panel not found")

// DB is the panel store.
type DB struct {
	*sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS panels(
		id TEXT PRIMARY KEY,
		title TEXT,
		option_json TEXT,
		updated_at REAL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating panels table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS events(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts REAL,
		level TEXT,
		code TEXT,
		msg TEXT,
		meta TEXT
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating events table: %w", err)
	}

	return &DB{db}, nil
}

// Record is a stored panel.
type Record struct {
	ID        string
	Title     string
	Value     panel.SpecValue
	UpdatedAt time.Time
}

// SavePanel inserts or replaces a panel's option value.
func (db *DB) SavePanel(ctx context.Context, id, title string, v panel.SpecValue) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding option value of panel '%s': %w", id, err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO panels(id,title,option_json,updated_at) VALUES(?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, option_json=excluded.option_json, updated_at=excluded.updated_at`,
		id, title, string(raw), seconds(time.Now()))
	if err != nil {
		return fmt.Errorf("saving panel '%s': %w", id, err)
	}
	return nil
}

// LoadPanel returns a stored panel, or ErrNotFound.
func (db *DB) LoadPanel(ctx context.Context, id string) (*Record, error) {
	row := db.QueryRowContext(ctx, `SELECT id,title,option_json,updated_at FROM panels WHERE id = ?`, id)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading panel '%s': %w", id, err)
	}
	return rec, nil
}

// ListPanels returns every stored panel ordered by id.
func (db *DB) ListPanels(ctx context.Context) ([]*Record, error) {
	rows, err := db.QueryContext(ctx, `SELECT id,title,option_json,updated_at FROM panels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing panels: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("listing panels: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Record, error) {
	var (
		rec     Record
		raw     string
		updated float64
	)
	if err := s.Scan(&rec.ID, &rec.Title, &raw, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &rec.Value); err != nil {
		return nil, fmt.Errorf("decoding option value of panel '%s': %w", rec.ID, err)
	}
	rec.UpdatedAt = time.Unix(0, int64(updated*1e9))
	return &rec, nil
}

// Event records a log entry. Failures to record are ignored.
func (db *DB) Event(level, code, msg string, meta map[string]any) {
	m := ""
	if meta != nil {
		b, _ := json.Marshal(meta)
		m = string(b)
	}
	_, _ = db.Exec(`INSERT INTO events(ts,level,code,msg,meta) VALUES(?,?,?,?,?)`,
		seconds(time.Now()), level, code, msg, m)
}

// EventRecord is a logged event.
type EventRecord struct {
	Time  time.Time      `json:"time"`
	Level string         `json:"level"`
	Code  string         `json:"code"`
	Msg   string         `json:"msg"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// Events returns the most recent events, newest first.
func (db *DB) Events(ctx context.Context, limit int) ([]EventRecord, error) {
	rows, err := db.QueryContext(ctx, `SELECT ts,level,code,msg,meta FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			e    EventRecord
			ts   float64
			meta string
		)
		if err := rows.Scan(&ts, &e.Level, &e.Code, &e.Msg, &meta); err != nil {
			return nil, fmt.Errorf("listing events: %w", err)
		}
		e.Time = time.Unix(0, int64(ts*1e9))
		if meta != "" {
			_ = json.Unmarshal([]byte(meta), &e.Meta)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

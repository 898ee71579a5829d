// Package journal records callback events in a SQLite database so runs can
// be inspected after the process exits.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"aiconfig/internal/callback"
)

// Entry is one journaled event.
type Entry struct {
	ID        int64          `json:"id"`
	RunID     string         `json:"run_id"`
	Event     string         `json:"event"`
	Prompt    string         `json:"prompt"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Filter narrows Events. Zero fields match everything; Limit 0 means no
// limit.
type Filter struct {
	RunID  string
	Prompt string
	Event  string
	Limit  int
}

// Store is a callback.Handler writing to SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			event      TEXT NOT NULL,
			prompt     TEXT NOT NULL,
			created_at TEXT NOT NULL,
			payload    TEXT,
			error      TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
		CREATE INDEX IF NOT EXISTS idx_events_prompt ON events(prompt);
	`)
	return err
}

// Handle implements callback.Handler.
func (s *Store) Handle(ctx context.Context, e callback.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		payload, _ = json.Marshal(map[string]string{"unencodable": err.Error()})
	}
	var errText sql.NullString
	if e.Err != nil {
		errText = sql.NullString{String: e.Err.Error(), Valid: true}
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(context.WithoutCancel(ctx), `
		INSERT INTO events (run_id, event, prompt, created_at, payload, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Name, e.PromptName, ts.UTC().Format(time.RFC3339Nano), string(payload), errText)
	return err
}

// Events returns journaled events in insertion order.
func (s *Store) Events(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT id, run_id, event, prompt, created_at, payload, error FROM events WHERE 1=1`
	var args []any
	if f.RunID != "" {
		q += ` AND run_id = ?`
		args = append(args, f.RunID)
	}
	if f.Prompt != "" {
		q += ` AND prompt = ?`
		args = append(args, f.Prompt)
	}
	if f.Event != "" {
		q += ` AND event = ?`
		args = append(args, f.Event)
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
			payload sql.NullString
			errText sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Event, &e.Prompt, &created, &payload, &errText); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, created)
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("decode payload of event %d: %w", e.ID, err)
			}
		}
		e.Error = errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var _ callback.Handler = (*Store)(nil)

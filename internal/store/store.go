// Package store keeps a bounded per-provider history of fetch results in
// SQLite so restarts and the history command can show past snapshots.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

const DefaultRetention = 500

// Fixed-width so ORDER BY on the text column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is one persisted fetch. Snapshot is nil for failed fetches.
type Record struct {
	FetchID      string              `json:"fetch_id"`
	ProviderID   string              `json:"provider_id"`
	FetchedAt    time.Time           `json:"fetched_at"`
	ErrorKind    string              `json:"error_kind,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	ElapsedMS    int64               `json:"elapsed_ms"`
	Snapshot     *core.QuotaSnapshot `json:"snapshot,omitempty"`
}

func (r Record) OK() bool { return r.Snapshot != nil }

type Store struct {
	db        *sql.DB
	retention atomic.Int64
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening DB: %w", err)
	}

	s := New(db)
	if err := s.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sql.DB) *Store {
	s := &Store{db: db}
	s.retention.Store(DefaultRetention)
	return s
}

// SetRetention bounds rows kept per provider. Values <= 0 disable pruning.
// Safe to call while saves are in flight.
func (s *Store) SetRetention(n int) { s.retention.Store(int64(n)) }

func (s *Store) Retention() int { return int(s.retention.Load()) }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS fetch_history (
			fetch_id TEXT PRIMARY KEY,
			provider_id TEXT NOT NULL,
			fetched_at TEXT NOT NULL,
			error_kind TEXT,
			error_message TEXT,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			primary_percent INTEGER,
			snapshot_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_history_provider_time ON fetch_history(provider_id, fetched_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

// Save writes one engine result and prunes the provider's history to the
// retention bound. Saving the same fetch id twice is a no-op.
func (s *Store) Save(ctx context.Context, r core.Result) error {
	if r.ProviderID == "" || r.FetchID == "" {
		return errors.New("store: result needs provider and fetch id")
	}

	var (
		kind, message sql.NullString
		primary       sql.NullInt64
		payload       sql.NullString
	)
	if r.Err != nil {
		kind = sql.NullString{String: string(core.KindOf(r.Err)), Valid: true}
		message = sql.NullString{String: r.Err.Error(), Valid: true}
	}
	if r.Snapshot != nil {
		raw, err := json.Marshal(r.Snapshot)
		if err != nil {
			return fmt.Errorf("store: encoding snapshot: %w", err)
		}
		payload = sql.NullString{String: string(raw), Valid: true}
		if w, ok := r.Snapshot.PrimaryWindow(); ok {
			primary = sql.NullInt64{Int64: int64(w.UsedPercent), Valid: true}
		}
	}

	fetchedAt := r.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO fetch_history
		(fetch_id, provider_id, fetched_at, error_kind, error_message, elapsed_ms, primary_percent, snapshot_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.FetchID, r.ProviderID, fetchedAt.UTC().Format(timeLayout),
		kind, message, r.Elapsed.Milliseconds(), primary, payload,
	)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", r.ProviderID, err)
	}
	return s.Prune(ctx, r.ProviderID)
}

// Prune deletes all but the newest retention rows for providerID.
func (s *Store) Prune(ctx context.Context, providerID string) error {
	keep := s.Retention()
	if keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM fetch_history
		WHERE provider_id = ?
		AND fetch_id NOT IN (
			SELECT fetch_id FROM fetch_history
			WHERE provider_id = ?
			ORDER BY fetched_at DESC
			LIMIT ?
		)`, providerID, providerID, keep)
	if err != nil {
		return fmt.Errorf("store: prune %s: %w", providerID, err)
	}
	return nil
}

// Recent returns up to limit records for providerID, newest first.
func (s *Store) Recent(ctx context.Context, providerID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT fetch_id, provider_id, fetched_at, error_kind, error_message, elapsed_ms, snapshot_json
		FROM fetch_history
		WHERE provider_id = ?
		ORDER BY fetched_at DESC
		LIMIT ?`, providerID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", providerID, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the newest successful snapshot for providerID.
func (s *Store) LatestSnapshot(ctx context.Context, providerID string) (*core.QuotaSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT fetch_id, provider_id, fetched_at, error_kind, error_message, elapsed_ms, snapshot_json
		FROM fetch_history
		WHERE provider_id = ? AND snapshot_json IS NOT NULL
		ORDER BY fetched_at DESC
		LIMIT 1`, providerID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.Snapshot, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec           Record
		fetchedAt     string
		kind, message sql.NullString
		payload       sql.NullString
	)
	if err := sc.Scan(&rec.FetchID, &rec.ProviderID, &fetchedAt, &kind, &message, &rec.ElapsedMS, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("store: scan: %w", err)
	}
	t, err := time.Parse(timeLayout, fetchedAt)
	if err != nil {
		return Record{}, fmt.Errorf("store: parse fetched_at %q: %w", fetchedAt, err)
	}
	rec.FetchedAt = t
	rec.ErrorKind = kind.String
	rec.ErrorMessage = message.String
	if payload.Valid && payload.String != "" {
		var snap core.QuotaSnapshot
		if err := json.Unmarshal([]byte(payload.String), &snap); err != nil {
			return Record{}, fmt.Errorf("store: decode snapshot %s: %w", rec.FetchID, err)
		}
		rec.Snapshot = &snap
	}
	return rec, nil
}

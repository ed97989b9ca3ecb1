// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidencestore persists an audit log of completed fetches in a
// local SQLite database. Each completed planner run is stored with its
// request shape, planned contracts, and the full merged bundle, so
// enrichment behavior can be reviewed after the fact.
package evidencestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/enrich-engine/pkg/types"
)

const dbFile = "enrich.db"

// Store manages the fetch audit database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the audit database at cfg.Dir/enrich.db,
// creating the schema when absent.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = ".enrich"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS fetches (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			url TEXT,
			subtype TEXT,
			field_id TEXT,
			ok INTEGER NOT NULL,
			title TEXT,
			contracts TEXT,
			bundle TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_url ON fetches(url)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_created_at ON fetches(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Entry is one recorded fetch.
type Entry struct {
	RowID     int64                 `json:"rowId"`
	CreatedAt time.Time             `json:"createdAt"`
	URL       string                `json:"url,omitempty"`
	Subtype   string                `json:"subtype,omitempty"`
	FieldID   string                `json:"fieldId,omitempty"`
	OK        bool                  `json:"ok"`
	Title     string                `json:"title,omitempty"`
	Contracts map[string]string     `json:"contracts,omitempty"`
	Bundle    *types.EvidenceBundle `json:"bundle,omitempty"`
}

// Record persists one completed fetch.
func (s *Store) Record(ctx context.Context, req types.FetchRequest, bundle *types.EvidenceBundle) error {
	bundleJSON, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}
	contractsJSON, err := json.Marshal(bundle.PlannedContracts)
	if err != nil {
		return fmt.Errorf("encoding contracts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fetches (created_at, url, subtype, field_id, ok, title, contracts, bundle)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		req.PrimaryURL(), req.ContentType, req.FieldID,
		bundle.OK, bundle.Title, string(contractsJSON), string(bundleJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting fetch record: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first. A non-positive
// limit applies the configured default.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, created_at, url, subtype, field_id, ok, title, contracts, bundle
		 FROM fetches ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying fetches: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByURL returns recorded fetches for one URL, newest first.
func (s *Store) ByURL(ctx context.Context, url string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, created_at, url, subtype, field_id, ok, title, contracts, bundle
		 FROM fetches WHERE url = ? ORDER BY rowid DESC LIMIT ?`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("querying fetches by url: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt, contractsJSON, bundleJSON string
		if err := rows.Scan(&e.RowID, &createdAt, &e.URL, &e.Subtype, &e.FieldID,
			&e.OK, &e.Title, &contractsJSON, &bundleJSON); err != nil {
			return nil, fmt.Errorf("scanning fetch row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		if contractsJSON != "" {
			_ = json.Unmarshal([]byte(contractsJSON), &e.Contracts)
		}
		var bundle types.EvidenceBundle
		if err := json.Unmarshal([]byte(bundleJSON), &bundle); err == nil {
			e.Bundle = &bundle
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

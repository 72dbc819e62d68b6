package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/uxr/internal/apperr"
)

// ReportRow represents a row in the reports table.
type ReportRow struct {
	Path      string
	Name      string
	Category  string
	Title     string
	Author    string
	Date      string
	Summary   string
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Snippet  string `json:"snippet"`
}

const reportColumns = `path, name, category, title, author, date, summary, checksum, updated_at`

// UpsertReport inserts or replaces a report and its FTS entry within a
// transaction.
func (db *DB) UpsertReport(r ReportRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// The reports table keeps the body for the fallback search.
	_, err = tx.Exec(`
		INSERT INTO reports (path, name, category, title, author, date, summary, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			category   = excluded.category,
			title      = excluded.title,
			author     = excluded.author,
			date       = excluded.date,
			summary    = excluded.summary,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, r.Path, r.Name, r.Category, r.Title, r.Author, r.Date, r.Summary, r.Checksum, body, r.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert report: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r, body); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteReport removes a report and its FTS entry.
func (db *DB) DeleteReport(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM reports WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete report: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a report, or empty string if
// it is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM reports WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetReport returns one indexed report.
func (db *DB) GetReport(path string) (*ReportRow, error) {
	row := db.conn.QueryRow(`SELECT `+reportColumns+` FROM reports WHERE path = ?`, path)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: report %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get report: %w", err)
	}
	return r, nil
}

// ListReports returns indexed reports newest first, optionally restricted to
// one category. limit <= 0 means no limit.
func (db *DB) ListReports(category string, limit int) ([]ReportRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`
		SELECT `+reportColumns+`
		FROM reports
		WHERE ? = '' OR category = ?
		ORDER BY updated_at DESC, path
		LIMIT ?
	`, category, category, limit)
	if err != nil {
		return nil, fmt.Errorf("index: list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan report: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed report.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM reports`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*ReportRow, error) {
	var r ReportRow
	if err := s.Scan(&r.Path, &r.Name, &r.Category, &r.Title, &r.Author, &r.Date, &r.Summary, &r.Checksum, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

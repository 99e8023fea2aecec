package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"md5watch/internal/report"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is a persisted verification.
type Record struct {
	ID int64 `json:"id"`
	report.Result
}

// Filter narrows Recent queries. Zero values match everything.
type Filter struct {
	Classification report.Classification
	Name           string
	Since          time.Time
}

// Stats summarises the ledger contents.
type Stats struct {
	Total   int       `json:"total"`
	Good    int       `json:"good"`
	Bad     int       `json:"bad"`
	Invalid int       `json:"invalid"`
	First   time.Time `json:"first"`
	Last    time.Time `json:"last"`
}

// DatabaseHealth reports diagnostic information about the ledger database.
type DatabaseHealth struct {
	DBPath         string
	DatabaseExists bool
	SchemaVersion  int
	IntegrityCheck string
	TotalRecords   int
}

// Record inserts a verification and returns its row ID.
func (s *Store) Record(ctx context.Context, res report.Result) (int64, error) {
	if !res.Classification.Valid() {
		return 0, fmt.Errorf("record %s: unknown classification %q", res.Name, res.Classification)
	}
	at := res.At
	if at.IsZero() {
		at = time.Now()
	}
	out, err := s.execWithRetry(ctx, `INSERT INTO verifications
		(run_id, name, source_tag, classification, expected, actual, holding_path, retained, size_bytes, duration_ms, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Name, res.SourceTag, string(res.Classification), res.Expected, res.Actual,
		res.HoldingPath, boolToInt(res.Retained), res.Size, res.Duration.Milliseconds(), at.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", res.Name, err)
	}
	return out.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int, filter Filter) ([]Record, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	var (
		clauses []string
		args    []any
	)
	if filter.Classification != "" {
		clauses = append(clauses, "classification = ?")
		args = append(args, string(filter.Classification))
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		clauses = append(clauses, "name = ?")
		args = append(args, name)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "verified_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	query := `SELECT id, run_id, name, source_tag, classification, expected, actual, holding_path,
		retained, size_bytes, duration_ms, verified_at FROM verifications`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query verifications: %w", err)
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

// Stats returns counts per classification and the recorded time span.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT classification, COUNT(1) FROM verifications GROUP BY classification`)
	if err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			class string
			count int
		)
		if err := rows.Scan(&class, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch report.Classification(class) {
		case report.Good:
			stats.Good = count
		case report.Bad:
			stats.Bad = count
		case report.Invalid:
			stats.Invalid = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}
	if stats.Total == 0 {
		return stats, nil
	}

	var first, last string
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(verified_at), MAX(verified_at) FROM verifications`).Scan(&first, &last); err != nil {
		return Stats{}, fmt.Errorf("ledger time span: %w", err)
	}
	stats.First, _ = time.Parse(timeLayout, first)
	stats.Last, _ = time.Parse(timeLayout, last)
	return stats, nil
}

// Purge deletes records verified before the cutoff and returns how many were removed.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM verifications WHERE verified_at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge verifications: %w", err)
	}
	return res.RowsAffected()
}

// CheckHealth returns diagnostic information about the ledger database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	ctx = ensureContext(ctx)
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("ledger database path is unknown")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat ledger database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("ledger database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&health.IntegrityCheck); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM verifications").Scan(&health.TotalRecords); err != nil {
		return health, fmt.Errorf("count verifications: %w", err)
	}
	return health, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec        Record
		class      string
		retained   int
		durationMS int64
		verifiedAt string
	)
	err := row.Scan(&rec.ID, &rec.RunID, &rec.Name, &rec.SourceTag, &class, &rec.Expected, &rec.Actual,
		&rec.HoldingPath, &retained, &rec.Size, &durationMS, &verifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan verification: %w", err)
	}
	rec.Classification = report.Classification(class)
	rec.Retained = retained != 0
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.At, _ = time.Parse(timeLayout, verifiedAt)
	return rec, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

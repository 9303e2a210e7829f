package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/dupescan/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "dupescan.db"

// timestampLayout is fixed-width so that ORDER BY on the text column is
// chronological.
const timestampLayout = "2006-01-02 15:04:05.000000"

// AuditDB provides SQLite-based storage for finished audits.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file. Concurrent dupescan
	// processes wait for each other instead of failing with SQLITE_BUSY.
	dsn := dbPath + "?mode=rw&_pragma=busy_timeout(10000)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=busy_timeout(10000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		audit_id TEXT NOT NULL UNIQUE,
		target TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		pages INTEGER DEFAULT 0,
		report_json TEXT NOT NULL,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audits_target ON audits(target);
	CREATE INDEX IF NOT EXISTS idx_audits_timestamp ON audits(timestamp);

	-- Latest fingerprint per page, overwritten by every audit
	CREATE TABLE IF NOT EXISTS fingerprints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		url TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		shingle_count INTEGER DEFAULT 0,
		originality INTEGER DEFAULT 0,
		audit_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		UNIQUE(target, url)
	);

	CREATE INDEX IF NOT EXISTS idx_fp_hash ON fingerprints(content_hash);

	CREATE TABLE IF NOT EXISTS duplicate_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		audit_id TEXT NOT NULL,
		from_url TEXT NOT NULL,
		to_url TEXT NOT NULL,
		classification TEXT NOT NULL,
		similarity REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_links_audit ON duplicate_links(audit_id);
	CREATE INDEX IF NOT EXISTS idx_links_class ON duplicate_links(classification);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport stores a finished audit in one transaction: the report itself,
// its duplicate pairs, and the latest fingerprint of every analyzed page.
// Saving the same audit ID twice replaces the earlier copy.
func (adb *AuditDB) SaveReport(ctx context.Context, report *model.AuditReport) error {
	if report.Summary == nil {
		report.Summary = model.NewAuditSummary(report.Results)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	ts := report.DateScanned.UTC().Format(timestampLayout)

	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO audits (audit_id, target, timestamp, pages, report_json, summary_json)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(audit_id) DO UPDATE SET
		target = excluded.target,
		timestamp = excluded.timestamp,
		pages = excluded.pages,
		report_json = excluded.report_json,
		summary_json = excluded.summary_json
	`, report.ID, report.Target, ts, len(report.Results), string(reportJSON), string(summaryJSON)); err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM duplicate_links WHERE audit_id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to clear duplicate links: %w", err)
	}

	for _, res := range report.Results {
		rep := res.Report
		for _, group := range [][]model.SimilarityResult{rep.ExactDuplicates, rep.NearDuplicates} {
			for _, d := range group {
				if _, err := tx.ExecContext(ctx, `
				INSERT INTO duplicate_links (audit_id, from_url, to_url, classification, similarity)
				VALUES (?, ?, ?, ?, ?)
				`, report.ID, res.URL, d.OtherURL, string(d.Classification), d.Similarity); err != nil {
					return fmt.Errorf("failed to insert duplicate link: %w", err)
				}
			}
		}

		if rep.ContentHash == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO fingerprints (target, url, content_hash, shingle_count, originality, audit_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(target, url) DO UPDATE SET
			content_hash = excluded.content_hash,
			shingle_count = excluded.shingle_count,
			originality = excluded.originality,
			audit_id = excluded.audit_id,
			timestamp = excluded.timestamp
		`, report.Target, res.URL, rep.ContentHash, rep.ShingleCount, rep.OriginalityScore, report.ID, ts); err != nil {
			return fmt.Errorf("failed to save fingerprint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit report: %w", err)
	}
	return nil
}

// GetReport retrieves a stored audit by its audit ID.
func (adb *AuditDB) GetReport(ctx context.Context, auditID string) (*model.AuditReport, error) {
	var reportJSON string
	err := adb.db.QueryRowContext(ctx,
		`SELECT report_json FROM audits WHERE audit_id = ?`, auditID,
	).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, auditID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}
	return decodeReport(reportJSON)
}

// GetLatestReport retrieves the most recent audit of a target.
func (adb *AuditDB) GetLatestReport(ctx context.Context, target string) (*model.AuditReport, error) {
	var reportJSON string
	err := adb.db.QueryRowContext(ctx, `
	SELECT report_json FROM audits
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`, target).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, target)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}
	return decodeReport(reportJSON)
}

func decodeReport(reportJSON string) (*model.AuditReport, error) {
	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListTargets returns every audited target, sorted.
func (adb *AuditDB) ListTargets(ctx context.Context) ([]string, error) {
	rows, err := adb.db.QueryContext(ctx, `SELECT DISTINCT target FROM audits ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}

	return targets, rows.Err()
}

// AuditMetadata contains summary information about a stored audit.
// This is used for displaying history without loading the full report.
type AuditMetadata struct {
	// AuditID is the session ID of the audit.
	AuditID string

	// Target is the audited site or path set.
	Target string

	// Timestamp is when the audit started.
	Timestamp time.Time

	// Pages is the number of page results.
	Pages int

	// Summary is the stored audit summary. Never nil.
	Summary *model.AuditSummary
}

// ListReports returns audit metadata, newest first.
// An empty target lists audits of every target.
func (adb *AuditDB) ListReports(ctx context.Context, target string) ([]AuditMetadata, error) {
	query := `
	SELECT audit_id, target, timestamp, pages, summary_json
	FROM audits
	WHERE 1=1
	`
	args := make([]any, 0, 1)
	if target != "" {
		query += " AND target = ?"
		args = append(args, target)
	}
	query += " ORDER BY timestamp DESC, id DESC"

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	var results []AuditMetadata
	for rows.Next() {
		var meta AuditMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.AuditID, &meta.Target, &timestamp, &meta.Pages, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.Summary = &model.AuditSummary{}
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), meta.Summary); err != nil {
				meta.Summary = &model.AuditSummary{}
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// DuplicateLink is one stored exact or near duplicate pair.
type DuplicateLink struct {
	AuditID        string
	FromURL        string
	ToURL          string
	Classification model.Classification
	Similarity     float64
}

// QueryDuplicateLinks returns the duplicate pairs of an audit.
// An empty classification returns both exact and near pairs.
func (adb *AuditDB) QueryDuplicateLinks(ctx context.Context, auditID string, class model.Classification) ([]DuplicateLink, error) {
	query := `
	SELECT audit_id, from_url, to_url, classification, similarity
	FROM duplicate_links
	WHERE audit_id = ?
	`
	args := []any{auditID}
	if class != "" {
		query += " AND classification = ?"
		args = append(args, string(class))
	}
	query += " ORDER BY similarity DESC, from_url, to_url"

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate links: %w", err)
	}
	defer rows.Close()

	var links []DuplicateLink
	for rows.Next() {
		var link DuplicateLink
		var classification string
		if err := rows.Scan(&link.AuditID, &link.FromURL, &link.ToURL, &classification, &link.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate link: %w", err)
		}
		link.Classification = model.Classification(classification)
		links = append(links, link)
	}

	return links, rows.Err()
}

// FingerprintRecord is the latest stored fingerprint of one page.
type FingerprintRecord struct {
	Target       string
	URL          string
	ContentHash  string
	ShingleCount int
	Originality  int
	AuditID      string
	Timestamp    time.Time
}

// GetFingerprint returns the latest stored fingerprint of a page.
// It returns ErrReportNotFound when the page was never analyzed.
func (adb *AuditDB) GetFingerprint(ctx context.Context, target, url string) (*FingerprintRecord, error) {
	var rec FingerprintRecord
	var timestamp string

	err := adb.db.QueryRowContext(ctx, `
	SELECT target, url, content_hash, shingle_count, originality, audit_id, timestamp
	FROM fingerprints
	WHERE target = ? AND url = ?
	`, target, url).Scan(
		&rec.Target,
		&rec.URL,
		&rec.ContentHash,
		&rec.ShingleCount,
		&rec.Originality,
		&rec.AuditID,
		&timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrReportNotFound, target, url)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprint: %w", err)
	}

	rec.Timestamp = parseTimestamp(timestamp)
	return &rec, nil
}

// ChangedPages compares a report against the fingerprints stored by earlier
// audits of the same target and returns the URLs whose content hash differs
// or that were never stored. Call it before SaveReport.
func (adb *AuditDB) ChangedPages(ctx context.Context, report *model.AuditReport) ([]string, error) {
	var changed []string
	for _, res := range report.Results {
		hash := res.Report.ContentHash
		if hash == "" {
			continue
		}
		rec, err := adb.GetFingerprint(ctx, report.Target, res.URL)
		if errors.Is(err, ErrReportNotFound) {
			changed = append(changed, res.URL)
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.ContentHash != hash {
			changed = append(changed, res.URL)
		}
	}
	return changed, nil
}

// timestampFormats contains the timestamp formats that may be stored.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

// parseTimestamp parses a stored timestamp as UTC, returning the zero time
// if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/metrics"
	"github.com/scanlab-io/scanlab/internal/model"
)

// observe records one store operation in the metrics registry.
func observe(operation string, start time.Time, err error) {
	metrics.Global().RecordStoreQuery(operation, time.Since(start), err == nil)
}

const defaultListLimit = 10

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id              TEXT PRIMARY KEY,
	scan_type       TEXT NOT NULL,
	status          TEXT NOT NULL,
	target_range    TEXT NOT NULL,
	port_range      TEXT,
	started_at      TEXT,
	completed_at    TEXT,
	progress        REAL NOT NULL DEFAULT 0,
	scanned_hosts   INTEGER NOT NULL DEFAULT 0,
	total_hosts     INTEGER NOT NULL DEFAULT 0,
	error_message   TEXT,
	results_summary TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at DESC);

CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLiteStore implements Store on a local SQLite database. Suitable for
// single-user deployments; WAL mode keeps reads concurrent with the one
// writer.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (and if necessary creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapStoreError(errors.CodeStoreConnection,
				"failed to create database directory", "open", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreConnection,
			"failed to open database", "open", err)
	}

	// A single writer avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=30000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.WrapStoreError(errors.CodeStoreConnection,
				"failed to configure database", "open", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapStoreError(errors.CodeStoreConnection,
			"failed to apply schema", "open", err)
	}

	logging.InfoStore("Database opened", "path", path)
	return &SQLiteStore{db: db}, nil
}

// scanRow mirrors the scans table. Timestamps are stored as RFC 3339
// strings; devices are serialized into results_summary as JSON.
type scanRow struct {
	ID             string         `db:"id"`
	ScanType       string         `db:"scan_type"`
	Status         string         `db:"status"`
	TargetRange    string         `db:"target_range"`
	PortRange      sql.NullString `db:"port_range"`
	StartedAt      sql.NullString `db:"started_at"`
	CompletedAt    sql.NullString `db:"completed_at"`
	Progress       float64        `db:"progress"`
	ScannedHosts   int            `db:"scanned_hosts"`
	TotalHosts     int            `db:"total_hosts"`
	ErrorMessage   sql.NullString `db:"error_message"`
	ResultsSummary sql.NullString `db:"results_summary"`
	CreatedAt      string         `db:"created_at"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func toRow(result *model.ScanResult) (*scanRow, error) {
	row := &scanRow{
		ID:           result.ScanID,
		ScanType:     string(result.ScanType),
		Status:       string(result.Status),
		TargetRange:  result.TargetRange,
		PortRange:    nullString(result.PortRange),
		StartedAt:    nullTime(result.StartedAt),
		CompletedAt:  nullTime(result.CompletedAt),
		Progress:     result.Progress,
		ScannedHosts: result.ScannedHosts,
		TotalHosts:   result.TotalHosts,
		ErrorMessage: nullString(result.ErrorMessage),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}

	if len(result.Devices) > 0 {
		summary, err := json.Marshal(result.Devices)
		if err != nil {
			return nil, errors.WrapStoreError(errors.CodeStoreQuery,
				"failed to serialize scan devices", "save_scan", err)
		}
		row.ResultsSummary = nullString(string(summary))
	}

	return row, nil
}

func (r *scanRow) toResult() (*model.ScanResult, error) {
	result := &model.ScanResult{
		ScanID:       r.ID,
		ScanType:     model.ScanType(r.ScanType),
		Status:       model.ScanStatus(r.Status),
		TargetRange:  r.TargetRange,
		PortRange:    r.PortRange.String,
		StartedAt:    parseTime(r.StartedAt),
		CompletedAt:  parseTime(r.CompletedAt),
		Progress:     r.Progress,
		ScannedHosts: r.ScannedHosts,
		TotalHosts:   r.TotalHosts,
		ErrorMessage: r.ErrorMessage.String,
	}

	if r.ResultsSummary.Valid && r.ResultsSummary.String != "" {
		if err := json.Unmarshal([]byte(r.ResultsSummary.String), &result.Devices); err != nil {
			return nil, errors.WrapStoreError(errors.CodeStoreQuery,
				"failed to deserialize scan devices", "get_scan", err)
		}
	}

	return result, nil
}

// SaveScan implements Store. Existing records are replaced wholesale,
// preserving the original created_at so list ordering stays stable.
func (s *SQLiteStore) SaveScan(ctx context.Context, result *model.ScanResult) (err error) {
	start := time.Now()
	defer func() { observe("save_scan", start, err) }()

	row, err := toRow(result)
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO scans (
			id, scan_type, status, target_range, port_range,
			started_at, completed_at, progress, scanned_hosts, total_hosts,
			error_message, results_summary, created_at
		) VALUES (
			:id, :scan_type, :status, :target_range, :port_range,
			:started_at, :completed_at, :progress, :scanned_hosts, :total_hosts,
			:error_message, :results_summary, :created_at
		)
		ON CONFLICT(id) DO UPDATE SET
			scan_type       = excluded.scan_type,
			status          = excluded.status,
			target_range    = excluded.target_range,
			port_range      = excluded.port_range,
			started_at      = excluded.started_at,
			completed_at    = excluded.completed_at,
			progress        = excluded.progress,
			scanned_hosts   = excluded.scanned_hosts,
			total_hosts     = excluded.total_hosts,
			error_message   = excluded.error_message,
			results_summary = excluded.results_summary
	`, row)
	if err != nil {
		return errors.WrapStoreError(errors.CodeStoreQuery,
			fmt.Sprintf("failed to save scan %s", result.ScanID), "save_scan", err)
	}
	return nil
}

// GetScan implements Store.
func (s *SQLiteStore) GetScan(ctx context.Context, scanID string) (result *model.ScanResult, err error) {
	start := time.Now()
	defer func() { observe("get_scan", start, err) }()

	var row scanRow
	err = s.db.GetContext(ctx, &row, `SELECT * FROM scans WHERE id = ?`, scanID)
	if goerrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrScanNotFound(scanID)
	}
	if err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreQuery,
			fmt.Sprintf("failed to load scan %s", scanID), "get_scan", err)
	}
	return row.toResult()
}

// ListScans implements Store, newest first by record creation time.
func (s *SQLiteStore) ListScans(ctx context.Context, limit, offset int) (results []*model.ScanResult, err error) {
	start := time.Now()
	defer func() { observe("list_scans", start, err) }()

	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var rows []scanRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT * FROM scans ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreQuery,
			"failed to list scans", "list_scans", err)
	}

	results = make([]*model.ScanResult, 0, len(rows))
	for i := range rows {
		result, err := rows[i].toResult()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// CountScans implements Store.
func (s *SQLiteStore) CountScans(ctx context.Context) (count int, err error) {
	start := time.Now()
	defer func() { observe("count_scans", start, err) }()

	if err = s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM scans`); err != nil {
		return 0, errors.WrapStoreError(errors.CodeStoreQuery,
			"failed to count scans", "count_scans", err)
	}
	return count, nil
}

// DeleteScan implements Store.
func (s *SQLiteStore) DeleteScan(ctx context.Context, scanID string) (deleted bool, err error) {
	start := time.Now()
	defer func() { observe("delete_scan", start, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, scanID)
	if err != nil {
		return false, errors.WrapStoreError(errors.CodeStoreQuery,
			fmt.Sprintf("failed to delete scan %s", scanID), "delete_scan", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.WrapStoreError(errors.CodeStoreQuery,
			"failed to read delete result", "delete_scan", err)
	}
	return affected > 0, nil
}

// SavePreference implements Store.
func (s *SQLiteStore) SavePreference(ctx context.Context, key, value string) (err error) {
	start := time.Now()
	defer func() { observe("save_preference", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.WrapStoreError(errors.CodeStoreQuery,
			fmt.Sprintf("failed to save preference %s", key), "save_preference", err)
	}
	return nil
}

// GetPreference implements Store.
func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (value string, ok bool, err error) {
	start := time.Now()
	defer func() { observe("get_preference", start, err) }()

	err = s.db.GetContext(ctx, &value, `SELECT value FROM preferences WHERE key = ?`, key)
	if goerrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapStoreError(errors.CodeStoreQuery,
			fmt.Sprintf("failed to load preference %s", key), "get_preference", err)
	}
	return value, true, nil
}

// AllPreferences implements Store.
func (s *SQLiteStore) AllPreferences(ctx context.Context) (prefs map[string]string, err error) {
	start := time.Now()
	defer func() { observe("all_preferences", start, err) }()

	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err = s.db.SelectContext(ctx, &rows, `SELECT key, value FROM preferences`); err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreQuery,
			"failed to list preferences", "all_preferences", err)
	}

	prefs = make(map[string]string, len(rows))
	for _, row := range rows {
		prefs[row.Key] = row.Value
	}
	return prefs, nil
}

// DeletePreference implements Store.
func (s *SQLiteStore) DeletePreference(ctx context.Context, key string) (deleted bool, err error) {
	start := time.Now()
	defer func() { observe("delete_preference", start, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
	if err != nil {
		return false, errors.WrapStoreError(errors.CodeStoreQuery,
			fmt.Sprintf("failed to delete preference %s", key), "delete_preference", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.WrapStoreError(errors.CodeStoreQuery,
			"failed to read delete result", "delete_preference", err)
	}
	return affected > 0, nil
}

// Close implements Store. A final WAL checkpoint folds the log back
// into the main database file.
func (s *SQLiteStore) Close() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		logging.Warn("WAL checkpoint failed on close", "error", err)
	}
	if err := s.db.Close(); err != nil {
		return errors.WrapStoreError(errors.CodeStoreConnection,
			"failed to close database", "close", err)
	}
	return nil
}

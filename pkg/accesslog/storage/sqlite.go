package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/webserv/pkg/accesslog"
)

// Driver names registered by the two SQLite packages.
const (
	DriverCGO  = "sqlite3"
	DriverPure = "sqlite"
)

// SQLiteConfig configures a SQLite backend.
type SQLiteConfig struct {
	Path string

	// Driver is DriverCGO or DriverPure.
	// Default: DriverCGO
	Driver string

	// BusyTimeout is how long a writer waits for the database lock.
	// Default: 5s
	BusyTimeout time.Duration
}

// SQLiteStorage stores records in a SQLite database.
type SQLiteStorage struct {
	db      *sql.DB
	backend string
	logger  *slog.Logger
}

var _ accesslog.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (creating if needed) the database at cfg.Path.
func NewSQLiteStorage(cfg SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverCGO
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	backend := "sqlite"
	if cfg.Driver == DriverPure {
		backend = "sqlite-pure"
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, accesslog.NewStorageError(backend, "open", err)
	}
	// one writer; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{
		db:      db,
		backend: backend,
		logger:  slog.Default().With("component", "accesslog.storage", "backend", backend),
	}
	if err := s.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("access log storage opened", "path", cfg.Path)
	return s, nil
}

func (s *SQLiteStorage) initialize(busyTimeout time.Duration) error {
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return accesslog.NewStorageError(s.backend, "set_busy_timeout", err)
	}
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return accesslog.NewStorageError(s.backend, "enable_wal", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return accesslog.NewStorageError(s.backend, "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return accesslog.NewStorageError(s.backend, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(selectSchemaVersion).Scan(&version); err != nil {
		return accesslog.NewStorageError(s.backend, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return accesslog.NewStorageError(s.backend, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store inserts r.
func (s *SQLiteStorage) Store(ctx context.Context, r *accesslog.Record) error {
	_, err := s.db.ExecContext(ctx, insertRecord,
		r.ID, r.RequestID, r.Time.UnixNano(), int64(r.Duration),
		r.Remote, r.Listen, r.Method, r.URI, r.Host,
		r.Status, r.BytesIn, r.BytesOut, r.ServerName, r.Location, boolToInt(r.CGI),
	)
	if err != nil {
		return accesslog.NewStorageError(s.backend, "store", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, q *accesslog.Query) ([]*accesslog.Record, error) {
	where, args := buildWhere(q)
	stmt := selectColumns + where + " ORDER BY time_ns DESC LIMIT ? OFFSET ?"
	args = append(args, q.EffectiveLimit(), q.Offset)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, accesslog.NewStorageError(s.backend, "query", err)
	}
	defer rows.Close()

	records := []*accesslog.Record{}
	for rows.Next() {
		var (
			r             accesslog.Record
			timeNs, durNs int64
			cgi           int
		)
		if err := rows.Scan(&r.ID, &r.RequestID, &timeNs, &durNs, &r.Remote, &r.Listen,
			&r.Method, &r.URI, &r.Host, &r.Status, &r.BytesIn, &r.BytesOut,
			&r.ServerName, &r.Location, &cgi); err != nil {
			return nil, accesslog.NewStorageError(s.backend, "scan", err)
		}
		r.Time = time.Unix(0, timeNs).UTC()
		r.Duration = time.Duration(durNs)
		r.CGI = cgi != 0
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, accesslog.NewStorageError(s.backend, "query", err)
	}
	return records, nil
}

// Count returns the number of matching records, ignoring Limit and Offset.
func (s *SQLiteStorage) Count(ctx context.Context, q *accesslog.Query) (int64, error) {
	where, args := buildWhere(q)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM access_log"+where, args...).Scan(&n); err != nil {
		return 0, accesslog.NewStorageError(s.backend, "count", err)
	}
	return n, nil
}

// DeleteBefore removes records older than cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM access_log WHERE time_ns < ?", cutoff.UnixNano())
	if err != nil {
		return 0, accesslog.NewStorageError(s.backend, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, accesslog.NewStorageError(s.backend, "delete", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return accesslog.NewStorageError(s.backend, "close", err)
	}
	return nil
}

func buildWhere(q *accesslog.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !q.Since.IsZero() {
		conds = append(conds, "time_ns >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if !q.Until.IsZero() {
		conds = append(conds, "time_ns < ?")
		args = append(args, q.Until.UnixNano())
	}
	if q.Method != "" {
		conds = append(conds, "method = ?")
		args = append(args, q.Method)
	}
	if q.Status != 0 {
		conds = append(conds, "status = ?")
		args = append(args, q.Status)
	}
	if q.MinStatus != 0 {
		conds = append(conds, "status >= ?")
		args = append(args, q.MinStatus)
	}
	if q.PathPrefix != "" {
		conds = append(conds, "substr(uri, 1, ?) = ?")
		args = append(args, len(q.PathPrefix), q.PathPrefix)
	}
	if q.ServerName != "" {
		conds = append(conds, "server_name = ?")
		args = append(args, q.ServerName)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

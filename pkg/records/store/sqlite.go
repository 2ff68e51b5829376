package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/custodian/pkg/records"
)

// SQLiteConfig contains configuration for the SQLite record store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/records.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements records.Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	config  *SQLiteConfig
	builder sqlBuilder
	logger  *slog.Logger
}

// NewSQLiteStore opens the database, enables WAL mode if configured and
// creates the schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "records.store.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, records.NewStoreError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:      db,
		config:  config,
		builder: newSQLBuilder(squirrel.Question),
		logger:  logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite record store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return records.NewStoreError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return records.NewStoreError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return records.NewStoreError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return records.NewStoreError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && err != sql.ErrNoRows {
		return records.NewStoreError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return records.NewStoreError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Get returns a single record.
func (s *SQLiteStore) Get(ctx context.Context, entityType records.EntityType, id string) (*records.Record, error) {
	query, args, err := s.builder.getRecord(entityType, id)
	if err != nil {
		return nil, records.NewStoreError("sqlite", "get", err)
	}

	r, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, records.NewStoreError("sqlite", "get", err)
	}
	return r, nil
}

// Query returns records matching the filter, ordered by creation time.
func (s *SQLiteStore) Query(ctx context.Context, entityType records.EntityType, filter *records.Filter) ([]*records.Record, error) {
	query, args, err := s.builder.queryRecords(entityType, filter)
	if err != nil {
		return nil, records.NewStoreError("sqlite", "query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, records.NewStoreError("sqlite", "query", err)
	}
	defer rows.Close()

	results := []*records.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, records.NewStoreError("sqlite", "scan", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, records.NewStoreError("sqlite", "query", err)
	}
	return results, nil
}

// Add inserts a record.
func (s *SQLiteStore) Add(ctx context.Context, record *records.Record) (string, error) {
	r := record.Clone()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	query, args, err := s.builder.insertRecord(r)
	if err != nil {
		return "", records.NewStoreError("sqlite", "add", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", records.NewStoreError("sqlite", "add", err)
	}
	return r.ID, nil
}

// Update applies a partial update to a record.
func (s *SQLiteStore) Update(ctx context.Context, entityType records.EntityType, id string, update *records.RecordUpdate) error {
	query, args, err := s.builder.updateRecord(entityType, id, update)
	if err != nil {
		return records.NewStoreError("sqlite", "update", err)
	}
	return s.execAffecting(ctx, "update", query, args)
}

// Delete physically removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, entityType records.EntityType, id string) error {
	query, args, err := s.builder.deleteRecord(entityType, id)
	if err != nil {
		return records.NewStoreError("sqlite", "delete", err)
	}
	return s.execAffecting(ctx, "delete", query, args)
}

// AddHold inserts a legal hold.
func (s *SQLiteStore) AddHold(ctx context.Context, hold *records.LegalHold) (string, error) {
	h := hold.Clone()
	if h.ID == "" {
		h.ID = uuid.New().String()
	}

	query, args, err := s.builder.insertHold(h)
	if err != nil {
		return "", records.NewStoreError("sqlite", "add_hold", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", records.NewStoreError("sqlite", "add_hold", err)
	}
	return h.ID, nil
}

// GetHold returns a legal hold by id.
func (s *SQLiteStore) GetHold(ctx context.Context, id string) (*records.LegalHold, error) {
	query, args, err := s.builder.getHold(id)
	if err != nil {
		return nil, records.NewStoreError("sqlite", "get_hold", err)
	}

	h, err := scanHold(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, records.NewStoreError("sqlite", "get_hold", err)
	}
	return h, nil
}

// UpdateHold overwrites the mutable fields of a hold.
func (s *SQLiteStore) UpdateHold(ctx context.Context, hold *records.LegalHold) error {
	query, args, err := s.builder.updateHold(hold)
	if err != nil {
		return records.NewStoreError("sqlite", "update_hold", err)
	}
	return s.execAffecting(ctx, "update_hold", query, args)
}

// QueryHolds returns holds matching the filter, most recent start first.
func (s *SQLiteStore) QueryHolds(ctx context.Context, filter *records.HoldFilter) ([]*records.LegalHold, error) {
	query, args, err := s.builder.queryHolds(filter)
	if err != nil {
		return nil, records.NewStoreError("sqlite", "query_holds", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, records.NewStoreError("sqlite", "query_holds", err)
	}
	defer rows.Close()

	results := []*records.LegalHold{}
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, records.NewStoreError("sqlite", "scan_hold", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, records.NewStoreError("sqlite", "query_holds", err)
	}
	return results, nil
}

// AddArchive inserts an archive snapshot.
func (s *SQLiteStore) AddArchive(ctx context.Context, archive *records.ArchiveRecord) (string, error) {
	a := *archive
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query, args, err := s.builder.insertArchive(&a)
	if err != nil {
		return "", records.NewStoreError("sqlite", "add_archive", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", records.NewStoreError("sqlite", "add_archive", err)
	}
	return a.ID, nil
}

// QueryArchives returns archive snapshots matching the filter.
func (s *SQLiteStore) QueryArchives(ctx context.Context, filter *records.ArchiveFilter) ([]*records.ArchiveRecord, error) {
	query, args, err := s.builder.queryArchives(filter)
	if err != nil {
		return nil, records.NewStoreError("sqlite", "query_archives", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, records.NewStoreError("sqlite", "query_archives", err)
	}
	defer rows.Close()

	results := []*records.ArchiveRecord{}
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, records.NewStoreError("sqlite", "scan_archive", err)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, records.NewStoreError("sqlite", "query_archives", err)
	}
	return results, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return records.NewStoreError("sqlite", "close", err)
	}
	s.logger.Info("SQLite record store closed")
	return nil
}

func (s *SQLiteStore) execAffecting(ctx context.Context, op, query string, args []any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return records.NewStoreError("sqlite", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return records.NewStoreError("sqlite", op, err)
	}
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/custodian/pkg/audit"
)

// SQLiteConfig configures the SQLite audit sink.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLite is an append-only audit log stored in SQLite.
type SQLite struct {
	db     *sql.DB
	insert *sql.Stmt
	logger *slog.Logger
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	timestamp INTEGER NOT NULL,
	action TEXT NOT NULL,
	entity_type TEXT,
	entity_id TEXT,
	entity_name TEXT,
	actor_id TEXT,
	actor_email TEXT,
	dry_run INTEGER NOT NULL DEFAULT 0,
	details TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_events_entity ON audit_events(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_action ON audit_events(action);
`

// NewSQLite opens (or creates) the audit database.
func NewSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, audit.NewSinkError("sqlite", "open", fmt.Errorf("db path cannot be empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, audit.NewSinkError("sqlite", "open", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, audit.NewSinkError("sqlite", "create_schema", err)
	}

	insert, err := db.Prepare(`
		INSERT INTO audit_events (
			id, timestamp, action, entity_type, entity_id, entity_name,
			actor_id, actor_email, dry_run, details
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, audit.NewSinkError("sqlite", "prepare", err)
	}

	s := &SQLite{
		db:     db,
		insert: insert,
		logger: slog.Default().With("component", "audit.sink.sqlite"),
	}
	s.logger.Info("SQLite audit sink initialized", "path", cfg.Path)
	return s, nil
}

// Append inserts the event.
func (s *SQLite) Append(ctx context.Context, event *audit.Event) (string, error) {
	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		return "", audit.NewSinkError("sqlite", "marshal", err)
	}

	_, err = s.insert.ExecContext(ctx,
		id, event.Timestamp.UnixNano(), string(event.Action),
		event.EntityType, event.EntityID, event.EntityName,
		event.ActorID, event.ActorEmail, boolToInt(event.DryRun), string(details),
	)
	if err != nil {
		return "", audit.NewSinkError("sqlite", "append", err)
	}
	return id, nil
}

// Query returns matching events, newest first.
func (s *SQLite) Query(ctx context.Context, query *audit.Query) ([]*audit.Event, error) {
	var (
		where []string
		args  []any
	)

	if query != nil {
		if len(query.Actions) > 0 {
			placeholders := make([]string, len(query.Actions))
			for i, a := range query.Actions {
				placeholders[i] = "?"
				args = append(args, string(a))
			}
			where = append(where, "action IN ("+strings.Join(placeholders, ", ")+")")
		}
		if query.EntityType != "" {
			where = append(where, "entity_type = ?")
			args = append(args, query.EntityType)
		}
		if query.EntityID != "" {
			where = append(where, "entity_id = ?")
			args = append(args, query.EntityID)
		}
		if query.ActorID != "" {
			where = append(where, "actor_id = ?")
			args = append(args, query.ActorID)
		}
		if query.StartTime != nil {
			where = append(where, "timestamp >= ?")
			args = append(args, query.StartTime.UnixNano())
		}
		if query.EndTime != nil {
			where = append(where, "timestamp <= ?")
			args = append(args, query.EndTime.UnixNano())
		}
	}

	sqlQuery := `SELECT id, timestamp, action, entity_type, entity_id, entity_name,
		actor_id, actor_email, dry_run, details FROM audit_events`
	if len(where) > 0 {
		sqlQuery += " WHERE " + strings.Join(where, " AND ")
	}
	sqlQuery += " ORDER BY timestamp DESC"

	limit := 100
	if query != nil && query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewSinkError("sqlite", "query", err)
	}
	defer rows.Close()

	events := []*audit.Event{}
	for rows.Next() {
		var (
			e                                audit.Event
			ts                               int64
			action                           string
			entityType, entityID, entityName sql.NullString
			actorID, actorEmail, details     sql.NullString
			dryRun                           int
		)
		if err := rows.Scan(&e.ID, &ts, &action, &entityType, &entityID, &entityName,
			&actorID, &actorEmail, &dryRun, &details); err != nil {
			return nil, audit.NewSinkError("sqlite", "scan", err)
		}

		e.Timestamp = time.Unix(0, ts).UTC()
		e.Action = audit.Action(action)
		e.EntityType = entityType.String
		e.EntityID = entityID.String
		e.EntityName = entityName.String
		e.ActorID = actorID.String
		e.ActorEmail = actorEmail.String
		e.DryRun = dryRun != 0
		if details.Valid && details.String != "" && details.String != "null" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, audit.NewSinkError("sqlite", "unmarshal", err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewSinkError("sqlite", "query", err)
	}
	return events, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	s.insert.Close()
	if err := s.db.Close(); err != nil {
		return audit.NewSinkError("sqlite", "close", err)
	}
	s.logger.Info("SQLite audit sink closed")
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package store

import (
	"context"
	"fmt"

	"mercator-hq/custodian/pkg/records"
)

// Options selects and configures a record store backend.
type Options struct {
	Backend  string // "memory", "sqlite" or "postgres"
	SQLite   *SQLiteConfig
	Postgres *PostgresConfig
}

// Open creates the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (records.Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := NewSQLiteStore(opts.SQLite)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStore(ctx, opts.Postgres)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown record store backend: %q", opts.Backend)
	}
}

// Package store provides record store backends for governed records,
// legal holds and archive snapshots.
//
// # Backends
//
//   - Memory: in-memory maps for tests and demos
//   - SQLite: embedded database for single-node deployments
//   - PostgreSQL: shared database for multi-instance deployments
//
// The SQL backends share one squirrel statement builder and differ only in
// placeholder format. The SQLite backend creates its schema on open and
// tracks a schema version; the PostgreSQL backend applies embedded goose
// migrations.
//
// # Basic Usage
//
//	s, err := store.NewSQLiteStore(&store.SQLiteConfig{
//	    Path:        "data/records.db",
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	r, err := s.Get(ctx, records.EntityPolicy, "pol-1")
//	if records.IsNotFound(err) {
//	    // ...
//	}
package store

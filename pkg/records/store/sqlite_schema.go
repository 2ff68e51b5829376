package store

// SchemaVersion is the current record store schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the record store schema.
const Schema = `
-- Governed records (policies and acknowledgements)
CREATE TABLE IF NOT EXISTS records (
    entity_type TEXT NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    status TEXT NOT NULL,

    -- Classification
    classification TEXT,
    category TEXT,
    regulatory_frameworks TEXT,
    department TEXT,
    owner TEXT,

    -- Acknowledgement fields
    policy_id TEXT,
    acknowledged_by TEXT,

    -- Lifecycle
    created_at TIMESTAMP NOT NULL,
    modified_at TIMESTAMP,
    published_at TIMESTAMP,
    archived_at TIMESTAMP,
    acknowledged_at TIMESTAMP,
    is_archived BOOLEAN NOT NULL DEFAULT 0,

    -- Denormalized legal hold flags
    legal_hold BOOLEAN NOT NULL DEFAULT 0,
    legal_hold_reason TEXT,
    legal_hold_start TIMESTAMP,
    legal_hold_end TIMESTAMP,

    PRIMARY KEY (entity_type, id)
);

CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(entity_type, created_at);
CREATE INDEX IF NOT EXISTS idx_records_status ON records(entity_type, status);

-- Legal holds (never deleted)
CREATE TABLE IF NOT EXISTS legal_holds (
    id TEXT PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    entity_name TEXT,
    reason TEXT NOT NULL,
    case_reference TEXT,
    requested_by TEXT NOT NULL,
    requested_by_email TEXT,
    start_date TIMESTAMP NOT NULL,
    end_date TIMESTAMP,
    status TEXT NOT NULL,
    released_by TEXT,
    released_at TIMESTAMP,
    release_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_legal_holds_target ON legal_holds(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_legal_holds_status ON legal_holds(status);

-- Archive snapshots
CREATE TABLE IF NOT EXISTS archives (
    id TEXT PRIMARY KEY,
    entity_type TEXT NOT NULL,
    original_id TEXT NOT NULL,
    entity_name TEXT,
    snapshot TEXT NOT NULL,
    archived_by TEXT NOT NULL,
    archived_by_email TEXT,
    archived_at TIMESTAMP NOT NULL,
    policy_id TEXT NOT NULL,
    policy_name TEXT
);

CREATE INDEX IF NOT EXISTS idx_archives_original ON archives(entity_type, original_id);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion inserts the schema version if not already present.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?);`

// GetSchemaVersion returns the current schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version;`

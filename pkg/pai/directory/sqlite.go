package directory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteSchema creates the directory tables when they do not exist yet.
// Mirrors the platform's relational schema; only the columns the assistant
// core reads are present.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS people (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	phone_digits  TEXT NOT NULL DEFAULT '',
	contact_type  TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_people_phone_digits ON people(phone_digits);

CREATE TABLE IF NOT EXISTS spaces (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	parent_id   TEXT REFERENCES spaces(id),
	is_dwelling INTEGER NOT NULL DEFAULT 0,
	archived    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS assignments (
	id        TEXT PRIMARY KEY,
	person_id TEXT NOT NULL REFERENCES people(id),
	space_id  TEXT NOT NULL REFERENCES spaces(id),
	status    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assignments_person ON assignments(person_id);

CREATE TABLE IF NOT EXISTS lighting_groups (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	space_id  TEXT REFERENCES spaces(id),
	vendor_id TEXT NOT NULL,
	model     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS thermostats (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	space_id  TEXT REFERENCES spaces(id),
	vendor_id TEXT NOT NULL,
	min_role  TEXT
);

CREATE TABLE IF NOT EXISTS vehicles (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	space_id  TEXT REFERENCES spaces(id),
	vendor_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cameras (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	space_id  TEXT REFERENCES spaces(id),
	vendor_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS api_tokens (
	token      TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL REFERENCES people(id),
	expires_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS feature_requests (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS actions (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL DEFAULT '',
	channel    TEXT NOT NULL,
	tool       TEXT NOT NULL,
	target     TEXT NOT NULL DEFAULT '',
	result     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
`

// OpenSQLite opens or creates the SQLite directory database.
func OpenSQLite(cfg Config) (Store, error) {
	path := cfg.Path
	if path == "" {
		path = "./data/directory.db"
	}
	busyTimeout := cfg.BusyTimeoutMS
	if busyTimeout == 0 {
		busyTimeout = 5000
	}

	// Ensure parent directory exists.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %q: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=ON", path, busyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqlStore{db: db, bind: bindQuestion}, nil
}

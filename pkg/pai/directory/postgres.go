package directory

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

const postgresSchema = `
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
	is_dwelling BOOLEAN NOT NULL DEFAULT FALSE,
	archived    BOOLEAN NOT NULL DEFAULT FALSE
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
	expires_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS feature_requests (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS actions (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL DEFAULT '',
	channel    TEXT NOT NULL,
	tool       TEXT NOT NULL,
	target     TEXT NOT NULL DEFAULT '',
	result     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
`

// OpenPostgres opens a PostgreSQL directory database via the pgx stdlib driver.
func OpenPostgres(cfg Config) (Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres directory requires a dsn")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqlStore{db: db, bind: bindDollar}, nil
}

package journal

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

type dialect struct {
	open   func(dsn string) (*sql.DB, error)
	schema []string
	insert string
}

const insertEvent = "INSERT INTO ember_events (kind, incarnation, reference, pid, monotonic, payload, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)"

var dialects = map[string]dialect{
	"sqlite3": {
		open: openSQLite,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS ember_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				kind TEXT NOT NULL,
				incarnation TEXT NOT NULL,
				reference INTEGER NOT NULL,
				pid TEXT NOT NULL,
				monotonic INTEGER NOT NULL,
				payload BLOB,
				recorded_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS ember_events_reference ON ember_events (reference)`,
		},
		insert: insertEvent,
	},
	"mysql": {
		open: openMySQL,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS ember_events (
				id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				kind VARCHAR(32) NOT NULL,
				incarnation VARCHAR(64) NOT NULL,
				reference BIGINT NOT NULL,
				pid VARCHAR(128) NOT NULL,
				monotonic BIGINT NOT NULL,
				payload LONGBLOB,
				recorded_at BIGINT NOT NULL,
				INDEX ember_events_reference (reference)
			)`,
		},
		insert: insertEvent,
	},
}

func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; in-memory databases exist per connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

// openMySQL parses the DSN before any connection is made.
func openMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

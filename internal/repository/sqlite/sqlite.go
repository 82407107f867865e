// Package sqlite stores the session record in a local SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"

	// Pure-Go SQLite driver, registers itself as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/sakif/eljunior/internal/repository"
)

// DB wraps a database/sql connection pool.
type DB struct {
	conn   *sql.DB
	sealer repository.TokenSealer
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// sealer encrypts the token column. With a nil sealer the token is stored as
// given, which is only acceptable for tests and throwaway databases.
func New(dbPath string, sealer repository.TokenSealer) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One writer is all SQLite supports, and ":memory:" is per connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn, sealer: sealer}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is still reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) migrate() error {
	// The CHECK keeps the table to a single row.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS session (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			token      BLOB NOT NULL,
			user_id    INTEGER NOT NULL,
			username   TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name  TEXT NOT NULL DEFAULT '',
			full_name  TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating session table: %w", err)
	}

	if err := db.addColumnIfNotExists("session", "avatar_url", "TEXT"); err != nil {
		return fmt.Errorf("adding avatar_url to session: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column only when it is missing.
// SQLite has no ALTER TABLE ... ADD COLUMN IF NOT EXISTS.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

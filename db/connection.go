package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
	_ "modernc.org/sqlite"

	"microwin/config"
)

// DB represents the database connection
type DB struct {
	conn   *sql.DB
	path   string
	driver string
}

// sqlitePragmas are applied to every SQLite database on open
var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
}

// Open connects to the store named by cfg and runs pending migrations
func Open(cfg config.Config) (*DB, error) {
	return OpenPath(cfg.DBDriver, cfg.DBPath)
}

// OpenPath connects to a database file with the given driver ("duckdb" or "sqlite")
func OpenPath(driver, path string) (*DB, error) {
	if driver != config.DriverDuckDB && driver != config.DriverSQLite {
		return nil, serr.New("unsupported database driver: " + driver)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, serr.Wrap(err, "failed to create data directory")
		}
	}

	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, serr.Wrap(err, "failed to open database")
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, serr.Wrap(err, "failed to ping database")
	}

	if driver == config.DriverSQLite {
		// One writer at a time keeps SQLite away from SQLITE_BUSY under load
		conn.SetMaxOpenConns(1)
		for _, p := range sqlitePragmas {
			if _, err := conn.Exec(p); err != nil {
				conn.Close()
				return nil, serr.Wrap(err, fmt.Sprintf("failed to apply %q", p))
			}
		}
	}

	db := &DB{
		conn:   conn,
		path:   path,
		driver: driver,
	}

	logger.Info("Database connected", "driver", driver, "path", path)

	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, serr.Wrap(err, "failed to run migrations")
	}

	return db, nil
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the driver name the store was opened with
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Transaction executes a function within a database transaction
func (db *DB) Transaction(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return serr.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // re-throw panic after rollback
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return serr.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, serr.Wrap(err, fmt.Sprintf("query failed: %s", query))
	}
	return rows, nil
}

// QueryRow executes a query that returns a single row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// Exec executes a query that doesn't return rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	result, err := db.conn.Exec(query, args...)
	if err != nil {
		return nil, serr.Wrap(err, fmt.Sprintf("exec failed: %s", query))
	}
	return result, nil
}

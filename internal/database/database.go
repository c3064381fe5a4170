package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-indexer/internal/logging"
)

// Schema version recorded in the metadata table. Bump when the schema
// changes in a way that requires a rescan.
const schemaVersion = 1

// Default timeout for short database operations.
const defaultTimeout = 5 * time.Second

// Database manages the asset catalog for one media library.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New opens (creating if necessary) the catalog at dbPath and ensures
// the schema is in place. dbPath must point at a file in an existing
// writable directory.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL keeps the single writer from blocking concurrent readers;
	// busy_timeout avoids spurious "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One writer, several readers.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{db: db, dbPath: dbPath}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		version INTEGER PRIMARY KEY,
		scan_required INTEGER DEFAULT 0,
		thumbnail_scan_required INTEGER DEFAULT 0,
		tag_scan_required INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS assets (
		path TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		captured_at INTEGER NOT NULL,
		type TEXT NOT NULL,
		thumbnail BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_assets_type ON assets(type);
	CREATE INDEX IF NOT EXISTS idx_assets_captured_at ON assets(captured_at);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		value TEXT NOT NULL UNIQUE,
		display TEXT NOT NULL,
		kind TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS asset_tags (
		asset_path TEXT NOT NULL,
		tag_id INTEGER NOT NULL,
		confidence REAL NOT NULL DEFAULT 1.0,
		PRIMARY KEY (asset_path, tag_id),
		FOREIGN KEY (asset_path) REFERENCES assets(path) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	// A catalog written by an older schema gets every rescan flag
	// raised; the next maintenance passes rebuild what changed.
	var previous sql.NullInt64
	if err := d.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM metadata`).Scan(&previous); err != nil {
		return err
	}
	if previous.Valid && previous.Int64 < schemaVersion {
		if _, err := d.db.ExecContext(ctx, `DELETE FROM metadata`); err != nil {
			return err
		}
		_, err := d.db.ExecContext(ctx,
			`INSERT INTO metadata (version, scan_required, thumbnail_scan_required, tag_scan_required)
			 VALUES (?, 1, 1, 1)`, schemaVersion)
		if err != nil {
			return err
		}
		logging.Info("Catalog schema upgraded from version %d to %d, rescan scheduled",
			previous.Int64, schemaVersion)
		return nil
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO metadata (version) VALUES (?)`, schemaVersion)
	return err
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file location.
func (d *Database) Path() string {
	return d.dbPath
}

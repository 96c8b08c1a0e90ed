// Package persistence stores game snapshots and reconciles loaded snapshots
// with the current state schema.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection holding save slots and a save history.
type DB struct {
	conn *sqlx.DB
}

// SaveRecord is one row of the save history.
type SaveRecord struct {
	ID         int64   `db:"id" json:"id"`
	Slot       string  `db:"slot" json:"slot"`
	SavedAt    int64   `db:"saved_at" json:"saved_at"`
	Day        int     `db:"day" json:"day"`
	Stage      string  `db:"stage" json:"stage"`
	Cash       float64 `db:"cash" json:"cash"`
	Reputation float64 `db:"reputation" json:"reputation"`
	Charters   int     `db:"charters" json:"charters"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS save_slots (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS save_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slot TEXT NOT NULL,
		saved_at INTEGER NOT NULL,
		day INTEGER NOT NULL,
		stage TEXT NOT NULL,
		cash REAL NOT NULL,
		reputation REAL NOT NULL,
		charters INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_save_history_slot ON save_history(slot, id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Get returns the blob stored under key.
func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM save_slots WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores blob under key, replacing any previous value.
func (db *DB) Set(ctx context.Context, key string, blob []byte) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO save_slots (key, value, updated_at) VALUES (?, ?, ?)",
		key, blob, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (db *DB) Remove(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM save_slots WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// RecordSave appends a history row.
func (db *DB) RecordSave(ctx context.Context, r SaveRecord) error {
	_, err := db.conn.NamedExecContext(ctx, `INSERT INTO save_history
		(slot, saved_at, day, stage, cash, reputation, charters)
		VALUES (:slot, :saved_at, :day, :stage, :cash, :reputation, :charters)`, r)
	if err != nil {
		return fmt.Errorf("record save: %w", err)
	}
	return nil
}

// SaveHistory returns the most recent saves for slot, newest first.
func (db *DB) SaveHistory(ctx context.Context, slot string, limit int) ([]SaveRecord, error) {
	var records []SaveRecord
	err := db.conn.SelectContext(ctx, &records,
		`SELECT id, slot, saved_at, day, stage, cash, reputation, charters
		FROM save_history WHERE slot = ? ORDER BY id DESC LIMIT ?`,
		slot, limit,
	)
	return records, err
}

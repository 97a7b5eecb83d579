package cart

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the cart snapshot as a checksummed JSON document in
// a single-row table. Checksum mismatches on load are reported as
// corruption so the cart can fall back to empty.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the snapshot database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode for crash recovery
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS cart_snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		checksum BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save writes the full snapshot in one transaction.
func (s *SQLiteStore) Save(items []core.CartItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}

	checksum := sha256.Sum256(data)
	query := `INSERT OR REPLACE INTO cart_snapshot (id, data, checksum, updated_at) VALUES (1, ?, ?, ?)`
	if _, err := tx.Exec(query, string(data), checksum[:], time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return tx.Commit()
}

// Load reads the last snapshot, verifying the checksum.
func (s *SQLiteStore) Load() ([]core.CartItem, error) {
	query := `SELECT data, checksum FROM cart_snapshot WHERE id = 1`
	var data string
	var storedChecksum []byte
	err := s.db.QueryRow(query).Scan(&data, &storedChecksum)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	computed := sha256.Sum256([]byte(data))
	if len(storedChecksum) != len(computed) {
		return nil, fmt.Errorf("corrupt cart snapshot: checksum length mismatch")
	}
	for i := range computed {
		if storedChecksum[i] != computed[i] {
			return nil, fmt.Errorf("corrupt cart snapshot: checksum mismatch")
		}
	}

	var items []core.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("corrupt cart snapshot: %w", err)
	}
	return items, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

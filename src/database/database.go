package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	stdlog "log"

	"github.com/username/cardstock/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens the sqlite database and ensures the app_store table
// exists. The store is a string-keyed JSON blob table: one key per
// collection (purchases, sales, codes, the three price maps, sync
// config), mirroring the original key-per-collection layout.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS app_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create app_store table", "error", err)
		}
		stdlog.Fatalf("failed to create app_store table: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.", "databasePath", databasePath)
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// SetKey serializes v to JSON and upserts it under key.
func SetKey(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling value for key %q: %w", key, err)
	}
	_, err = DB.Exec(`INSERT INTO app_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, string(data))
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	return nil
}

// GetKey loads the blob stored under key into dst. It returns false
// (and no error) when the key has never been written.
func GetKey(key string, dst any) (bool, error) {
	var raw string
	err := DB.QueryRow(`SELECT value FROM app_store WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading key %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("unmarshalling key %q: %w", key, err)
	}
	return true, nil
}

// DeleteKey removes a stored blob. Missing keys are not an error.
func DeleteKey(key string) error {
	if _, err := DB.Exec(`DELETE FROM app_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}

// BlobStore adapts the package-level functions to the ledger.Store
// interface.
type BlobStore struct{}

func (BlobStore) Set(key string, v any) error          { return SetKey(key, v) }
func (BlobStore) Get(key string, dst any) (bool, error) { return GetKey(key, dst) }
func (BlobStore) Delete(key string) error              { return DeleteKey(key) }

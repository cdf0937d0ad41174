package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/llehouerou/cratedigger/internal/db"
	"github.com/llehouerou/cratedigger/internal/provider"
)

// crateKey is the stable record name for the serialized crate. Existing
// installs keep their data across versions as long as it stays fixed.
const crateKey = "whitelabel-crate-v1"

// SaveCrate replaces the persisted crate with the given list. Local
// image handles are excluded from serialization, only the durable
// fields survive a restart.
func (m *Manager) SaveCrate(albums []provider.AlbumArt) error {
	payload, err := json.Marshal(albums)
	if err != nil {
		return err
	}
	return db.WithTx(m.db, func(tx *sql.Tx) error {
		return upsertValue(tx, crateKey, string(payload))
	})
}

// LoadCrate returns the persisted crate in order. A missing record
// yields an empty crate, not an error.
func (m *Manager) LoadCrate() ([]provider.AlbumArt, error) {
	value, err := getValue(m.db, crateKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var albums []provider.AlbumArt
	if err := json.Unmarshal([]byte(value), &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

func upsertValue(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	return err
}

func getValue(database *sql.DB, key string) (string, error) {
	var value string
	err := database.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	return value, err
}

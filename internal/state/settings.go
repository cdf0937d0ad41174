package state

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/llehouerou/cratedigger/internal/config"
	"github.com/llehouerou/cratedigger/internal/db"
)

const settingsKey = "settings-v1"

// SaveSettings persists the user-adjusted settings snapshot.
func (m *Manager) SaveSettings(settings config.Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return db.WithTx(m.db, func(tx *sql.Tx) error {
		return upsertValue(tx, settingsKey, string(payload))
	})
}

// GetSettings returns the persisted settings, or nil when none were
// ever saved.
func (m *Manager) GetSettings() (*config.Settings, error) {
	value, err := getValue(m.db, settingsKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var settings config.Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

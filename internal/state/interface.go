// internal/state/interface.go
package state

import (
	"database/sql"

	"github.com/llehouerou/cratedigger/internal/config"
	"github.com/llehouerou/cratedigger/internal/provider"
)

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	DB() *sql.DB
	SaveCrate(albums []provider.AlbumArt) error
	LoadCrate() ([]provider.AlbumArt, error)
	SaveSettings(settings config.Settings) error
	GetSettings() (*config.Settings, error)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)

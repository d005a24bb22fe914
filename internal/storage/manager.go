// Package storage selects the persistence backend for options chains and
// system settings.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/storage/memory"
	"github.com/bobmcallan/fihub/internal/storage/sqlite"
	"github.com/bobmcallan/fihub/internal/storage/surrealdb"
)

// Backend names accepted in [storage] backend.
const (
	BackendMemory    = "memory"
	BackendSurrealDB = "surrealdb"
	BackendSQLite    = "sqlite"
)

// DefaultSQLitePath is used when the sqlite backend has no path configured
var DefaultSQLitePath = filepath.Join("data", "fihub.db")

// NewStorageManager creates the StorageManager named by config.Backend.
// An empty backend selects memory.
func NewStorageManager(logger *common.Logger, config common.StorageConfig) (interfaces.StorageManager, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendMemory
	}

	switch backend {
	case BackendMemory:
		logger.Info().Msg("Using in-memory storage; options chains and API key will not survive restart")
		return memory.NewManager(), nil

	case BackendSurrealDB:
		return surrealdb.NewManager(logger, config)

	case BackendSQLite:
		path := config.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		return sqlite.NewManager(logger, path)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, surrealdb, sqlite)", backend)
	}
}

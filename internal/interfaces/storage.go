package interfaces

import (
	"context"

	"github.com/bobmcallan/fihub/internal/models"
)

// StorageManager coordinates the persistence backend
type StorageManager interface {
	OptionsStore() OptionsStore
	KeyValueStore() KeyValueStore

	// Close releases the backend connection
	Close() error
}

// OptionsStore persists the latest options chain per symbol and greeks flag
type OptionsStore interface {
	// SaveChain upserts the chain keyed by (symbol, require_greeks)
	SaveChain(ctx context.Context, chain *models.OptionsChain) error

	// GetChain returns the stored chain or an error wrapping common.ErrNotFound
	GetChain(ctx context.Context, symbol string, requireGreeks bool) (*models.OptionsChain, error)
}

// KeyValueStore holds small system settings such as the active API key
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Package memory provides an in-process StorageManager
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
)

// Manager implements interfaces.StorageManager with process-local maps.
// Nothing survives a restart.
type Manager struct {
	mu     sync.RWMutex
	chains map[string]models.OptionsChain
	kv     map[string]string
}

// NewManager creates an empty in-memory store
func NewManager() *Manager {
	return &Manager{
		chains: make(map[string]models.OptionsChain),
		kv:     make(map[string]string),
	}
}

func (m *Manager) OptionsStore() interfaces.OptionsStore {
	return m
}

func (m *Manager) KeyValueStore() interfaces.KeyValueStore {
	return m
}

func (m *Manager) Close() error {
	return nil
}

func chainKey(symbol string, requireGreeks bool) string {
	return fmt.Sprintf("%s|%t", symbol, requireGreeks)
}

// SaveChain stores a copy of chain, replacing any previous snapshot
func (m *Manager) SaveChain(ctx context.Context, chain *models.OptionsChain) error {
	c := *chain
	c.Contracts = append([]models.OptionsContract(nil), chain.Contracts...)

	m.mu.Lock()
	m.chains[chainKey(chain.Symbol, chain.RequireGreeks)] = c
	m.mu.Unlock()
	return nil
}

func (m *Manager) GetChain(ctx context.Context, symbol string, requireGreeks bool) (*models.OptionsChain, error) {
	m.mu.RLock()
	c, ok := m.chains[chainKey(symbol, requireGreeks)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no stored options chain for %s", common.ErrNotFound, symbol)
	}
	c.Contracts = append([]models.OptionsContract(nil), c.Contracts...)
	return &c, nil
}

func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	v, ok := m.kv[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: key %s", common.ErrNotFound, key)
	}
	return v, nil
}

func (m *Manager) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.kv[key] = value
	m.mu.Unlock()
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)

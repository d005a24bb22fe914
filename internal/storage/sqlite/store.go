// Package sqlite provides a StorageManager backed by an embedded SQLite file
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
)

// Manager implements interfaces.StorageManager using SQLite
type Manager struct {
	db     *sql.DB
	logger *common.Logger
}

// NewManager opens (or creates) the database at path and runs migrations
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Writers serialise on one connection to avoid SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	m := &Manager{db: db, logger: logger}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", path).Msg("SQLite storage manager initialized")
	return m, nil
}

func (m *Manager) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS options_chains (
			symbol         TEXT    NOT NULL,
			require_greeks INTEGER NOT NULL,
			data           TEXT    NOT NULL,
			updated_at     INTEGER NOT NULL,
			PRIMARY KEY (symbol, require_greeks)
		)`,
		`CREATE TABLE IF NOT EXISTS system_kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := m.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (m *Manager) OptionsStore() interfaces.OptionsStore {
	return m
}

func (m *Manager) KeyValueStore() interfaces.KeyValueStore {
	return m
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// SaveChain upserts the chain keyed by (symbol, require_greeks)
func (m *Manager) SaveChain(ctx context.Context, chain *models.OptionsChain) error {
	data, err := json.Marshal(chain.Contracts)
	if err != nil {
		return fmt.Errorf("marshal contracts: %w", err)
	}

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO options_chains (symbol, require_greeks, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol, require_greeks) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		chain.Symbol, chain.RequireGreeks, string(data), chain.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save options chain %s: %w", chain.Symbol, err)
	}
	return nil
}

func (m *Manager) GetChain(ctx context.Context, symbol string, requireGreeks bool) (*models.OptionsChain, error) {
	var data string
	var updated int64
	err := m.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM options_chains WHERE symbol = ? AND require_greeks = ?`,
		symbol, requireGreeks).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stored options chain for %s", common.ErrNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("load options chain %s: %w", symbol, err)
	}

	chain := &models.OptionsChain{
		Symbol:        symbol,
		RequireGreeks: requireGreeks,
		UpdatedAt:     time.UnixMilli(updated).UTC(),
	}
	if err := json.Unmarshal([]byte(data), &chain.Contracts); err != nil {
		return nil, fmt.Errorf("decode options chain %s: %w", symbol, err)
	}
	return chain, nil
}

func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := m.db.QueryRowContext(ctx, `SELECT value FROM system_kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: key %s", common.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (m *Manager) Set(ctx context.Context, key, value string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO system_kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)

package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
)

const optionsTable = "options_chain"

type OptionsStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewOptionsStore(db *surrealdb.DB, logger *common.Logger) *OptionsStore {
	return &OptionsStore{
		db:     db,
		logger: logger,
	}
}

// Chain ID format: options_chain:<symbol>_<greeks|plain>
func chainID(symbol string, requireGreeks bool) string {
	if requireGreeks {
		return symbol + "_greeks"
	}
	return symbol + "_plain"
}

func (s *OptionsStore) SaveChain(ctx context.Context, chain *models.OptionsChain) error {
	sql := "UPSERT type::record($tb, $id) CONTENT $chain"
	vars := map[string]any{
		"tb":    optionsTable,
		"id":    chainID(chain.Symbol, chain.RequireGreeks),
		"chain": chain,
	}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.OptionsChain](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to save options chain after retries: %w", err)
		}
		s.logger.Debug().Err(err).Int("attempt", attempt).Str("symbol", chain.Symbol).Msg("Retrying options chain save")
	}
	return nil
}

func (s *OptionsStore) GetChain(ctx context.Context, symbol string, requireGreeks bool) (*models.OptionsChain, error) {
	chain, err := surrealdb.Select[models.OptionsChain](ctx, s.db, surrealmodels.NewRecordID(optionsTable, chainID(symbol, requireGreeks)))
	if err != nil {
		return nil, fmt.Errorf("failed to select options chain: %w", err)
	}
	if chain == nil || chain.Symbol == "" {
		return nil, fmt.Errorf("%w: no stored options chain for %s", common.ErrNotFound, symbol)
	}
	return chain, nil
}

// Package options provides options chain services
package options

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/fihub/internal/cache"
	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
)

var _ interfaces.OptionsService = (*Service)(nil)

// Service implements OptionsService
type Service struct {
	client interfaces.MarketDataClient
	store  interfaces.OptionsStore
	chains *cache.Cache[[]models.OptionsContract]
	logger *common.Logger
	now    func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithClock sets the clock used for snapshots and cache expiry
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new options service. store may be nil, in which
// case chains are neither persisted nor used as a fallback.
func NewService(client interfaces.MarketDataClient, store interfaces.OptionsStore, cfg common.CacheConfig, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.chains = cache.New[[]models.OptionsContract]("options", cfg.GetTTL(), cfg.Options, cache.WithClock(s.now))
	return s
}

// GetOptionsChain returns the chain for symbol. Successful chains are
// persisted; when upstream fails the last stored chain is served instead.
func (s *Service) GetOptionsChain(ctx context.Context, symbol string, requireGreeks bool) ([]models.OptionsContract, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", common.ErrInvalidParameter)
	}

	key := fmt.Sprintf("options|%s|%t", symbol, requireGreeks)
	return s.chains.GetOrLoad(ctx, key, func(ctx context.Context) ([]models.OptionsContract, error) {
		s.logger.Info().Str("symbol", symbol).Bool("require_greeks", requireGreeks).Msg("Fetching options chain")

		contracts, err := s.client.GetOptionsChain(ctx, symbol, requireGreeks)
		if err != nil {
			if stored := s.storedChain(ctx, symbol, requireGreeks); stored != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Time("stored_at", stored.UpdatedAt).Msg("Upstream options fetch failed, serving stored chain")
				return stored.Contracts, nil
			}
			return nil, fmt.Errorf("options chain for %s: %w", symbol, err)
		}
		if len(contracts) == 0 {
			return nil, fmt.Errorf("%w: no options data found for %s", common.ErrNotFound, symbol)
		}

		s.persist(ctx, &models.OptionsChain{
			Symbol:        symbol,
			RequireGreeks: requireGreeks,
			Contracts:     contracts,
			UpdatedAt:     s.now().UTC(),
		})
		return contracts, nil
	})
}

func (s *Service) storedChain(ctx context.Context, symbol string, requireGreeks bool) *models.OptionsChain {
	if s.store == nil {
		return nil
	}
	chain, err := s.store.GetChain(ctx, symbol, requireGreeks)
	if err != nil || chain == nil || len(chain.Contracts) == 0 {
		return nil
	}
	if !common.IsFresh(chain.UpdatedAt, s.now(), common.FreshnessStoredOptions) {
		s.logger.Debug().Str("symbol", symbol).Time("stored_at", chain.UpdatedAt).Msg("Stored options chain too old to serve")
		return nil
	}
	return chain
}

func (s *Service) persist(ctx context.Context, chain *models.OptionsChain) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveChain(ctx, chain); err != nil {
		s.logger.Warn().Err(err).Str("symbol", chain.Symbol).Msg("Failed to persist options chain")
	}
}

// PurgeExpired drops expired cache entries
func (s *Service) PurgeExpired() int {
	return s.chains.Purge()
}

// CacheStats reports activity for the service cache
func (s *Service) CacheStats() []cache.Stats {
	return []cache.Stats{s.chains.Stats()}
}

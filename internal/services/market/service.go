// Package market provides market-wide data and the provider API key
package market

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

// APIKeyStoreKey is the KeyValueStore key holding the Alpha Vantage key
const APIKeyStoreKey = "alpha_vantage_api_key"

const moversKey = "movers"

var _ interfaces.MarketService = (*Service)(nil)

// Service implements MarketService
type Service struct {
	client interfaces.MarketDataClient
	apiKey *common.APIKey
	kv     interfaces.KeyValueStore
	movers *cache.Cache[*models.MarketMovers]
	logger *common.Logger
	now    func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithClock sets the clock used for cache expiry
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new market service. kv may be nil, in which case
// key updates only live in memory.
func NewService(client interfaces.MarketDataClient, apiKey *common.APIKey, kv interfaces.KeyValueStore, cfg common.CacheConfig, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		apiKey: apiKey,
		kv:     kv,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.movers = cache.New[*models.MarketMovers]("movers", cfg.GetMoversTTL(), cfg.Movers, cache.WithClock(s.now))
	return s
}

// GetMarketMovers returns top gainers, losers and most active tickers
func (s *Service) GetMarketMovers(ctx context.Context) (*models.MarketMovers, error) {
	return s.movers.GetOrLoad(ctx, moversKey, s.fetchMovers)
}

// RefreshMarketMovers fetches movers and replaces the cached copy
func (s *Service) RefreshMarketMovers(ctx context.Context) error {
	movers, err := s.fetchMovers(ctx)
	if err != nil {
		return err
	}
	s.movers.Put(moversKey, movers)
	return nil
}

func (s *Service) fetchMovers(ctx context.Context) (*models.MarketMovers, error) {
	movers, err := s.client.GetMarketMovers(ctx)
	if err != nil {
		return nil, fmt.Errorf("market movers: %w", err)
	}
	s.logger.Debug().
		Int("gainers", len(movers.Gainers)).
		Int("losers", len(movers.Losers)).
		Int("active", len(movers.Active)).
		Msg("Fetched market movers")
	return movers, nil
}

// GetAPIKey returns the active Alpha Vantage key
func (s *Service) GetAPIKey(ctx context.Context) string {
	return s.apiKey.Get()
}

// UpdateAPIKey replaces the active key for subsequent upstream calls and
// persists it. Persistence failures are logged, not returned.
func (s *Service) UpdateAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: apikey is required", common.ErrInvalidParameter)
	}

	s.apiKey.Set(key)
	s.logger.Info().Str("apikey", s.apiKey.Masked()).Msg("Alpha Vantage API key updated")

	if s.kv != nil {
		if err := s.kv.Set(ctx, APIKeyStoreKey, key); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to persist API key")
		}
	}
	return nil
}

// PurgeExpired drops expired cache entries
func (s *Service) PurgeExpired() int {
	return s.movers.Purge()
}

// CacheStats reports activity for the service cache
func (s *Service) CacheStats() []cache.Stats {
	return []cache.Stats{s.movers.Stats()}
}

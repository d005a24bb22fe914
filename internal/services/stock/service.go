// Package stock provides equity price services
package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/fihub/internal/cache"
	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
	"github.com/bobmcallan/fihub/internal/timeseries"
)

var _ interfaces.StockService = (*Service)(nil)

// Service implements StockService
type Service struct {
	client  interfaces.MarketDataClient
	records *cache.Cache[[]models.Record]
	search  *cache.Cache[[]models.SymbolMatch]
	logger  *common.Logger
	now     func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithClock sets the clock used for default windows and cache expiry
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new stock service
func NewService(client interfaces.MarketDataClient, cfg common.CacheConfig, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	clock := cache.WithClock(s.now)
	s.records = cache.New[[]models.Record]("stock", cfg.GetTTL(), cfg.Stock, clock)
	s.search = cache.New[[]models.SymbolMatch]("search", cfg.GetTTL(), cfg.Search, clock)
	return s
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", common.ErrInvalidParameter)
	}
	return symbol, nil
}

// GetStockData returns daily records within the resolved window.
// Cache keys carry the resolved dates so requests that default to the
// same window share an entry.
func (s *Service) GetStockData(ctx context.Context, symbol, startDate, endDate string) ([]models.Record, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start, end, err := timeseries.DefaultWindow(startDate, endDate, now)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("stock|%s|%s|%s", symbol, start, end)
	return s.records.GetOrLoad(ctx, key, func(ctx context.Context) ([]models.Record, error) {
		s.logger.Info().Str("symbol", symbol).Str("start", start).Str("end", end).Msg("Fetching daily series")

		series, err := s.client.GetDailySeries(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("stock data for %s: %w", symbol, err)
		}

		filtered := timeseries.ApplyDateFilter(series, start, end, now)
		if filtered.Len() == 0 {
			return nil, fmt.Errorf("%w: no data found for %s between %s and %s", common.ErrNotFound, symbol, start, end)
		}
		return filtered.Records(), nil
	})
}

// GetIntradayData returns intraday records at interval
func (s *Service) GetIntradayData(ctx context.Context, symbol, interval string) ([]models.Record, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("intraday|%s|%s", symbol, interval)
	return s.records.GetOrLoad(ctx, key, func(ctx context.Context) ([]models.Record, error) {
		s.logger.Info().Str("symbol", symbol).Str("interval", interval).Msg("Fetching intraday series")

		series, err := s.client.GetIntradaySeries(ctx, symbol, interval)
		if err != nil {
			return nil, fmt.Errorf("intraday data for %s: %w", symbol, err)
		}
		if series.Len() == 0 {
			return nil, fmt.Errorf("%w: no intraday data found for %s", common.ErrNotFound, symbol)
		}
		return series.Records(), nil
	})
}

// SearchSymbols matches symbols by keyword
func (s *Service) SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, fmt.Errorf("%w: keywords are required", common.ErrInvalidParameter)
	}

	key := "search|" + strings.ToLower(keywords)
	return s.search.GetOrLoad(ctx, key, func(ctx context.Context) ([]models.SymbolMatch, error) {
		matches, err := s.client.SearchSymbols(ctx, keywords)
		if err != nil {
			return nil, fmt.Errorf("symbol search for %q: %w", keywords, err)
		}
		return matches, nil
	})
}

// PurgeExpired drops expired cache entries
func (s *Service) PurgeExpired() int {
	return s.records.Purge() + s.search.Purge()
}

// CacheStats reports activity for the service caches
func (s *Service) CacheStats() []cache.Stats {
	return []cache.Stats{s.records.Stats(), s.search.Stats()}
}

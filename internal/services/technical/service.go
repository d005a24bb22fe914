// Package technical provides technical indicator services
package technical

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/fihub/internal/cache"
	"github.com/bobmcallan/fihub/internal/clients/alphavantage"
	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
	"github.com/bobmcallan/fihub/internal/timeseries"
)

var _ interfaces.TechnicalService = (*Service)(nil)

// Service implements TechnicalService
type Service struct {
	client  interfaces.MarketDataClient
	records *cache.Cache[[]models.Record]
	logger  *common.Logger
	now     func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithClock sets the clock used for filtering and cache expiry
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new technical indicator service
func NewService(client interfaces.MarketDataClient, cfg common.CacheConfig, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.records = cache.New[[]models.Record]("technical", cfg.GetTTL(), cfg.Technical, cache.WithClock(s.now))
	return s
}

func cacheKey(q models.TechnicalQuery) string {
	return fmt.Sprintf("technical|%s|%s|%d|%s|%s|%s|%s",
		q.Symbol, q.Indicator, q.TimePeriod, q.SeriesType, q.Interval, q.StartDate, q.EndDate)
}

// GetIndicatorData returns indicator records for the query. Defaults are
// resolved before the cache lookup so equivalent requests share an entry.
func (s *Service) GetIndicatorData(ctx context.Context, query models.TechnicalQuery) ([]models.Record, error) {
	query.Symbol = strings.ToUpper(strings.TrimSpace(query.Symbol))
	q, err := alphavantage.NormalizeTechnicalQuery(query)
	if err != nil {
		return nil, err
	}
	if err := timeseries.ValidateDates(q.StartDate, q.EndDate); err != nil {
		return nil, err
	}

	return s.records.GetOrLoad(ctx, cacheKey(q), func(ctx context.Context) ([]models.Record, error) {
		s.logger.Info().Str("symbol", q.Symbol).Str("indicator", q.Indicator).Str("interval", q.Interval).Msg("Fetching technical indicator")

		series, err := s.client.GetTechnicalIndicator(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%s for %s: %w", q.Indicator, q.Symbol, err)
		}

		// Minute bars from today would fall past the default upper bound
		intraday := strings.HasSuffix(q.Interval, "min")
		if !intraday || q.StartDate != "" || q.EndDate != "" {
			series = timeseries.ApplyDateFilter(series, q.StartDate, q.EndDate, s.now())
		}
		if series.Len() == 0 {
			return nil, fmt.Errorf("%w: no %s data found for %s", common.ErrNotFound, q.Indicator, q.Symbol)
		}
		return series.Records(), nil
	})
}

// AvailableIndicators maps indicator name to description
func (s *Service) AvailableIndicators() map[string]string {
	return alphavantage.TechnicalIndicators()
}

// PurgeExpired drops expired cache entries
func (s *Service) PurgeExpired() int {
	return s.records.Purge()
}

// CacheStats reports activity for the service cache
func (s *Service) CacheStats() []cache.Stats {
	return []cache.Stats{s.records.Stats()}
}

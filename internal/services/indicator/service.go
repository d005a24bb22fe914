// Package indicator provides macro-economic indicator services
package indicator

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/fihub/internal/cache"
	"github.com/bobmcallan/fihub/internal/clients/alphavantage"
	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
	"github.com/bobmcallan/fihub/internal/timeseries"
)

var _ interfaces.IndicatorService = (*Service)(nil)

// Service implements IndicatorService
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

// NewService creates a new indicator service
func NewService(client interfaces.MarketDataClient, cfg common.CacheConfig, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.records = cache.New[[]models.Record]("indicator", cfg.GetTTL(), cfg.Indicator, cache.WithClock(s.now))
	return s
}

// GetIndicatorData returns {date, value} records for a named indicator.
// The date filter is applied only when a bound is supplied.
func (s *Service) GetIndicatorData(ctx context.Context, name, startDate, endDate string) ([]models.Record, error) {
	if !alphavantage.IsEconomicIndicator(name) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownIndicator, name)
	}
	if err := timeseries.ValidateDates(startDate, endDate); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("indicator|%s|%s|%s", name, startDate, endDate)
	return s.records.GetOrLoad(ctx, key, func(ctx context.Context) ([]models.Record, error) {
		s.logger.Info().Str("indicator", name).Msg("Fetching economic series")

		series, err := s.client.GetEconomicSeries(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", name, err)
		}

		if startDate != "" || endDate != "" {
			series = timeseries.ApplyDateFilter(series, startDate, endDate, s.now())
		}
		if series.Len() == 0 {
			return nil, fmt.Errorf("%w: no data found for indicator %s", common.ErrNotFound, name)
		}
		return series.Records(), nil
	})
}

// AvailableIndicators lists the indicator registry
func (s *Service) AvailableIndicators() models.AvailableIndicators {
	infos := alphavantage.EconomicIndicators()
	out := models.AvailableIndicators{
		Indicators: make([]string, 0, len(infos)),
		Intervals:  make(map[string]string, len(infos)),
		Maturities: make(map[string]string),
	}
	for _, info := range infos {
		out.Indicators = append(out.Indicators, info.Name)
		out.Intervals[info.Name] = info.Interval
		if info.Maturity != "" {
			out.Maturities[info.Name] = info.Maturity
		}
	}
	return out
}

// PurgeExpired drops expired cache entries
func (s *Service) PurgeExpired() int {
	return s.records.Purge()
}

// CacheStats reports activity for the service cache
func (s *Service) CacheStats() []cache.Stats {
	return []cache.Stats{s.records.Stats()}
}

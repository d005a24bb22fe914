// Package correlation computes Pearson correlation matrices across stock
// prices and macro indicators.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/fihub/internal/cache"
	"github.com/bobmcallan/fihub/internal/clients/alphavantage"
	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
	"github.com/bobmcallan/fihub/internal/timeseries"
)

var _ interfaces.CorrelationService = (*Service)(nil)

// maxConcurrentFetches bounds upstream calls per request
const maxConcurrentFetches = 4

// Service implements CorrelationService
type Service struct {
	client  interfaces.MarketDataClient
	results *cache.Cache[*models.Correlation]
	logger  *common.Logger
	now     func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithClock sets the clock used for date defaults and cache expiry
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new correlation service
func NewService(client interfaces.MarketDataClient, cfg common.CacheConfig, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.results = cache.New[*models.Correlation]("correlation", cfg.GetTTL(), cfg.Correlation, cache.WithClock(s.now))
	return s
}

// source is one requested series: a stock close or an indicator value
type source struct {
	label     string
	indicator bool
}

// Calculate returns the correlation matrix of the monthly last values of
// each stock close and indicator value within the date range. Labels keep
// request order, stocks first, and must be unique across both lists.
// Unknown indicators and symbols without data are skipped.
func (s *Service) Calculate(ctx context.Context, stocks, indicators []string, startDate, endDate string) (*models.Correlation, error) {
	if err := timeseries.ValidateDates(startDate, endDate); err != nil {
		return nil, err
	}

	var sources []source
	seen := make(map[string]bool)
	for _, sym := range stocks {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen["s|"+sym] {
			continue
		}
		seen["s|"+sym] = true
		sources = append(sources, source{label: sym})
	}
	for _, name := range indicators {
		name = strings.TrimSpace(name)
		if name == "" || seen["i|"+name] {
			continue
		}
		if seen["s|"+name] {
			return nil, fmt.Errorf("%w: %s requested as both stock and indicator", common.ErrInvalidParameter, name)
		}
		seen["i|"+name] = true
		sources = append(sources, source{label: name, indicator: true})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: at least one stock or indicator must be specified", common.ErrInvalidParameter)
	}

	key := fingerprint(sources, startDate, endDate)
	return s.results.GetOrLoad(ctx, key, func(ctx context.Context) (*models.Correlation, error) {
		cols, err := s.fetchColumns(ctx, sources, startDate, endDate)
		if err != nil {
			return nil, err
		}

		corr, err := timeseries.CorrelationMatrix(cols)
		if err != nil {
			return nil, err
		}
		s.logger.Info().Strs("labels", corr.Labels).Msg("Calculated correlation matrix")
		return corr, nil
	})
}

func fingerprint(sources []source, startDate, endDate string) string {
	var b strings.Builder
	b.WriteString("corr")
	for _, src := range sources {
		if src.indicator {
			b.WriteString("|i:")
		} else {
			b.WriteString("|s:")
		}
		b.WriteString(src.label)
	}
	fmt.Fprintf(&b, "|%s|%s", startDate, endDate)
	return b.String()
}

// fetchColumns loads every source concurrently. A slot stays empty when the
// source has no usable data; any other failure aborts the request.
func (s *Service) fetchColumns(ctx context.Context, sources []source, startDate, endDate string) ([]timeseries.Column, error) {
	slots := make([]*timeseries.Column, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, src := range sources {
		g.Go(func() error {
			col, err := s.fetchColumn(gctx, src, startDate, endDate)
			if err != nil {
				return err
			}
			slots[i] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cols := make([]timeseries.Column, 0, len(slots))
	for _, col := range slots {
		if col != nil {
			cols = append(cols, *col)
		}
	}
	return cols, nil
}

func (s *Service) fetchColumn(ctx context.Context, src source, startDate, endDate string) (*timeseries.Column, error) {
	var (
		series *models.TimeSeries
		field  string
		err    error
	)
	if src.indicator {
		if !alphavantage.IsEconomicIndicator(src.label) {
			s.logger.Warn().Str("indicator", src.label).Msg("Skipping unknown indicator in correlation")
			return nil, nil
		}
		field = "value"
		series, err = s.client.GetEconomicSeries(ctx, src.label)
	} else {
		field = "close"
		series, err = s.client.GetDailySeries(ctx, src.label)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Warn().Str("series", src.label).Msg("No data for correlation series, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("correlation series %s: %w", src.label, err)
	}

	filtered := timeseries.ApplyDateFilter(series, startDate, endDate, s.now())
	if filtered.Len() == 0 {
		return nil, nil
	}
	col := timeseries.ResampleMonthlyLast(filtered, field, src.label)
	return &col, nil
}

// PurgeExpired drops expired cache entries
func (s *Service) PurgeExpired() int {
	return s.results.Purge()
}

// CacheStats reports activity for the service cache
func (s *Service) CacheStats() []cache.Stats {
	return []cache.Stats{s.results.Stats()}
}

// Package transcript analyses earnings call transcripts
package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
	"github.com/bobmcallan/fihub/internal/timeseries"
)

const (
	// DefaultNumQuarters is used when past quarters are requested without a count
	DefaultNumQuarters = 4
	// MaxNumQuarters bounds how far back an analysis reaches
	MaxNumQuarters = 12
)

var _ interfaces.TranscriptService = (*Service)(nil)

// Service implements TranscriptService
type Service struct {
	client   interfaces.MarketDataClient
	analysis interfaces.AnalysisClient
	logger   *common.Logger
	now      func() time.Time
}

// Option configures the service
type Option func(*Service)

// WithClock sets the clock used to resolve the current quarter
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new transcript service. analysis may be nil, in
// which case results carry no generated analysis.
func NewService(client interfaces.MarketDataClient, analysis interfaces.AnalysisClient, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		client:   client,
		analysis: analysis,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze fetches the transcript for the requested quarter (the current one
// by default, falling back to the quarter before), optionally the quarters
// preceding it, scores sentiment, and attaches financials and an LLM
// analysis when asked and available.
func (s *Service) Analyze(ctx context.Context, req models.TranscriptRequest) (*models.EarningsAnalysis, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", common.ErrInvalidParameter)
	}

	start := quarterOf(s.now())
	if req.Quarter != "" {
		q, err := parseQuarter(req.Quarter)
		if err != nil {
			return nil, err
		}
		start = q
	}

	primaryQuarter := start
	primary := s.fetch(ctx, symbol, primaryQuarter)
	if primary == nil {
		primaryQuarter = start.previous()
		primary = s.fetch(ctx, symbol, primaryQuarter)
	}
	if primary == nil {
		return nil, fmt.Errorf("%w: no earnings call transcript found for %s in %s or %s",
			common.ErrNotFound, symbol, start, primaryQuarter)
	}

	transcripts := []*models.Transcript{primary}
	if req.AnalyzePastQuarters {
		transcripts = append(transcripts, s.fetchPast(ctx, symbol, primaryQuarter, numQuarters(req.NumQuarters)-1)...)
	}

	result := &models.EarningsAnalysis{Symbol: symbol}
	for _, t := range transcripts {
		result.Quarters = append(result.Quarters, summarize(t))
	}

	if req.IncludeFinancials {
		fin, err := s.client.GetFinancials(ctx, symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Financial data unavailable for earnings analysis")
		} else {
			result.Financials = fin
		}
	}

	if s.analysis != nil {
		text, err := s.analysis.GenerateContent(ctx, buildEarningsPrompt(symbol, result))
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Earnings analysis generation failed")
		} else {
			result.Analysis = text
		}
	}

	s.logger.Info().
		Str("symbol", symbol).
		Str("quarter", primaryQuarter.String()).
		Int("quarters", len(result.Quarters)).
		Bool("financials", result.Financials != nil).
		Msg("Earnings analysis complete")

	return result, nil
}

func numQuarters(n int) int {
	switch {
	case n <= 0:
		return DefaultNumQuarters
	case n > MaxNumQuarters:
		return MaxNumQuarters
	}
	return n
}

// fetch returns the transcript for q, or nil when upstream has none or
// the call fails.
func (s *Service) fetch(ctx context.Context, symbol string, q quarter) *models.Transcript {
	t, err := s.client.GetEarningsTranscript(ctx, symbol, q.String())
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Str("quarter", q.String()).Msg("Transcript fetch failed")
		return nil
	}
	if t == nil || len(t.Transcript) == 0 {
		return nil
	}
	if t.Quarter == "" {
		t.Quarter = q.String()
	}
	return t
}

// fetchPast loads the n quarters before q concurrently, newest first,
// keeping only those with a transcript.
func (s *Service) fetchPast(ctx context.Context, symbol string, q quarter, n int) []*models.Transcript {
	slots := make([]*models.Transcript, n)

	var g errgroup.Group
	g.SetLimit(4)
	for i := 0; i < n; i++ {
		q = q.previous()
		pq := q
		g.Go(func() error {
			slots[i] = s.fetch(ctx, symbol, pq)
			return nil
		})
	}
	g.Wait()

	var out []*models.Transcript
	for _, t := range slots {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// summarize fills missing sentiment with the keyword score and averages it
func summarize(t *models.Transcript) models.QuarterSummary {
	entries := make([]models.TranscriptEntry, len(t.Transcript))
	var total float64
	for i, e := range t.Transcript {
		if e.Sentiment == 0 {
			e.Sentiment = timeseries.Round2(KeywordSentiment(e.Content))
		}
		entries[i] = e
		total += e.Sentiment
	}

	var avg float64
	if len(entries) > 0 {
		avg = timeseries.Round2(total / float64(len(entries)))
	}
	return models.QuarterSummary{
		Quarter:          t.Quarter,
		Date:             t.Date,
		AverageSentiment: avg,
		Entries:          len(entries),
		Transcript:       entries,
	}
}

// GetFinancials returns the company fundamentals. Sub-documents that fail
// to load are empty objects.
func (s *Service) GetFinancials(ctx context.Context, symbol string) (*models.FinancialData, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", common.ErrInvalidParameter)
	}
	fin, err := s.client.GetFinancials(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("financials for %s: %w", symbol, err)
	}
	return fin, nil
}

// Package common provides shared test infrastructure
package common

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
)

// MockMarketDataClient implements MarketDataClient for testing. Each method
// delegates to its Fn field when set and otherwise reports not implemented.
type MockMarketDataClient struct {
	DailyFn      func(ctx context.Context, symbol string) (*models.TimeSeries, error)
	IntradayFn   func(ctx context.Context, symbol, interval string) (*models.TimeSeries, error)
	EconomicFn   func(ctx context.Context, name string) (*models.TimeSeries, error)
	OptionsFn    func(ctx context.Context, symbol string, includeGreeks bool) ([]models.OptionsContract, error)
	TechnicalFn  func(ctx context.Context, q models.TechnicalQuery) (*models.TimeSeries, error)
	SearchFn     func(ctx context.Context, keywords string) ([]models.SymbolMatch, error)
	MoversFn     func(ctx context.Context) (*models.MarketMovers, error)
	TranscriptFn func(ctx context.Context, symbol, quarter string) (*models.Transcript, error)
	FinancialsFn func(ctx context.Context, symbol string) (*models.FinancialData, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ interfaces.MarketDataClient = (*MockMarketDataClient)(nil)

// NewMockMarketDataClient creates a mock with no behaviour configured
func NewMockMarketDataClient() *MockMarketDataClient {
	return &MockMarketDataClient{calls: make(map[string]int)}
}

func (m *MockMarketDataClient) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times method was invoked
func (m *MockMarketDataClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func notImplemented(method string) error {
	return fmt.Errorf("%s not implemented", method)
}

func (m *MockMarketDataClient) GetDailySeries(ctx context.Context, symbol string) (*models.TimeSeries, error) {
	m.record("GetDailySeries")
	if m.DailyFn != nil {
		return m.DailyFn(ctx, symbol)
	}
	return nil, notImplemented("GetDailySeries")
}

func (m *MockMarketDataClient) GetIntradaySeries(ctx context.Context, symbol, interval string) (*models.TimeSeries, error) {
	m.record("GetIntradaySeries")
	if m.IntradayFn != nil {
		return m.IntradayFn(ctx, symbol, interval)
	}
	return nil, notImplemented("GetIntradaySeries")
}

func (m *MockMarketDataClient) GetEconomicSeries(ctx context.Context, name string) (*models.TimeSeries, error) {
	m.record("GetEconomicSeries")
	if m.EconomicFn != nil {
		return m.EconomicFn(ctx, name)
	}
	return nil, notImplemented("GetEconomicSeries")
}

func (m *MockMarketDataClient) GetOptionsChain(ctx context.Context, symbol string, includeGreeks bool) ([]models.OptionsContract, error) {
	m.record("GetOptionsChain")
	if m.OptionsFn != nil {
		return m.OptionsFn(ctx, symbol, includeGreeks)
	}
	return nil, notImplemented("GetOptionsChain")
}

func (m *MockMarketDataClient) GetTechnicalIndicator(ctx context.Context, q models.TechnicalQuery) (*models.TimeSeries, error) {
	m.record("GetTechnicalIndicator")
	if m.TechnicalFn != nil {
		return m.TechnicalFn(ctx, q)
	}
	return nil, notImplemented("GetTechnicalIndicator")
}

func (m *MockMarketDataClient) SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error) {
	m.record("SearchSymbols")
	if m.SearchFn != nil {
		return m.SearchFn(ctx, keywords)
	}
	return nil, notImplemented("SearchSymbols")
}

func (m *MockMarketDataClient) GetMarketMovers(ctx context.Context) (*models.MarketMovers, error) {
	m.record("GetMarketMovers")
	if m.MoversFn != nil {
		return m.MoversFn(ctx)
	}
	return nil, notImplemented("GetMarketMovers")
}

func (m *MockMarketDataClient) GetEarningsTranscript(ctx context.Context, symbol, quarter string) (*models.Transcript, error) {
	m.record("GetEarningsTranscript")
	if m.TranscriptFn != nil {
		return m.TranscriptFn(ctx, symbol, quarter)
	}
	return nil, notImplemented("GetEarningsTranscript")
}

func (m *MockMarketDataClient) GetFinancials(ctx context.Context, symbol string) (*models.FinancialData, error) {
	m.record("GetFinancials")
	if m.FinancialsFn != nil {
		return m.FinancialsFn(ctx, symbol)
	}
	return nil, notImplemented("GetFinancials")
}

// MockBrokerClient implements BrokerClient for testing
type MockBrokerClient struct {
	PingErr    error
	Account    json.RawMessage
	AccountErr error
	Orders     json.RawMessage
	OrdersErr  error
	Pairs      []models.TradingPair
	PairsErr   error

	mu          sync.Mutex
	OrderSymbol string
}

var _ interfaces.BrokerClient = (*MockBrokerClient)(nil)

func (m *MockBrokerClient) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockBrokerClient) GetAccount(ctx context.Context) (json.RawMessage, error) {
	return m.Account, m.AccountErr
}

func (m *MockBrokerClient) GetOpenOrders(ctx context.Context, symbol string) (json.RawMessage, error) {
	m.mu.Lock()
	m.OrderSymbol = symbol
	m.mu.Unlock()
	return m.Orders, m.OrdersErr
}

func (m *MockBrokerClient) GetTradingPairs(ctx context.Context) ([]models.TradingPair, error) {
	return m.Pairs, m.PairsErr
}

// MockAnalysisClient implements AnalysisClient for testing
type MockAnalysisClient struct {
	Response string
	Err      error

	mu      sync.Mutex
	Prompts []string
}

var _ interfaces.AnalysisClient = (*MockAnalysisClient)(nil)

func (m *MockAnalysisClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	return m.Response, m.Err
}

// FakeClock is a settable clock for cache and window tests
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFakeClock creates a clock fixed at t
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{t: t}
}

// Now returns the current fake time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// DailySeries builds a daily close series over consecutive days starting at
// start, with close values taken from closes.
func DailySeries(symbol string, start time.Time, closes ...float64) *models.TimeSeries {
	points := make([]models.Point, 0, len(closes))
	for i, c := range closes {
		points = append(points, models.Point{
			Date: start.AddDate(0, 0, i),
			Fields: map[string]float64{
				"open": c, "high": c, "low": c, "close": c, "adjusted_close": c,
				"volume": 1000, "dividend_amount": 0, "split_coefficient": 1,
			},
		})
	}
	return models.NewTimeSeries(symbol, models.DateLayout, []string{
		"open", "high", "low", "close", "adjusted_close", "volume", "dividend_amount", "split_coefficient",
	}, points)
}

// ValueSeries builds a single "value" column series from dated observations
func ValueSeries(name string, obs map[string]float64) *models.TimeSeries {
	points := make([]models.Point, 0, len(obs))
	for d, v := range obs {
		t, err := time.Parse(models.DateLayout, d)
		if err != nil {
			panic(err)
		}
		points = append(points, models.Point{Date: t, Fields: map[string]float64{"value": v}})
	}
	return models.NewTimeSeries(name, models.DateLayout, []string{"value"}, points)
}

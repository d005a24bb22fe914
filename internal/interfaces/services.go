package interfaces

import (
	"context"
	"encoding/json"

	"github.com/bobmcallan/fihub/internal/cache"
	"github.com/bobmcallan/fihub/internal/models"
)

// Purger is implemented by services that own a TTL cache
type Purger interface {
	// PurgeExpired drops expired cache entries and returns how many were removed
	PurgeExpired() int

	// CacheStats reports activity for each cache the service owns
	CacheStats() []cache.Stats
}

// StockService serves daily and intraday equity prices
type StockService interface {
	Purger

	// GetStockData returns daily records for symbol within the resolved window
	GetStockData(ctx context.Context, symbol, startDate, endDate string) ([]models.Record, error)

	// GetIntradayData returns intraday records for symbol
	GetIntradayData(ctx context.Context, symbol, interval string) ([]models.Record, error)

	// SearchSymbols matches symbols by keyword
	SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error)
}

// IndicatorService serves macro-economic indicator series
type IndicatorService interface {
	Purger

	GetIndicatorData(ctx context.Context, name, startDate, endDate string) ([]models.Record, error)
	AvailableIndicators() models.AvailableIndicators
}

// TechnicalService serves technical indicator series
type TechnicalService interface {
	Purger

	GetIndicatorData(ctx context.Context, query models.TechnicalQuery) ([]models.Record, error)
	AvailableIndicators() map[string]string
}

// OptionsService serves options chains
type OptionsService interface {
	Purger

	GetOptionsChain(ctx context.Context, symbol string, requireGreeks bool) ([]models.OptionsContract, error)
}

// CorrelationService computes correlation matrices across series
type CorrelationService interface {
	Purger

	Calculate(ctx context.Context, stocks, indicators []string, startDate, endDate string) (*models.Correlation, error)
}

// MarketService serves market-wide data and the provider API key
type MarketService interface {
	Purger

	GetMarketMovers(ctx context.Context) (*models.MarketMovers, error)
	RefreshMarketMovers(ctx context.Context) error
	GetAPIKey(ctx context.Context) string
	UpdateAPIKey(ctx context.Context, key string) error
}

// TranscriptService analyses earnings call transcripts
type TranscriptService interface {
	Analyze(ctx context.Context, req models.TranscriptRequest) (*models.EarningsAnalysis, error)
	GetFinancials(ctx context.Context, symbol string) (*models.FinancialData, error)
}

// BrokerService exposes broker account data
type BrokerService interface {
	SetCredentials(ctx context.Context, creds models.BinanceCredentials) (models.ConnectionTest, error)
	GetAccount(ctx context.Context) (json.RawMessage, error)
	GetOpenOrders(ctx context.Context, symbol string) (json.RawMessage, error)
	GetTradingPairs(ctx context.Context) ([]models.TradingPair, error)
	TestConnection(ctx context.Context) models.ConnectionTest
	IPStatus(ip string) models.IPStatus
}

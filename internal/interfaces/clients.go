// Package interfaces defines service contracts for fihub
package interfaces

import (
	"context"
	"encoding/json"

	"github.com/bobmcallan/fihub/internal/models"
)

// MarketDataClient provides access to the Alpha Vantage API
type MarketDataClient interface {
	// GetDailySeries retrieves the full daily adjusted price history
	GetDailySeries(ctx context.Context, symbol string) (*models.TimeSeries, error)

	// GetIntradaySeries retrieves intraday bars at the given interval
	GetIntradaySeries(ctx context.Context, symbol, interval string) (*models.TimeSeries, error)

	// GetEconomicSeries retrieves a macro indicator by display name
	GetEconomicSeries(ctx context.Context, name string) (*models.TimeSeries, error)

	// GetOptionsChain retrieves the realtime options chain
	GetOptionsChain(ctx context.Context, symbol string, includeGreeks bool) ([]models.OptionsContract, error)

	// GetTechnicalIndicator retrieves a technical indicator series
	GetTechnicalIndicator(ctx context.Context, query models.TechnicalQuery) (*models.TimeSeries, error)

	// SearchSymbols matches symbols by keyword
	SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error)

	// GetMarketMovers retrieves top gainers, losers and most active
	GetMarketMovers(ctx context.Context) (*models.MarketMovers, error)

	// GetEarningsTranscript retrieves a call transcript; nil when none exists
	GetEarningsTranscript(ctx context.Context, symbol, quarter string) (*models.Transcript, error)

	// GetFinancials retrieves fundamentals, isolating sub-request failures
	GetFinancials(ctx context.Context, symbol string) (*models.FinancialData, error)
}

// BrokerClient provides access to the Binance REST API
type BrokerClient interface {
	Ping(ctx context.Context) error
	GetAccount(ctx context.Context) (json.RawMessage, error)
	GetOpenOrders(ctx context.Context, symbol string) (json.RawMessage, error)
	GetTradingPairs(ctx context.Context) ([]models.TradingPair, error)
}

// AnalysisClient generates free-text analysis from a prompt
type AnalysisClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

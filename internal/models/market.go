package models

import "time"

// OptionsContract is one row of an options chain.
// Greeks are only populated when requested and supplied upstream.
type OptionsContract struct {
	ContractName      string   `json:"contract_name"`
	ContractType      string   `json:"contract_type"`
	ExpirationDate    string   `json:"expiration_date"`
	StrikePrice       float64  `json:"strike_price"`
	LastPrice         float64  `json:"last_price"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	Change            float64  `json:"change"`
	ChangePercentage  float64  `json:"change_percentage"`
	Volume            int64    `json:"volume"`
	OpenInterest      int64    `json:"open_interest"`
	ImpliedVolatility *float64 `json:"implied_volatility,omitempty"`
	Delta             *float64 `json:"delta,omitempty"`
	Gamma             *float64 `json:"gamma,omitempty"`
	Theta             *float64 `json:"theta,omitempty"`
	Vega              *float64 `json:"vega,omitempty"`
	Rho               *float64 `json:"rho,omitempty"`
}

// OptionsChain is a persisted snapshot of an options chain.
type OptionsChain struct {
	Symbol        string            `json:"symbol"`
	RequireGreeks bool              `json:"require_greeks"`
	Contracts     []OptionsContract `json:"contracts"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// MarketMover is one entry of the gainers, losers or most-active lists.
type MarketMover struct {
	Ticker           string  `json:"ticker"`
	Price            float64 `json:"price"`
	ChangeAmount     float64 `json:"change_amount"`
	ChangePercentage string  `json:"change_percentage"`
	Volume           int64   `json:"volume"`
}

// MarketMovers groups the three mover lists with the upstream timestamp.
type MarketMovers struct {
	Timestamp string        `json:"timestamp"`
	Gainers   []MarketMover `json:"gainers"`
	Losers    []MarketMover `json:"losers"`
	Active    []MarketMover `json:"active"`
}

// SymbolMatch is a symbol search result.
type SymbolMatch struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Region      string  `json:"region"`
	MarketOpen  string  `json:"market_open"`
	MarketClose string  `json:"market_close"`
	Timezone    string  `json:"timezone"`
	Currency    string  `json:"currency"`
	MatchScore  float64 `json:"match_score"`
}

// Correlation is a symmetric Pearson matrix over labelled series.
type Correlation struct {
	Labels []string    `json:"labels"`
	Matrix [][]float64 `json:"matrix"`
}

// TechnicalQuery describes a technical indicator request.
// Zero values mean "use the indicator default".
type TechnicalQuery struct {
	Symbol     string
	Indicator  string
	Interval   string
	TimePeriod int
	SeriesType string
	StartDate  string
	EndDate    string
}

// IndicatorInfo describes a macro indicator in the registry.
type IndicatorInfo struct {
	Name     string `json:"name"`
	Function string `json:"function"`
	Interval string `json:"interval"`
	Maturity string `json:"maturity,omitempty"`
}

// AvailableIndicators is the listing returned for macro indicators.
type AvailableIndicators struct {
	Indicators []string          `json:"indicators"`
	Intervals  map[string]string `json:"intervals"`
	Maturities map[string]string `json:"maturities"`
}

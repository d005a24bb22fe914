package models

import "encoding/json"

// TranscriptEntry is one speaker turn in an earnings call.
type TranscriptEntry struct {
	Speaker   string  `json:"speaker"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Sentiment float64 `json:"sentiment"`
}

// Transcript is an earnings call transcript for a fiscal quarter (e.g. "2024Q1").
type Transcript struct {
	Symbol     string            `json:"symbol"`
	Quarter    string            `json:"quarter"`
	Date       string            `json:"date,omitempty"`
	Transcript []TranscriptEntry `json:"transcript"`
}

// FinancialData bundles the company fundamentals. A sub-document that
// failed to load is an empty object.
type FinancialData struct {
	Symbol              string          `json:"symbol"`
	CompanyOverview     json.RawMessage `json:"company_overview"`
	IncomeStatement     json.RawMessage `json:"income_statement"`
	BalanceSheet        json.RawMessage `json:"balance_sheet"`
	CashFlow            json.RawMessage `json:"cash_flow"`
	InsiderTransactions json.RawMessage `json:"insider_transactions"`
}

// TranscriptRequest configures an earnings analysis.
type TranscriptRequest struct {
	Symbol              string
	Quarter             string
	AnalyzePastQuarters bool
	NumQuarters         int
	IncludeFinancials   bool
}

// QuarterSummary is the per-quarter result of an earnings analysis.
type QuarterSummary struct {
	Quarter          string            `json:"quarter"`
	Date             string            `json:"date,omitempty"`
	AverageSentiment float64           `json:"average_sentiment"`
	Entries          int               `json:"entries"`
	Transcript       []TranscriptEntry `json:"transcript"`
}

// EarningsAnalysis is the response of the earnings analysis endpoint.
type EarningsAnalysis struct {
	Symbol     string           `json:"symbol"`
	Quarters   []QuarterSummary `json:"quarters"`
	Financials *FinancialData   `json:"financials,omitempty"`
	Analysis   string           `json:"analysis,omitempty"`
}

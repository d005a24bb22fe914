package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/fihub/internal/models"
)

type symbolMatchResponse struct {
	BestMatches []struct {
		Symbol      string      `json:"1. symbol"`
		Name        string      `json:"2. name"`
		Type        string      `json:"3. type"`
		Region      string      `json:"4. region"`
		MarketOpen  string      `json:"5. marketOpen"`
		MarketClose string      `json:"6. marketClose"`
		Timezone    string      `json:"7. timezone"`
		Currency    string      `json:"8. currency"`
		MatchScore  flexFloat64 `json:"9. matchScore"`
	} `json:"bestMatches"`
}

// SearchSymbols matches symbols by keyword
func (c *Client) SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error) {
	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", keywords)

	var resp symbolMatchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	matches := make([]models.SymbolMatch, 0, len(resp.BestMatches))
	for _, m := range resp.BestMatches {
		matches = append(matches, models.SymbolMatch{
			Symbol:      m.Symbol,
			Name:        m.Name,
			Type:        m.Type,
			Region:      m.Region,
			MarketOpen:  m.MarketOpen,
			MarketClose: m.MarketClose,
			Timezone:    m.Timezone,
			Currency:    m.Currency,
			MatchScore:  m.MatchScore.value,
		})
	}
	return matches, nil
}

type moverRecord struct {
	Ticker           string      `json:"ticker"`
	Price            flexFloat64 `json:"price"`
	ChangeAmount     flexFloat64 `json:"change_amount"`
	ChangePercentage string      `json:"change_percentage"`
	Volume           flexFloat64 `json:"volume"`
}

type moversResponse struct {
	LastUpdated        string        `json:"last_updated"`
	TopGainers         []moverRecord `json:"top_gainers"`
	TopLosers          []moverRecord `json:"top_losers"`
	MostActivelyTraded []moverRecord `json:"most_actively_traded"`
}

func toMovers(records []moverRecord) []models.MarketMover {
	out := make([]models.MarketMover, 0, len(records))
	for _, r := range records {
		out = append(out, models.MarketMover{
			Ticker:           r.Ticker,
			Price:            r.Price.value,
			ChangeAmount:     r.ChangeAmount.value,
			ChangePercentage: r.ChangePercentage,
			Volume:           int64(r.Volume.value),
		})
	}
	return out
}

// GetMarketMovers retrieves top gainers, losers and most active tickers.
// Missing lists are returned empty.
func (c *Client) GetMarketMovers(ctx context.Context) (*models.MarketMovers, error) {
	params := url.Values{}
	params.Set("function", "TOP_GAINERS_LOSERS")

	var resp moversResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	if resp.TopGainers == nil && resp.TopLosers == nil && resp.MostActivelyTraded == nil {
		c.logger.Warn().Msg("No market movers data returned")
	}

	timestamp := resp.LastUpdated
	if timestamp == "" {
		timestamp = c.now().Format(time.RFC3339)
	}

	return &models.MarketMovers{
		Timestamp: timestamp,
		Gainers:   toMovers(resp.TopGainers),
		Losers:    toMovers(resp.TopLosers),
		Active:    toMovers(resp.MostActivelyTraded),
	}, nil
}

type transcriptResponse struct {
	Symbol     string `json:"symbol"`
	Quarter    string `json:"quarter"`
	CallDate   string `json:"call_date"`
	Transcript []struct {
		Speaker   string      `json:"speaker"`
		Title     string      `json:"title"`
		Content   string      `json:"content"`
		Sentiment flexFloat64 `json:"sentiment"`
	} `json:"transcript"`
}

// GetEarningsTranscript retrieves a call transcript. It returns nil with no
// error when upstream has no transcript for the quarter.
func (c *Client) GetEarningsTranscript(ctx context.Context, symbol, quarter string) (*models.Transcript, error) {
	params := url.Values{}
	params.Set("function", "EARNINGS_CALL_TRANSCRIPT")
	params.Set("symbol", symbol)
	params.Set("quarter", quarter)

	var resp transcriptResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Transcript) == 0 {
		c.logger.Info().Str("symbol", symbol).Str("quarter", quarter).Msg("No transcript found")
		return nil, nil
	}

	t := &models.Transcript{
		Symbol:     symbol,
		Quarter:    quarter,
		Date:       resp.CallDate,
		Transcript: make([]models.TranscriptEntry, 0, len(resp.Transcript)),
	}
	for _, e := range resp.Transcript {
		speaker := e.Speaker
		if speaker == "" {
			speaker = "Unknown"
		}
		t.Transcript = append(t.Transcript, models.TranscriptEntry{
			Speaker:   speaker,
			Title:     e.Title,
			Content:   e.Content,
			Sentiment: e.Sentiment.value,
		})
	}
	return t, nil
}

var emptyObject = json.RawMessage(`{}`)

// GetFinancials retrieves the five fundamentals documents concurrently.
// A failed document becomes an empty object; the call itself only fails
// when the context is cancelled.
func (c *Client) GetFinancials(ctx context.Context, symbol string) (*models.FinancialData, error) {
	result := &models.FinancialData{Symbol: symbol}

	endpoints := []struct {
		function string
		target   *json.RawMessage
	}{
		{"OVERVIEW", &result.CompanyOverview},
		{"INCOME_STATEMENT", &result.IncomeStatement},
		{"BALANCE_SHEET", &result.BalanceSheet},
		{"CASH_FLOW", &result.CashFlow},
		{"INSIDER_TRANSACTIONS", &result.InsiderTransactions},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range endpoints {
		g.Go(func() error {
			params := url.Values{}
			params.Set("function", ep.function)
			params.Set("symbol", symbol)

			var doc json.RawMessage
			if err := c.get(gctx, params, &doc); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.logger.Warn().Err(err).Str("function", ep.function).Str("symbol", symbol).Msg("Financial document unavailable")
				*ep.target = emptyObject
				return nil
			}
			*ep.target = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("financials for %s: %w", symbol, err)
	}
	return result, nil
}

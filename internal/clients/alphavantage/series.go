package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
)

// DailyColumns is the canonical column order of a daily price series
var DailyColumns = []string{
	"open", "high", "low", "close", "adjusted_close",
	"volume", "dividend_amount", "split_coefficient",
}

// IntradayIntervals are the bar sizes the intraday endpoint accepts
var IntradayIntervals = []string{"1min", "5min", "15min", "30min", "60min"}

// economicIndicator maps a display name to its upstream request
type economicIndicator struct {
	function string
	interval string
	maturity string
}

// economicIndicators is the fixed registry of macro series
var economicIndicators = map[string]economicIndicator{
	"Real GDP":            {function: "REAL_GDP", interval: "quarterly"},
	"Real GDP per Capita": {function: "REAL_GDP_PER_CAPITA", interval: "annual"},
	"Treasury Yield":      {function: "TREASURY_YIELD", interval: "monthly", maturity: "10year"},
	"Federal Funds Rate":  {function: "FEDERAL_FUNDS_RATE", interval: "monthly"},
	"CPI":                 {function: "CPI", interval: "monthly"},
	"Inflation":           {function: "INFLATION", interval: "monthly"},
	"Retail Sales":        {function: "RETAIL_SALES", interval: "monthly"},
	"Durables":            {function: "DURABLES", interval: "monthly"},
	"Unemployment":        {function: "UNEMPLOYMENT", interval: "monthly"},
	"Nonfarm Payroll":     {function: "NONFARM_PAYROLL", interval: "monthly"},
}

// EconomicIndicators returns the registry sorted by display name
func EconomicIndicators() []models.IndicatorInfo {
	out := make([]models.IndicatorInfo, 0, len(economicIndicators))
	for name, ind := range economicIndicators {
		out = append(out, models.IndicatorInfo{
			Name:     name,
			Function: ind.function,
			Interval: ind.interval,
			Maturity: ind.maturity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsEconomicIndicator reports whether name is in the registry
func IsEconomicIndicator(name string) bool {
	_, ok := economicIndicators[name]
	return ok
}

// barFields is an upstream bar keyed by numbered labels such as "4. close"
type barFields map[string]flexFloat64

// columnName turns "5. adjusted close" into "adjusted_close"
func columnName(label string) string {
	if _, rest, ok := strings.Cut(label, ". "); ok {
		label = rest
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// toPoint keeps parseable values only
func (b barFields) toPoint(date time.Time) models.Point {
	fields := make(map[string]float64, len(b))
	for label, v := range b {
		if v.valid {
			fields[columnName(label)] = v.value
		}
	}
	return models.Point{Date: date, Fields: fields}
}

// parseTimestamp accepts the date and date-time forms used across endpoints
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{models.DateLayout, models.DateTimeLayout, "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// GetDailySeries retrieves the full daily adjusted price history
func (c *Client) GetDailySeries(ctx context.Context, symbol string) (*models.TimeSeries, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	params.Set("symbol", symbol)
	params.Set("outputsize", "full")

	var resp map[string]json.RawMessage
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	raw, ok := resp["Time Series (Daily)"]
	if !ok {
		c.logger.Warn().Str("symbol", symbol).Msg("No daily series returned")
		return nil, fmt.Errorf("%w: no data found for symbol: %s", common.ErrNotFound, symbol)
	}

	var bars map[string]barFields
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("%w: failed to decode daily series: %v", common.ErrUpstream, err)
	}

	points := make([]models.Point, 0, len(bars))
	for date, bar := range bars {
		t, ok := parseTimestamp(date)
		if !ok {
			continue
		}
		p := bar.toPoint(t)
		// Rows without a usable close are dropped
		if _, ok := p.Fields["close"]; !ok {
			continue
		}
		points = append(points, p)
	}

	return models.NewTimeSeries(symbol, models.DateLayout, DailyColumns, points), nil
}

// GetIntradaySeries retrieves intraday bars. The upstream feed omits the
// adjustment columns, so adjusted_close mirrors close with neutral
// dividend and split values.
func (c *Client) GetIntradaySeries(ctx context.Context, symbol, interval string) (*models.TimeSeries, error) {
	if !slices.Contains(IntradayIntervals, interval) {
		return nil, fmt.Errorf("%w: interval %q must be one of %s", common.ErrInvalidParameter, interval, strings.Join(IntradayIntervals, ", "))
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_INTRADAY")
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("outputsize", "full")

	var resp map[string]json.RawMessage
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	raw, ok := resp[fmt.Sprintf("Time Series (%s)", interval)]
	if !ok {
		return nil, fmt.Errorf("%w: no intraday data found for symbol: %s", common.ErrNotFound, symbol)
	}

	var bars map[string]barFields
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("%w: failed to decode intraday series: %v", common.ErrUpstream, err)
	}

	points := make([]models.Point, 0, len(bars))
	for ts, bar := range bars {
		t, ok := parseTimestamp(ts)
		if !ok {
			continue
		}
		p := bar.toPoint(t)
		closePrice, ok := p.Fields["close"]
		if !ok {
			continue
		}
		p.Fields["adjusted_close"] = closePrice
		p.Fields["dividend_amount"] = 0
		p.Fields["split_coefficient"] = 1
		points = append(points, p)
	}

	return models.NewTimeSeries(symbol, models.DateTimeLayout, DailyColumns, points), nil
}

type economicResponse struct {
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Unit     string `json:"unit"`
	Data     []struct {
		Date  string      `json:"date"`
		Value flexFloat64 `json:"value"`
	} `json:"data"`
}

// GetEconomicSeries retrieves a macro indicator by display name.
// Observations reported as "." are dropped.
func (c *Client) GetEconomicSeries(ctx context.Context, name string) (*models.TimeSeries, error) {
	ind, ok := economicIndicators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownIndicator, name)
	}

	params := url.Values{}
	params.Set("function", ind.function)
	params.Set("interval", ind.interval)
	if ind.maturity != "" {
		params.Set("maturity", ind.maturity)
	}

	var resp economicResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	points := make([]models.Point, 0, len(resp.Data))
	for _, obs := range resp.Data {
		t, ok := parseTimestamp(obs.Date)
		if !ok || !obs.Value.valid {
			continue
		}
		points = append(points, models.Point{Date: t, Fields: map[string]float64{"value": obs.Value.value}})
	}

	if len(points) == 0 {
		c.logger.Warn().Str("indicator", name).Msg("No economic data returned")
	}

	return models.NewTimeSeries(name, models.DateLayout, []string{"value"}, points), nil
}

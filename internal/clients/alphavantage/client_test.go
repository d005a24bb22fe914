package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
)

// newTestClient serves handler and returns a client pointed at it
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(common.NewAPIKey("test-key"), WithBaseURL(srv.URL), WithRateLimit(100))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestGetDailySeries_ParsesAndSorts(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"function":   r.URL.Query().Get("function"),
			"symbol":     r.URL.Query().Get("symbol"),
			"outputsize": r.URL.Query().Get("outputsize"),
			"apikey":     r.URL.Query().Get("apikey"),
		}
		writeJSON(w, map[string]interface{}{
			"Meta Data": map[string]string{"2. Symbol": "IBM"},
			"Time Series (Daily)": map[string]interface{}{
				"2024-01-03": map[string]string{
					"1. open": "101.0", "2. high": "103.0", "3. low": "100.0", "4. close": "102.5",
					"5. adjusted close": "102.0", "6. volume": "1500", "7. dividend amount": "0.0000", "8. split coefficient": "1.0",
				},
				"2024-01-02": map[string]string{
					"1. open": "100.0", "2. high": "102.0", "3. low": "99.0", "4. close": "101.0",
					"5. adjusted close": "100.5", "6. volume": "1000", "7. dividend amount": "0.0000", "8. split coefficient": "1.0",
				},
				"2024-01-04": map[string]string{
					"1. open": "None", "4. close": "None",
				},
			},
		})
	})

	series, err := client.GetDailySeries(context.Background(), "IBM")
	require.NoError(t, err)

	assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", gotQuery["function"])
	assert.Equal(t, "IBM", gotQuery["symbol"])
	assert.Equal(t, "full", gotQuery["outputsize"])
	assert.Equal(t, "test-key", gotQuery["apikey"])

	require.Equal(t, 2, series.Len(), "row without close should be dropped")
	assert.Equal(t, "2024-01-02", series.Points[0].Date.Format(models.DateLayout))
	assert.Equal(t, 101.0, series.Points[0].Fields["close"])
	assert.Equal(t, 100.5, series.Points[0].Fields["adjusted_close"])
	assert.Equal(t, 1.0, series.Points[0].Fields["split_coefficient"])

	recs := series.Records()
	assert.Equal(t, int64(1500), recs[1]["volume"])
}

func TestGetDailySeries_MissingSeriesIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"Meta Data": map[string]string{}})
	})

	_, err := client.GetDailySeries(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestGetIntradaySeries_SynthesizesAdjustments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5min", r.URL.Query().Get("interval"))
		writeJSON(w, map[string]interface{}{
			"Time Series (5min)": map[string]interface{}{
				"2024-01-02 09:35:00": map[string]string{
					"1. open": "10", "2. high": "11", "3. low": "9", "4. close": "10.5", "5. volume": "300",
				},
			},
		})
	})

	series, err := client.GetIntradaySeries(context.Background(), "IBM", "5min")
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())

	p := series.Points[0]
	assert.Equal(t, 10.5, p.Fields["adjusted_close"])
	assert.Equal(t, 0.0, p.Fields["dividend_amount"])
	assert.Equal(t, 1.0, p.Fields["split_coefficient"])
	assert.Equal(t, "2024-01-02 09:35:00", series.Records()[0]["date"])
}

func TestGetIntradaySeries_RejectsInterval(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.GetIntradaySeries(context.Background(), "IBM", "2min")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))
	assert.False(t, called, "invalid interval must not reach upstream")
}

func TestGetEconomicSeries_DropsMissingObservations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "TREASURY_YIELD", q.Get("function"))
		assert.Equal(t, "monthly", q.Get("interval"))
		assert.Equal(t, "10year", q.Get("maturity"))
		writeJSON(w, map[string]interface{}{
			"name": "10-Year Treasury Yield",
			"data": []map[string]string{
				{"date": "2024-02-01", "value": "4.21"},
				{"date": "2024-01-01", "value": "."},
				{"date": "2023-12-01", "value": "4.02"},
			},
		})
	})

	series, err := client.GetEconomicSeries(context.Background(), "Treasury Yield")
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, "2023-12-01", series.Points[0].Date.Format(models.DateLayout))
	assert.Equal(t, 4.21, series.Points[1].Fields["value"])
}

func TestGetEconomicSeries_UnknownIndicator(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected upstream call")
	})

	_, err := client.GetEconomicSeries(context.Background(), "Gold Price")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnknownIndicator))
}

func TestEconomicIndicators_Registry(t *testing.T) {
	infos := EconomicIndicators()
	require.Len(t, infos, 10)
	for i := 1; i < len(infos); i++ {
		assert.Less(t, infos[i-1].Name, infos[i].Name)
	}
	assert.True(t, IsEconomicIndicator("CPI"))
	assert.False(t, IsEconomicIndicator("cpi"))
}

func TestGetOptionsChain_GreeksOnlyWithImpliedVolatility(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "REALTIME_OPTIONS", r.URL.Query().Get("function"))
		assert.Equal(t, "true", r.URL.Query().Get("require_greeks"))
		writeJSON(w, map[string]interface{}{
			"data": []map[string]string{
				{
					"contractID": "IBM240119C00100000", "type": "call", "expiration": "2024-01-19",
					"strike": "100.00", "last": "5.10", "bid": "5.00", "ask": "5.20", "volume": "12", "open_interest": "340",
					"implied_volatility": "0.25", "delta": "0.55", "gamma": "0.04", "theta": "-0.02", "vega": "0.11", "rho": "0.03",
				},
				{
					"contractID": "IBM240119P00100000", "type": "put", "expiration": "2024-01-19",
					"strike": "100.00", "last": "1.10", "volume": "3", "open_interest": "40",
					"delta": "-0.45",
				},
			},
		})
	})

	contracts, err := client.GetOptionsChain(context.Background(), "IBM", true)
	require.NoError(t, err)
	require.Len(t, contracts, 2)

	call := contracts[0]
	assert.Equal(t, "IBM240119C00100000", call.ContractName)
	assert.Equal(t, 100.0, call.StrikePrice)
	assert.Equal(t, int64(340), call.OpenInterest)
	require.NotNil(t, call.ImpliedVolatility)
	require.NotNil(t, call.Delta)
	assert.Equal(t, 0.55, *call.Delta)

	put := contracts[1]
	assert.Nil(t, put.ImpliedVolatility)
	assert.Nil(t, put.Delta, "greeks are omitted when implied volatility is absent")
}

func TestGetOptionsChain_LegacyShapeWithoutGreeks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("require_greeks"))
		writeJSON(w, map[string]interface{}{
			"options": []map[string]interface{}{
				{"contract_name": "X1", "contract_type": "call", "expiration_date": "2024-03-15",
					"strike_price": 50.0, "last_price": 2.5, "implied_volatility": 0.3, "delta": 0.5},
			},
		})
	})

	contracts, err := client.GetOptionsChain(context.Background(), "X", false)
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, "X1", contracts[0].ContractName)
	assert.Equal(t, 50.0, contracts[0].StrikePrice)
	assert.Nil(t, contracts[0].ImpliedVolatility)
}

func TestNormalizeTechnicalQuery(t *testing.T) {
	q, err := NormalizeTechnicalQuery(models.TechnicalQuery{Symbol: "IBM", Indicator: "rsi"})
	require.NoError(t, err)
	assert.Equal(t, "RSI", q.Indicator)
	assert.Equal(t, DefaultTimePeriod, q.TimePeriod)
	assert.Equal(t, DefaultSeriesType, q.SeriesType)
	assert.Equal(t, DefaultInterval, q.Interval)

	_, err = NormalizeTechnicalQuery(models.TechnicalQuery{Symbol: "IBM", Indicator: "NOPE"})
	assert.True(t, errors.Is(err, common.ErrUnknownIndicator))

	_, err = NormalizeTechnicalQuery(models.TechnicalQuery{Symbol: "IBM", Indicator: "SMA", Interval: "2min"})
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))

	_, err = NormalizeTechnicalQuery(models.TechnicalQuery{Symbol: "IBM", Indicator: "SMA", SeriesType: "median"})
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))
}

func TestTechnicalParams_IndicatorDefaults(t *testing.T) {
	assert.Len(t, TechnicalIndicators(), 53)

	macd, err := NormalizeTechnicalQuery(models.TechnicalQuery{Symbol: "IBM", Indicator: "MACD"})
	require.NoError(t, err)
	params := technicalParams(macd)
	assert.Equal(t, "12", params.Get("fastperiod"))
	assert.Equal(t, "26", params.Get("slowperiod"))
	assert.Equal(t, "9", params.Get("signalperiod"))
	assert.Equal(t, "close", params.Get("series_type"))
	assert.Empty(t, params.Get("time_period"), "MACD takes no time_period")

	obv, err := NormalizeTechnicalQuery(models.TechnicalQuery{Symbol: "IBM", Indicator: "OBV"})
	require.NoError(t, err)
	params = technicalParams(obv)
	assert.Empty(t, params.Get("time_period"))
	assert.Empty(t, params.Get("series_type"))
}

func TestGetTechnicalIndicator_MultiColumn(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"Technical Analysis: MACD": map[string]interface{}{
				"2024-01-03": map[string]string{"MACD": "1.5", "MACD_Signal": "1.2", "MACD_Hist": "0.3"},
				"2024-01-02": map[string]string{"MACD": "1.4", "MACD_Signal": "1.1", "MACD_Hist": "0.3"},
			},
		})
	})

	series, err := client.GetTechnicalIndicator(context.Background(), models.TechnicalQuery{Symbol: "IBM", Indicator: "macd"})
	require.NoError(t, err)
	assert.Equal(t, []string{"MACD", "MACD_Hist", "MACD_Signal"}, series.Columns)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 1.4, series.Points[0].Fields["MACD"])
}

func TestGet_ErrorPayloads(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"error message", map[string]interface{}{"Error Message": "Invalid API call"}},
		{"rate limit note", map[string]interface{}{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}},
		{"information only", map[string]interface{}{"Information": "Premium endpoint"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})

			_, err := client.GetDailySeries(context.Background(), "IBM")
			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", apiErr.Function)
			assert.True(t, errors.Is(err, common.ErrUpstream))
		})
	}
}

func TestGet_NonOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := client.SearchSymbols(context.Background(), "ibm")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestGet_NetworkErrorDoesNotLeakKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(common.NewAPIKey("super-secret-key"), WithBaseURL(srv.URL), WithTimeout(time.Second))
	_, err := client.GetDailySeries(context.Background(), "IBM")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUpstream))
	assert.NotContains(t, err.Error(), "super-secret-key")
}

func TestGet_NetworkErrorDoesNotLeakEscapedKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	key := "ab+cd/ef="
	client := NewClient(common.NewAPIKey(key), WithBaseURL(srv.URL), WithTimeout(time.Second))
	_, err := client.GetDailySeries(context.Background(), "IBM")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)
	assert.NotContains(t, err.Error(), url.QueryEscape(key))
	assert.NotContains(t, err.Error(), "apikey=")
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "apikey=*** and ***", redact("apikey=ab%2Bcd%2Fef%3D and ab+cd/ef=", "ab+cd/ef="))
	assert.Equal(t, "unchanged", redact("unchanged", ""))
}

func TestClient_UsesUpdatedKey(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.URL.Query().Get("apikey"))
		mu.Unlock()
		writeJSON(w, map[string]interface{}{"bestMatches": []interface{}{}})
	}))
	defer srv.Close()

	key := common.NewAPIKey("first")
	client := NewClient(key, WithBaseURL(srv.URL))

	_, err := client.SearchSymbols(context.Background(), "a")
	require.NoError(t, err)
	key.Set("second")
	_, err = client.SearchSymbols(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, keys)
}

func TestSearchSymbols_NumberedKeys(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "micro", r.URL.Query().Get("keywords"))
		writeJSON(w, map[string]interface{}{
			"bestMatches": []map[string]string{{
				"1. symbol": "MSFT", "2. name": "Microsoft Corporation", "3. type": "Equity",
				"4. region": "United States", "5. marketOpen": "09:30", "6. marketClose": "16:00",
				"7. timezone": "UTC-04", "8. currency": "USD", "9. matchScore": "0.6154",
			}},
		})
	})

	matches, err := client.SearchSymbols(context.Background(), "micro")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "MSFT", matches[0].Symbol)
	assert.Equal(t, "USD", matches[0].Currency)
	assert.InDelta(t, 0.6154, matches[0].MatchScore, 1e-9)
}

func TestGetMarketMovers_EmptyListsAndTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"top_gainers": []map[string]string{
				{"ticker": "ABC", "price": "1.23", "change_amount": "0.5", "change_percentage": "68.49%", "volume": "1000"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(common.NewAPIKey("k"), WithBaseURL(srv.URL), WithClock(func() time.Time { return now }))
	movers, err := client.GetMarketMovers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now.Format(time.RFC3339), movers.Timestamp)
	require.Len(t, movers.Gainers, 1)
	assert.Equal(t, "68.49%", movers.Gainers[0].ChangePercentage)
	assert.Equal(t, int64(1000), movers.Gainers[0].Volume)
	assert.NotNil(t, movers.Losers)
	assert.Empty(t, movers.Losers)
	assert.Empty(t, movers.Active)
}

func TestGetEarningsTranscript(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("quarter") == "2023Q1" {
			writeJSON(w, map[string]interface{}{"symbol": "IBM", "quarter": "2023Q1", "transcript": []interface{}{}})
			return
		}
		writeJSON(w, map[string]interface{}{
			"symbol":   "IBM",
			"quarter":  "2024Q1",
			"call_date": "2024-04-24",
			"transcript": []map[string]string{
				{"speaker": "Arvind Krishna", "title": "CEO", "content": "Strong growth this quarter.", "sentiment": "0.8"},
				{"content": "Next question please.", "sentiment": "0.1"},
			},
		})
	})

	tr, err := client.GetEarningsTranscript(context.Background(), "IBM", "2024Q1")
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "2024-04-24", tr.Date)
	require.Len(t, tr.Transcript, 2)
	assert.Equal(t, 0.8, tr.Transcript[0].Sentiment)
	assert.Equal(t, "Unknown", tr.Transcript[1].Speaker)

	none, err := client.GetEarningsTranscript(context.Background(), "IBM", "2023Q1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGetFinancials_PartialFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("function") {
		case "OVERVIEW":
			writeJSON(w, map[string]string{"Symbol": "IBM", "Sector": "TECHNOLOGY"})
		case "BALANCE_SHEET":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "CASH_FLOW":
			writeJSON(w, map[string]string{"Error Message": "Invalid API call"})
		default:
			writeJSON(w, map[string]interface{}{"symbol": "IBM", "data": []interface{}{}})
		}
	})

	fin, err := client.GetFinancials(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, "IBM", fin.Symbol)
	assert.True(t, strings.Contains(string(fin.CompanyOverview), "TECHNOLOGY"))
	assert.JSONEq(t, `{}`, string(fin.BalanceSheet))
	assert.JSONEq(t, `{}`, string(fin.CashFlow))
	assert.JSONEq(t, `{"symbol":"IBM","data":[]}`, string(fin.IncomeStatement))
	assert.JSONEq(t, `{"symbol":"IBM","data":[]}`, string(fin.InsiderTransactions))
}

func TestGetFinancials_CancelledContextFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"Symbol": "IBM"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fin, err := client.GetFinancials(ctx, "IBM")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, fin)
}

package stock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
	testcommon "github.com/bobmcallan/fihub/tests/common"
)

// 2024-06-15 10:30 UTC: today is 2024-06-15, yesterday 2024-06-14
var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestService(client *testcommon.MockMarketDataClient, clock *testcommon.FakeClock) *Service {
	return NewService(client, common.NewDefaultConfig().Cache, common.NewSilentLogger(), WithClock(clock.Now))
}

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func TestGetStockData_SortedUniqueRecords(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		assert.Equal(t, "AAPL", symbol)
		return testcommon.DailySeries(symbol, day("2024-06-01"), 10, 11, 12, 13, 14), nil
	}
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	recs, err := svc.GetStockData(context.Background(), " aapl ", "", "")
	require.NoError(t, err)
	require.Len(t, recs, 5)

	seen := map[string]bool{}
	prev := ""
	for _, r := range recs {
		d := r["date"].(string)
		assert.False(t, seen[d], "duplicate date %s", d)
		seen[d] = true
		assert.Greater(t, d, prev)
		prev = d
	}
	assert.Equal(t, "2024-06-01", recs[0]["date"])
	assert.Equal(t, 10.0, recs[0]["close"])
	assert.Equal(t, int64(1000), recs[0]["volume"])
}

func TestGetStockData_DefaultWindowBoundaries(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		// 2023-06-14 .. 2024-06-15: the first day falls before the window,
		// the last day is today
		points := []models.Point{
			{Date: day("2023-06-14"), Fields: map[string]float64{"close": 1}},
			{Date: day("2023-06-15"), Fields: map[string]float64{"close": 2}},
			{Date: day("2024-06-14"), Fields: map[string]float64{"close": 3}},
			{Date: day("2024-06-15"), Fields: map[string]float64{"close": 4}},
		}
		return models.NewTimeSeries(symbol, models.DateLayout, []string{"close"}, points), nil
	}
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	recs, err := svc.GetStockData(context.Background(), "AAPL", "", "")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2023-06-15", recs[0]["date"], "start is today minus 366 days")
	assert.Equal(t, "2024-06-14", recs[1]["date"], "yesterday is included, today excluded")
}

func TestGetStockData_CacheIdempotence(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		return testcommon.DailySeries(symbol, day("2024-06-01"), 1, 2, 3), nil
	}
	clock := testcommon.NewFakeClock(testNow)
	svc := newTestService(client, clock)

	_, err := svc.GetStockData(context.Background(), "AAPL", "", "")
	require.NoError(t, err)
	_, err = svc.GetStockData(context.Background(), "AAPL", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, client.Calls("GetDailySeries"), "second call within TTL is served from cache")

	clock.Advance(301 * time.Second)
	_, err = svc.GetStockData(context.Background(), "AAPL", "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Calls("GetDailySeries"), "call after TTL refetches")
}

func TestGetStockData_ConcurrentCallsShareFetch(t *testing.T) {
	release := make(chan struct{})
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		<-release
		return testcommon.DailySeries(symbol, day("2024-06-01"), 1, 2), nil
	}
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetStockData(context.Background(), "AAPL", "2024-06-01", "2024-06-10")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, client.Calls("GetDailySeries"))
}

func TestGetStockData_Errors(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		if symbol == "NONE" {
			return nil, common.ErrNotFound
		}
		return testcommon.DailySeries(symbol, day("2020-01-01"), 1, 2), nil
	}
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	_, err := svc.GetStockData(context.Background(), "NONE", "", "")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = svc.GetStockData(context.Background(), "AAPL", "2024-01-01", "2024-02-01")
	assert.True(t, errors.Is(err, common.ErrNotFound), "empty after filtering")

	_, err = svc.GetStockData(context.Background(), "AAPL", "01/02/2024", "")
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))

	_, err = svc.GetStockData(context.Background(), "  ", "", "")
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))
}

func TestGetStockData_ErrorsAreNotCached(t *testing.T) {
	fail := true
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		if fail {
			return nil, common.ErrUpstream
		}
		return testcommon.DailySeries(symbol, day("2024-06-01"), 1), nil
	}
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	_, err := svc.GetStockData(context.Background(), "AAPL", "", "")
	require.Error(t, err)

	fail = false
	_, err = svc.GetStockData(context.Background(), "AAPL", "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Calls("GetDailySeries"))
}

func TestGetIntradayData(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.IntradayFn = func(ctx context.Context, symbol, interval string) (*models.TimeSeries, error) {
		assert.Equal(t, "15min", interval)
		points := []models.Point{{
			Date:   time.Date(2024, 6, 14, 9, 45, 0, 0, time.UTC),
			Fields: map[string]float64{"close": 5, "adjusted_close": 5, "volume": 10},
		}}
		return models.NewTimeSeries(symbol, models.DateTimeLayout, []string{"close", "adjusted_close", "volume"}, points), nil
	}
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	recs, err := svc.GetIntradayData(context.Background(), "IBM", "15min")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2024-06-14 09:45:00", recs[0]["date"])

	_, err = svc.GetIntradayData(context.Background(), "IBM", "15min")
	require.NoError(t, err)
	assert.Equal(t, 1, client.Calls("GetIntradaySeries"))
}

func TestSearchSymbols_Cached(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.SearchFn = func(ctx context.Context, keywords string) ([]models.SymbolMatch, error) {
		return []models.SymbolMatch{{Symbol: "TSCO.LON", Name: "Tesco PLC"}}, nil
	}
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	m, err := svc.SearchSymbols(context.Background(), "tesco")
	require.NoError(t, err)
	require.Len(t, m, 1)
	_, err = svc.SearchSymbols(context.Background(), "TESCO")
	require.NoError(t, err)
	assert.Equal(t, 1, client.Calls("SearchSymbols"))

	_, err = svc.SearchSymbols(context.Background(), "")
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))
}

func TestPurgeExpired(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		return testcommon.DailySeries(symbol, day("2024-06-01"), 1), nil
	}
	clock := testcommon.NewFakeClock(testNow)
	svc := newTestService(client, clock)

	_, err := svc.GetStockData(context.Background(), "AAPL", "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, svc.PurgeExpired())

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 1, svc.PurgeExpired())
	assert.Len(t, svc.CacheStats(), 2)
}

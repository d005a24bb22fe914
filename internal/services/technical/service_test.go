package technical

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
	testcommon "github.com/bobmcallan/fihub/tests/common"
)

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func rsiSeries(ctx context.Context, q models.TechnicalQuery) (*models.TimeSeries, error) {
	points := []models.Point{
		{Date: time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), Fields: map[string]float64{"RSI": 55.1}},
		{Date: time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC), Fields: map[string]float64{"RSI": 57.3}},
		{Date: time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), Fields: map[string]float64{"RSI": 60.2}},
	}
	return models.NewTimeSeries(q.Indicator, models.DateLayout, []string{"RSI"}, points), nil
}

func newTestService(client *testcommon.MockMarketDataClient, clock *testcommon.FakeClock) *Service {
	return NewService(client, common.NewDefaultConfig().Cache, common.NewSilentLogger(), WithClock(clock.Now))
}

func TestGetIndicatorData_AppliesDefaultsAndFilter(t *testing.T) {
	var got models.TechnicalQuery
	client := testcommon.NewMockMarketDataClient()
	client.TechnicalFn = func(ctx context.Context, q models.TechnicalQuery) (*models.TimeSeries, error) {
		got = q
		return rsiSeries(ctx, q)
	}
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	recs, err := svc.GetIndicatorData(context.Background(), models.TechnicalQuery{
		Symbol: "ibm", Indicator: "rsi", StartDate: "2024-06-13",
	})
	require.NoError(t, err)

	assert.Equal(t, "IBM", got.Symbol)
	assert.Equal(t, "RSI", got.Indicator)
	assert.Equal(t, 14, got.TimePeriod)
	assert.Equal(t, "close", got.SeriesType)
	assert.Equal(t, "daily", got.Interval)

	require.Len(t, recs, 2)
	assert.Equal(t, models.Record{"date": "2024-06-13", "RSI": 57.3}, recs[0])
}

func TestGetIndicatorData_EquivalentQueriesShareCache(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.TechnicalFn = rsiSeries
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	_, err := svc.GetIndicatorData(context.Background(), models.TechnicalQuery{Symbol: "IBM", Indicator: "RSI"})
	require.NoError(t, err)
	_, err = svc.GetIndicatorData(context.Background(), models.TechnicalQuery{Symbol: "ibm", Indicator: "rsi", TimePeriod: 14, SeriesType: "close", Interval: "daily"})
	require.NoError(t, err)
	assert.Equal(t, 1, client.Calls("GetTechnicalIndicator"))

	_, err = svc.GetIndicatorData(context.Background(), models.TechnicalQuery{Symbol: "IBM", Indicator: "RSI", TimePeriod: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, client.Calls("GetTechnicalIndicator"))
}

func TestGetIndicatorData_IntradayKeepsTodaysBars(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.TechnicalFn = func(ctx context.Context, q models.TechnicalQuery) (*models.TimeSeries, error) {
		points := []models.Point{
			{Date: time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC), Fields: map[string]float64{"SMA": 101.2}},
		}
		return models.NewTimeSeries(q.Indicator, models.DateTimeLayout, []string{"SMA"}, points), nil
	}
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	recs, err := svc.GetIndicatorData(context.Background(), models.TechnicalQuery{Symbol: "IBM", Indicator: "SMA", Interval: "5min"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2024-06-15 09:30:00", recs[0]["date"])
}

func TestGetIndicatorData_Errors(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.TechnicalFn = rsiSeries
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	_, err := svc.GetIndicatorData(context.Background(), models.TechnicalQuery{Symbol: "IBM", Indicator: "FAKE_INDICATOR"})
	assert.True(t, errors.Is(err, common.ErrUnknownIndicator))
	assert.Contains(t, err.Error(), "FAKE_INDICATOR")

	_, err = svc.GetIndicatorData(context.Background(), models.TechnicalQuery{Symbol: "IBM", Indicator: "RSI", SeriesType: "median"})
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))

	_, err = svc.GetIndicatorData(context.Background(), models.TechnicalQuery{Symbol: "IBM", Indicator: "RSI", StartDate: "2024-01-01", EndDate: "2024-02-01"})
	assert.True(t, errors.Is(err, common.ErrNotFound))

	assert.Equal(t, 1, client.Calls("GetTechnicalIndicator"))
}

func TestAvailableIndicators(t *testing.T) {
	svc := newTestService(testcommon.NewMockMarketDataClient(), testcommon.NewFakeClock(testNow))
	avail := svc.AvailableIndicators()
	assert.Equal(t, "Relative Strength Index", avail["RSI"])
	assert.Contains(t, avail, "MACD")
}

package indicator

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

func cpiSeries(ctx context.Context, name string) (*models.TimeSeries, error) {
	return testcommon.ValueSeries(name, map[string]float64{
		"2009-12-01": 215.9,
		"2020-12-01": 260.5,
		"2021-01-01": 261.6,
		"2021-02-01": 263.0,
	}), nil
}

func newTestService(client *testcommon.MockMarketDataClient, clock *testcommon.FakeClock) *Service {
	return NewService(client, common.NewDefaultConfig().Cache, common.NewSilentLogger(), WithClock(clock.Now))
}

func TestGetIndicatorData_UnknownIndicator(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	_, err := svc.GetIndicatorData(context.Background(), "FAKE_INDICATOR", "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnknownIndicator))
	assert.Contains(t, err.Error(), "FAKE_INDICATOR")
	assert.Equal(t, 0, client.Calls("GetEconomicSeries"))
}

func TestGetIndicatorData_NoBoundsReturnsFullSeries(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.EconomicFn = cpiSeries
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	recs, err := svc.GetIndicatorData(context.Background(), "CPI", "", "")
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, models.Record{"date": "2009-12-01", "value": 215.9}, recs[0])
}

func TestGetIndicatorData_FilterInclusive(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.EconomicFn = cpiSeries
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	recs, err := svc.GetIndicatorData(context.Background(), "CPI", "2021-01-01", "2021-01-31")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2021-01-01", recs[0]["date"])

	recs, err = svc.GetIndicatorData(context.Background(), "CPI", "", "2021-01-01")
	require.NoError(t, err)
	require.Len(t, recs, 2, "lower bound falls back to the 2010 floor")
	assert.Equal(t, "2020-12-01", recs[0]["date"])
}

func TestGetIndicatorData_EmptyAfterFilter(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.EconomicFn = cpiSeries
	svc := newTestService(client, testcommon.NewFakeClock(testNow))

	_, err := svc.GetIndicatorData(context.Background(), "CPI", "2023-01-01", "2023-12-31")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = svc.GetIndicatorData(context.Background(), "CPI", "2023-13-01", "")
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))
}

func TestGetIndicatorData_Cached(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.EconomicFn = cpiSeries
	clock := testcommon.NewFakeClock(testNow)
	svc := newTestService(client, clock)

	for i := 0; i < 3; i++ {
		_, err := svc.GetIndicatorData(context.Background(), "CPI", "", "")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, client.Calls("GetEconomicSeries"))

	clock.Advance(5 * time.Minute)
	_, err := svc.GetIndicatorData(context.Background(), "CPI", "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Calls("GetEconomicSeries"))
}

func TestAvailableIndicators(t *testing.T) {
	svc := newTestService(testcommon.NewMockMarketDataClient(), testcommon.NewFakeClock(testNow))

	avail := svc.AvailableIndicators()
	assert.Len(t, avail.Indicators, 10)
	assert.Contains(t, avail.Indicators, "Real GDP")
	assert.Equal(t, "quarterly", avail.Intervals["Real GDP"])
	assert.Equal(t, "10year", avail.Maturities["Treasury Yield"])
	assert.NotContains(t, avail.Maturities, "CPI")
}

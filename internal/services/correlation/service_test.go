package correlation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
	testcommon "github.com/bobmcallan/fihub/tests/common"
)

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

// monthlyCloses builds a series with two observations per month from
// 2023-07; the mid-month one must lose to the month-end one.
func monthlyCloses(name string, values ...float64) *models.TimeSeries {
	var points []models.Point
	for i, v := range values {
		month := time.Date(2023, time.Month(7+i), 1, 0, 0, 0, 0, time.UTC)
		points = append(points,
			models.Point{Date: month.AddDate(0, 0, 14), Fields: map[string]float64{"close": -999, "value": -999}},
			models.Point{Date: month.AddDate(0, 1, -1), Fields: map[string]float64{"close": v, "value": v}},
		)
	}
	return models.NewTimeSeries(name, models.DateLayout, []string{"close", "value"}, points)
}

func newTestService(client *testcommon.MockMarketDataClient) *Service {
	return NewService(client, common.NewDefaultConfig().Cache, common.NewSilentLogger(),
		WithClock(testcommon.NewFakeClock(testNow).Now))
}

func TestCalculate_StocksAndIndicator(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		switch symbol {
		case "AAPL":
			return monthlyCloses(symbol, 1, 2, 3, 4, 5, 6), nil
		case "MSFT":
			return monthlyCloses(symbol, 2, 4, 6, 8, 10, 12), nil
		}
		return nil, common.ErrNotFound
	}
	client.EconomicFn = func(ctx context.Context, name string) (*models.TimeSeries, error) {
		assert.Equal(t, "CPI", name)
		return monthlyCloses(name, 6, 5, 4, 3, 2, 1), nil
	}
	svc := newTestService(client)

	corr, err := svc.Calculate(context.Background(), []string{"aapl", "MSFT"}, []string{"CPI"}, "", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT", "CPI"}, corr.Labels)
	assert.Equal(t, [][]float64{
		{1, 1, -1},
		{1, 1, -1},
		{-1, -1, 1},
	}, corr.Matrix)
}

func TestCalculate_MatrixIsSymmetricWithUnitDiagonal(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		if symbol == "AAPL" {
			return monthlyCloses(symbol, 3, 1, 4, 1, 5, 9), nil
		}
		return monthlyCloses(symbol, 2, 7, 1, 8, 2, 8), nil
	}
	client.EconomicFn = func(ctx context.Context, name string) (*models.TimeSeries, error) {
		return monthlyCloses(name, 1, 6, 1, 8, 0, 3), nil
	}
	svc := newTestService(client)

	corr, err := svc.Calculate(context.Background(), []string{"AAPL", "IBM"}, []string{"Inflation"}, "", "")
	require.NoError(t, err)

	n := len(corr.Labels)
	require.Len(t, corr.Matrix, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, corr.Matrix[i][i])
		for j := 0; j < n; j++ {
			assert.Equal(t, corr.Matrix[i][j], corr.Matrix[j][i])
			assert.GreaterOrEqual(t, corr.Matrix[i][j], -1.0)
			assert.LessOrEqual(t, corr.Matrix[i][j], 1.0)
			assert.Equal(t, math.Round(corr.Matrix[i][j]*100)/100, corr.Matrix[i][j], "two decimals")
		}
	}
}

func TestCalculate_SkipsUnknownIndicatorAndMissingSymbol(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		if symbol == "NOPE" {
			return nil, common.ErrNotFound
		}
		return monthlyCloses(symbol, 1, 2, 3, 4), nil
	}
	client.EconomicFn = func(ctx context.Context, name string) (*models.TimeSeries, error) {
		return monthlyCloses(name, 4, 3, 2, 1), nil
	}
	svc := newTestService(client)

	corr, err := svc.Calculate(context.Background(), []string{"AAPL", "NOPE"}, []string{"Not An Indicator", "CPI"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "CPI"}, corr.Labels)
	assert.Equal(t, 1, client.Calls("GetEconomicSeries"), "unknown indicators never reach upstream")
}

func TestCalculate_InsufficientData(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		return monthlyCloses(symbol, 1, 2, 3), nil
	}
	svc := newTestService(client)

	_, err := svc.Calculate(context.Background(), []string{"AAPL"}, nil, "", "")
	assert.True(t, errors.Is(err, common.ErrInsufficientData))

	// no overlapping months once filtered
	_, err = svc.Calculate(context.Background(), []string{"AAPL", "MSFT"}, nil, "2024-01-01", "2024-03-01")
	assert.True(t, errors.Is(err, common.ErrInsufficientData))
}

func TestCalculate_Validation(t *testing.T) {
	svc := newTestService(testcommon.NewMockMarketDataClient())

	_, err := svc.Calculate(context.Background(), nil, []string{" "}, "", "")
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))

	_, err = svc.Calculate(context.Background(), []string{"AAPL"}, nil, "2024-13-01", "")
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))
}

func TestCalculate_RejectsLabelSharedByStockAndIndicator(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	svc := newTestService(client)

	_, err := svc.Calculate(context.Background(), []string{"cpi"}, []string{"CPI"}, "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidParameter))
	assert.Contains(t, err.Error(), "CPI")
	assert.Zero(t, client.Calls("GetDailySeries"), "rejected before any upstream call")
	assert.Zero(t, client.Calls("GetEconomicSeries"))
}

func TestCalculate_UpstreamFailurePropagates(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		return nil, common.ErrUpstream
	}
	svc := newTestService(client)

	_, err := svc.Calculate(context.Background(), []string{"AAPL", "MSFT"}, nil, "", "")
	assert.True(t, errors.Is(err, common.ErrUpstream))
}

func TestCalculate_Cached(t *testing.T) {
	client := testcommon.NewMockMarketDataClient()
	client.DailyFn = func(ctx context.Context, symbol string) (*models.TimeSeries, error) {
		return monthlyCloses(symbol, 1, 2, 3, 5), nil
	}
	svc := newTestService(client)
	ctx := context.Background()

	first, err := svc.Calculate(ctx, []string{"AAPL", "MSFT"}, nil, "", "")
	require.NoError(t, err)
	second, err := svc.Calculate(ctx, []string{"AAPL", "MSFT"}, nil, "", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, client.Calls("GetDailySeries"))
}

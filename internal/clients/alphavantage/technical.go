package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
)

// Technical request defaults
const (
	DefaultTimePeriod = 14
	DefaultSeriesType = "close"
	DefaultInterval   = "daily"
)

var (
	// SeriesTypes are the price fields an indicator can be computed over
	SeriesTypes = []string{"close", "open", "high", "low"}

	// TechnicalIntervals are the intervals the technical endpoints accept
	TechnicalIntervals = []string{"1min", "5min", "15min", "30min", "60min", "daily", "weekly", "monthly"}
)

// technicalIndicator describes which common parameters a function takes
// and any fixed extras it needs.
type technicalIndicator struct {
	description string
	timePeriod  bool
	seriesType  bool
	extra       map[string]string
}

var technicalIndicators = map[string]technicalIndicator{
	"SMA":          {description: "Simple Moving Average", timePeriod: true, seriesType: true},
	"EMA":          {description: "Exponential Moving Average", timePeriod: true, seriesType: true},
	"WMA":          {description: "Weighted Moving Average", timePeriod: true, seriesType: true},
	"DEMA":         {description: "Double Exponential Moving Average", timePeriod: true, seriesType: true},
	"TEMA":         {description: "Triple Exponential Moving Average", timePeriod: true, seriesType: true},
	"TRIMA":        {description: "Triangular Moving Average", timePeriod: true, seriesType: true},
	"KAMA":         {description: "Kaufman Adaptive Moving Average", timePeriod: true, seriesType: true},
	"MAMA":         {description: "MESA Adaptive Moving Average", seriesType: true, extra: map[string]string{"fastlimit": "0.01", "slowlimit": "0.01"}},
	"VWAP":         {description: "Volume Weighted Average Price"},
	"T3":           {description: "Triple Exponential Moving Average 3", timePeriod: true, seriesType: true},
	"MACD":         {description: "Moving Average Convergence Divergence", seriesType: true, extra: map[string]string{"fastperiod": "12", "slowperiod": "26", "signalperiod": "9"}},
	"MACDEXT":      {description: "MACD with Controllable MA Type", seriesType: true, extra: map[string]string{"fastperiod": "12", "slowperiod": "26", "signalperiod": "9"}},
	"STOCH":        {description: "Stochastic Oscillator", extra: map[string]string{"fastkperiod": "5", "slowkperiod": "3", "slowdperiod": "3"}},
	"STOCHF":       {description: "Stochastic Fast", extra: map[string]string{"fastkperiod": "5", "fastdperiod": "3"}},
	"RSI":          {description: "Relative Strength Index", timePeriod: true, seriesType: true},
	"STOCHRSI":     {description: "Stochastic Relative Strength Index", timePeriod: true, seriesType: true, extra: map[string]string{"fastkperiod": "5", "fastdperiod": "3"}},
	"WILLR":        {description: "Williams' %R", timePeriod: true},
	"ADX":          {description: "Average Directional Movement Index", timePeriod: true},
	"ADXR":         {description: "Average Directional Movement Index Rating", timePeriod: true},
	"APO":          {description: "Absolute Price Oscillator", seriesType: true, extra: map[string]string{"fastperiod": "12", "slowperiod": "26"}},
	"PPO":          {description: "Percentage Price Oscillator", seriesType: true, extra: map[string]string{"fastperiod": "12", "slowperiod": "26"}},
	"MOM":          {description: "Momentum", timePeriod: true, seriesType: true},
	"BOP":          {description: "Balance Of Power"},
	"CCI":          {description: "Commodity Channel Index", timePeriod: true},
	"CMO":          {description: "Chande Momentum Oscillator", timePeriod: true, seriesType: true},
	"ROC":          {description: "Rate of Change", timePeriod: true, seriesType: true},
	"ROCR":         {description: "Rate of Change Ratio", timePeriod: true, seriesType: true},
	"AROON":        {description: "Aroon", timePeriod: true},
	"AROONOSC":     {description: "Aroon Oscillator", timePeriod: true},
	"MFI":          {description: "Money Flow Index", timePeriod: true},
	"TRIX":         {description: "1-day Rate-Of-Change of a Triple Smooth EMA", timePeriod: true, seriesType: true},
	"ULTOSC":       {description: "Ultimate Oscillator", extra: map[string]string{"timeperiod1": "7", "timeperiod2": "14", "timeperiod3": "28"}},
	"DX":           {description: "Directional Movement Index", timePeriod: true},
	"MINUS_DI":     {description: "Minus Directional Indicator", timePeriod: true},
	"PLUS_DI":      {description: "Plus Directional Indicator", timePeriod: true},
	"MINUS_DM":     {description: "Minus Directional Movement", timePeriod: true},
	"PLUS_DM":      {description: "Plus Directional Movement", timePeriod: true},
	"BBANDS":       {description: "Bollinger Bands", timePeriod: true, seriesType: true, extra: map[string]string{"nbdevup": "2", "nbdevdn": "2", "matype": "0"}},
	"MIDPOINT":     {description: "MidPoint over period", timePeriod: true, seriesType: true},
	"MIDPRICE":     {description: "Midpoint Price over period", timePeriod: true},
	"SAR":          {description: "Parabolic SAR", extra: map[string]string{"acceleration": "0.01", "maximum": "0.20"}},
	"TRANGE":       {description: "True Range"},
	"ATR":          {description: "Average True Range", timePeriod: true},
	"NATR":         {description: "Normalized Average True Range", timePeriod: true},
	"AD":           {description: "Chaikin A/D Line"},
	"ADOSC":        {description: "Chaikin A/D Oscillator", extra: map[string]string{"fastperiod": "3", "slowperiod": "10"}},
	"OBV":          {description: "On Balance Volume"},
	"HT_TRENDLINE": {description: "Hilbert Transform - Instantaneous Trendline", seriesType: true},
	"HT_SINE":      {description: "Hilbert Transform - SineWave", seriesType: true},
	"HT_TRENDMODE": {description: "Hilbert Transform - Trend vs Cycle Mode", seriesType: true},
	"HT_DCPERIOD":  {description: "Hilbert Transform - Dominant Cycle Period", seriesType: true},
	"HT_DCPHASE":   {description: "Hilbert Transform - Dominant Cycle Phase", seriesType: true},
	"HT_PHASOR":    {description: "Hilbert Transform - Phasor Components", seriesType: true},
}

// TechnicalIndicators returns indicator name to description
func TechnicalIndicators() map[string]string {
	out := make(map[string]string, len(technicalIndicators))
	for name, ind := range technicalIndicators {
		out[name] = ind.description
	}
	return out
}

// NormalizeTechnicalQuery upper-cases the indicator, fills defaults and
// validates every field. Errors wrap common.ErrUnknownIndicator or
// common.ErrInvalidParameter.
func NormalizeTechnicalQuery(q models.TechnicalQuery) (models.TechnicalQuery, error) {
	q.Indicator = strings.ToUpper(strings.TrimSpace(q.Indicator))
	if _, ok := technicalIndicators[q.Indicator]; !ok {
		return q, fmt.Errorf("%w: %s", common.ErrUnknownIndicator, q.Indicator)
	}
	if q.Symbol == "" {
		return q, fmt.Errorf("%w: symbol is required", common.ErrInvalidParameter)
	}
	if q.TimePeriod == 0 {
		q.TimePeriod = DefaultTimePeriod
	}
	if q.TimePeriod < 0 {
		return q, fmt.Errorf("%w: time_period must be positive", common.ErrInvalidParameter)
	}
	if q.SeriesType == "" {
		q.SeriesType = DefaultSeriesType
	}
	q.SeriesType = strings.ToLower(q.SeriesType)
	if !slices.Contains(SeriesTypes, q.SeriesType) {
		return q, fmt.Errorf("%w: series_type %q must be one of %s", common.ErrInvalidParameter, q.SeriesType, strings.Join(SeriesTypes, ", "))
	}
	if q.Interval == "" {
		q.Interval = DefaultInterval
	}
	if !slices.Contains(TechnicalIntervals, q.Interval) {
		return q, fmt.Errorf("%w: interval %q must be one of %s", common.ErrInvalidParameter, q.Interval, strings.Join(TechnicalIntervals, ", "))
	}
	return q, nil
}

// technicalParams builds the upstream query with indicator-specific defaults
func technicalParams(q models.TechnicalQuery) url.Values {
	ind := technicalIndicators[q.Indicator]

	params := url.Values{}
	params.Set("function", q.Indicator)
	params.Set("symbol", q.Symbol)
	params.Set("interval", q.Interval)
	if ind.timePeriod {
		params.Set("time_period", strconv.Itoa(q.TimePeriod))
	}
	if ind.seriesType {
		params.Set("series_type", q.SeriesType)
	}
	for k, v := range ind.extra {
		params.Set(k, v)
	}
	return params
}

// GetTechnicalIndicator retrieves a technical indicator series. Columns
// are the value labels the indicator reports (e.g. MACD, MACD_Signal).
func (c *Client) GetTechnicalIndicator(ctx context.Context, query models.TechnicalQuery) (*models.TimeSeries, error) {
	q, err := NormalizeTechnicalQuery(query)
	if err != nil {
		return nil, err
	}

	var resp map[string]json.RawMessage
	if err := c.get(ctx, technicalParams(q), &resp); err != nil {
		return nil, err
	}

	raw, ok := resp["Technical Analysis: "+q.Indicator]
	if !ok {
		return nil, fmt.Errorf("%w: no %s data found for symbol: %s", common.ErrNotFound, q.Indicator, q.Symbol)
	}

	var rows map[string]map[string]flexFloat64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s series: %v", common.ErrUpstream, q.Indicator, err)
	}

	columnSet := map[string]struct{}{}
	points := make([]models.Point, 0, len(rows))
	for ts, values := range rows {
		t, ok := parseTimestamp(ts)
		if !ok {
			continue
		}
		fields := make(map[string]float64, len(values))
		for label, v := range values {
			if !v.valid {
				continue
			}
			fields[label] = v.value
			columnSet[label] = struct{}{}
		}
		if len(fields) == 0 {
			continue
		}
		points = append(points, models.Point{Date: t, Fields: fields})
	}

	columns := make([]string, 0, len(columnSet))
	for col := range columnSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	layout := models.DateLayout
	if strings.HasSuffix(q.Interval, "min") {
		layout = models.DateTimeLayout
	}

	return models.NewTimeSeries(q.Indicator, layout, columns, points), nil
}

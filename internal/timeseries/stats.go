package timeseries

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/models"
)

// Column is a labelled set of dated observations.
type Column struct {
	Label  string
	Values map[time.Time]float64
}

// monthEnd returns the last calendar day of t's month.
func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// ResampleMonthlyLast reduces field to one observation per calendar month,
// keyed by month end, holding the last present value in that month.
func ResampleMonthlyLast(series *models.TimeSeries, field, label string) Column {
	col := Column{Label: label, Values: make(map[time.Time]float64)}
	if series == nil {
		return col
	}
	// Points are ascending, so later values overwrite earlier ones
	for _, p := range series.Points {
		v, ok := p.Value(field)
		if !ok || math.IsNaN(v) {
			continue
		}
		col.Values[monthEnd(p.Date)] = v
	}
	return col
}

// InnerJoin returns the dates present in every column (ascending) and
// the aligned rows of values.
func InnerJoin(cols []Column) ([]time.Time, [][]float64) {
	if len(cols) == 0 {
		return nil, nil
	}

	var dates []time.Time
	for d := range cols[0].Values {
		shared := true
		for _, c := range cols[1:] {
			if _, ok := c.Values[d]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([][]float64, len(dates))
	for i, d := range dates {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Values[d]
		}
		rows[i] = row
	}
	return dates, rows
}

// Pearson returns the correlation coefficient of x and y.
// It is NaN when the lengths differ, fewer than two pairs exist,
// or either side has zero variance.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return math.NaN()
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varX*varY)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CorrelationMatrix joins the columns on shared dates and returns the
// pairwise Pearson matrix rounded to two decimals. Undefined coefficients
// (a constant column) are reported as 0; the diagonal is always 1.
func CorrelationMatrix(cols []Column) (*models.Correlation, error) {
	if len(cols) < 2 {
		return nil, fmt.Errorf("%w: need at least two series, got %d", common.ErrInsufficientData, len(cols))
	}

	_, rows := InnerJoin(cols)
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: no overlapping data available for correlation analysis", common.ErrInsufficientData)
	}

	series := make([][]float64, len(cols))
	for j := range cols {
		series[j] = make([]float64, len(rows))
		for i, row := range rows {
			series[j][i] = row[j]
		}
	}

	labels := make([]string, len(cols))
	matrix := make([][]float64, len(cols))
	for i := range cols {
		labels[i] = cols[i].Label
		matrix[i] = make([]float64, len(cols))
	}
	for i := range cols {
		matrix[i][i] = 1
		for j := i + 1; j < len(cols); j++ {
			r := Pearson(series[i], series[j])
			if math.IsNaN(r) {
				r = 0
			}
			r = Round2(r)
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}

	return &models.Correlation{Labels: labels, Matrix: matrix}, nil
}

// Package stats computes descriptive statistics over plot-ready measurement
// points, overall and grouped by x value or by animal.
package stats

import (
	"math"
	"slices"

	"github.com/aclements/go-moremath/stats"

	"phenoqc/pkg/domain"
)

// Column selects the point field used as a grouping key or x value.
type Column int

// Supported columns.
const (
	ColumnX Column = iota
	ColumnDate
	ColumnAnimal
)

func (c Column) value(p domain.Point) float64 {
	switch c {
	case ColumnDate:
		return p.Date
	case ColumnAnimal:
		return float64(p.AnimalID)
	default:
		return p.X
	}
}

// Quartile holds the first and third quartiles of a sample.
type Quartile struct {
	Q1 float64 `json:"q1"`
	Q3 float64 `json:"q3"`
}

// Result is the descriptive summary of a sample. Quartile is nil when the
// sample has fewer than two values.
type Result struct {
	Count             int       `json:"c"`
	Sum               float64   `json:"sum"`
	Min               float64   `json:"min"`
	Max               float64   `json:"max"`
	Mean              float64   `json:"mean"`
	Median            float64   `json:"median"`
	StandardDeviation float64   `json:"sd"`
	StandardError     float64   `json:"se"`
	Quartile          *Quartile `json:"quartile,omitempty"`
}

// ArrayStatistics summarises values. It returns nil for an empty input and
// never reorders values.
func ArrayStatistics(values []float64) *Result {
	if len(values) == 0 {
		return nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return summarise(sorted)
}

// ColumnStatistics summarises the y values of points.
func ColumnStatistics(points []domain.Point) *Result {
	if len(points) == 0 {
		return nil
	}
	ys := make([]float64, len(points))
	for i, p := range points {
		ys[i] = p.Y
	}
	slices.Sort(ys)
	return summarise(ys)
}

// summarise expects a non-empty ascending sample.
func summarise(sorted []float64) *Result {
	sample := stats.Sample{Xs: sorted, Sorted: true}
	n := len(sorted)
	lo, hi := sample.Bounds()
	sum := sample.Sum()
	// Variance of a single value is zero, so singletons report sd = se = 0.
	sd := sample.StdDev()
	r := &Result{
		Count:             n,
		Sum:               sum,
		Min:               lo,
		Max:               hi,
		Mean:              sum / float64(n),
		Median:            median(sorted),
		StandardDeviation: sd,
		StandardError:     sd / math.Sqrt(float64(n)),
	}
	if q1, ok := QuartileValue(1, sorted); ok {
		q3, _ := QuartileValue(3, sorted)
		r.Quartile = &Quartile{Q1: q1, Q3: q3}
	}
	return r
}

func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid] + sorted[mid-1]) * 0.5
}

// QuartileValue returns quartile q (1, 2 or 3) of an ascending sample using
// k = q*0.25*(n-1)+1 and linear interpolation between the neighbouring
// values. Samples of fewer than two values have no quartiles and report
// false.
func QuartileValue(q int, sorted []float64) (float64, bool) {
	if len(sorted) < 2 {
		return 0, false
	}
	k := float64(q)*0.25*float64(len(sorted)-1) + 1
	truncated := math.Floor(k)
	fractional := k - truncated
	i := int(truncated)
	low := sorted[i-1]
	if i >= len(sorted) {
		return low, true
	}
	high := sorted[i]
	return low + fractional*(high-low), true
}

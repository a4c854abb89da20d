// Package scale maps measurement domains onto screen ranges.
package scale

import (
	"time"

	"github.com/aclements/go-moremath/scale"

	"phenoqc/pkg/domain"
)

// DegenerateExpansion is how far a zero-width numeric domain is widened on
// each side. Temporal domains are widened by the same number of days.
const DegenerateExpansion = 2

const dayMillis = float64(24 * time.Hour / time.Millisecond)

// Scale is a linear mapping from a domain onto a screen range. Temporal
// scales operate on Unix milliseconds.
type Scale struct {
	domain   scale.Linear
	low      float64
	high     float64
	temporal bool
}

// Build returns a scale mapping [domainLow, domainHigh] onto
// [rangeLow, rangeHigh]. A zero-width domain is first expanded so the
// mapping is never degenerate.
func Build(domainLow, domainHigh, rangeLow, rangeHigh float64, temporal bool) Scale {
	if domainLow == domainHigh {
		pad := float64(DegenerateExpansion)
		if temporal {
			pad *= dayMillis
		}
		domainLow -= pad
		domainHigh += pad
	}
	return Scale{
		domain:   scale.Linear{Min: domainLow, Max: domainHigh},
		low:      rangeLow,
		high:     rangeHigh,
		temporal: temporal,
	}
}

// XScale builds the horizontal scale for an axis of the given type.
func XScale(axis domain.AxisType, min, max, width, padding float64) Scale {
	return Build(min, max, padding, width-padding, axis.Temporal())
}

// YScale builds the vertical scale. The domain maximum maps to the top
// padding because screen coordinates grow downwards.
func YScale(min, max, height, padding float64) Scale {
	return Build(min, max, height-padding, padding, false)
}

// Map converts a domain value into a range value.
func (s Scale) Map(v float64) float64 {
	return s.low + s.domain.Map(v)*(s.high-s.low)
}

// Invert converts a range value back into the domain.
func (s Scale) Invert(r float64) float64 {
	if s.high == s.low {
		return s.domain.Min
	}
	return s.domain.Unmap((r - s.low) / (s.high - s.low))
}

// Domain returns the effective domain after any degenerate expansion.
func (s Scale) Domain() (low, high float64) { return s.domain.Min, s.domain.Max }

// Range returns the screen range.
func (s Scale) Range() (low, high float64) { return s.low, s.high }

// Temporal reports whether the domain holds Unix milliseconds.
func (s Scale) Temporal() bool { return s.temporal }

// Ticks returns at most max major tick positions inside the domain. Temporal
// ticks fall on whole days or multiples of them.
func (s Scale) Ticks(max int) []float64 {
	lin := s.domain
	opts := scale.TickOptions{Max: max}
	if s.temporal {
		lin.Min /= dayMillis
		lin.Max /= dayMillis
		opts.MinLevel, opts.MaxLevel = 0, 1000
	}
	major, _ := lin.Ticks(opts)
	if s.temporal {
		for i := range major {
			major[i] *= dayMillis
		}
	}
	return major
}

// Project scales every point. Dates are used as x values when useDate is
// set.
func Project(points []domain.Point, x, y Scale, useDate bool) []domain.ScaledPoint {
	out := make([]domain.ScaledPoint, len(points))
	for i, p := range points {
		xv := p.X
		if useDate {
			xv = p.Date
		}
		out[i] = domain.ScaledPoint{Point: p, SX: x.Map(xv), SY: y.Map(p.Y)}
	}
	return out
}

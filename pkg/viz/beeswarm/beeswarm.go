// Package beeswarm spreads points that share a vertical axis horizontally so
// that their markers do not overlap.
package beeswarm

import (
	"cmp"
	"math"
	"slices"
)

// Leaning restricts the side of the axis points may be moved to.
type Leaning int

// Leaning constraints.
const (
	Unconstrained Leaning = iota
	LeanLeft
	LeanRight
)

func (l Leaning) String() string {
	switch l {
	case LeanLeft:
		return "left"
	case LeanRight:
		return "right"
	default:
		return "unconstrained"
	}
}

// Point is a marker awaiting placement. Among points with equal SY the
// heavier one is placed first.
type Point struct {
	ID     int64
	SY     float64
	Weight float64
}

// Placed is a positioned marker. Clamped is set when the preferred position
// fell outside the bound; clamped markers may overlap others.
type Placed struct {
	ID      int64   `json:"m"`
	SY      float64 `json:"sy"`
	SX      float64 `json:"sx"`
	Radius  float64 `json:"r"`
	Clamped bool    `json:"clamped,omitempty"`
}

// tolerance absorbs rounding in tangent positions.
const tolerance = 1e-9

type candidate struct {
	x      float64
	origin int
}

// Layout positions points around axisX. Markers never move further than
// bound from the axis. The result is ordered by ascending SY and the input
// is left untouched.
func Layout(points []Point, axisX, radius, bound float64, leaning Leaning) []Placed {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b Point) int {
		if c := cmp.Compare(a.SY, b.SY); c != 0 {
			return c
		}
		return cmp.Compare(b.Weight, a.Weight)
	})

	placed := make([]Placed, 0, len(sorted))
	lb, ub := axisX-bound, axisX+bound
	for i, p := range sorted {
		x := choose(p.SY, i, placed, axisX, radius, leaning)
		clamped := false
		if x > ub {
			x, clamped = ub, true
		}
		if x < lb {
			x, clamped = lb, true
		}
		placed = append(placed, Placed{ID: p.ID, SY: p.SY, SX: x, Radius: radius, Clamped: clamped})
	}
	return placed
}

func choose(y float64, index int, placed []Placed, axisX, radius float64, leaning Leaning) float64 {
	diameter := 2 * radius
	var near []Placed
	candidates := []candidate{{x: axisX, origin: index}}
	for i, c := range placed {
		dy := math.Abs(y - c.SY)
		if dy >= diameter {
			continue
		}
		near = append(near, c)
		dx := math.Sqrt(diameter*diameter - dy*dy)
		candidates = append(candidates,
			candidate{x: c.SX - dx, origin: i},
			candidate{x: c.SX + dx, origin: i})
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(a.x, b.x); c != 0 {
			return c
		}
		return cmp.Compare(a.origin, b.origin)
	})
	candidates = slices.CompactFunc(candidates, func(a, b candidate) bool { return a.x == b.x })

	best, found := axisX, false
	bestDistance := math.Inf(1)
	for _, c := range candidates {
		if (leaning == LeanLeft && c.x > axisX) || (leaning == LeanRight && c.x < axisX) {
			continue
		}
		if !free(c.x, y, near, diameter) {
			continue
		}
		if d := math.Abs(c.x - axisX); d < bestDistance {
			best, bestDistance, found = c.x, d, true
		}
	}
	if !found {
		return axisX
	}
	return best
}

// free reports whether a marker at (x, y) overlaps none of the placed ones.
func free(x, y float64, placed []Placed, diameter float64) bool {
	limit := diameter * diameter * (1 - tolerance)
	for _, c := range placed {
		dx, dy := x-c.SX, y-c.SY
		if dx*dx+dy*dy < limit {
			return false
		}
	}
	return true
}

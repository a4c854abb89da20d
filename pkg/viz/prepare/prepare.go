// Package prepare turns raw measurements into plot-ready points and the
// derived tables that accompany them.
package prepare

import (
	"math"

	"phenoqc/pkg/domain"
)

// Prepare converts measurements with the plot type's converters. The x
// value is the converted increment, or the experiment date when a
// measurement has no increment. Measurements whose x or y value is missing,
// unparseable or not finite are dropped.
func Prepare(ms []domain.Measurement, pt domain.PlotType) []domain.Point {
	out := make([]domain.Point, 0, len(ms))
	for _, m := range ms {
		date := float64(m.Timestamp.UnixMilli())
		x := date
		if m.Increment != nil {
			v, ok := pt.XConverter.Convert(*m.Increment)
			if !ok {
				continue
			}
			x = v
		}
		y, ok := pt.YConverter.Convert(m.Value)
		if !ok || math.IsInf(x, 0) || math.IsNaN(x) {
			continue
		}
		out = append(out, domain.Point{
			MeasurementID: m.MeasurementID,
			AnimalID:      m.AnimalID,
			Genotype:      m.Genotype,
			MetadataGroup: m.MetadataGroup,
			Sex:           m.Sex,
			Zygosity:      m.Zygosity,
			X:             x,
			Y:             y,
			Date:          date,
			TrackerID:     m.TrackerID,
			LastModified:  m.LastModified,
		})
	}
	return out
}

// GenotypeSplit separates baseline from mutant measurements.
type GenotypeSplit struct {
	Wildtype []domain.Measurement
	Mutant   []domain.Measurement
}

// SplitGenotype separates measurements by genotype. When the reviewed
// context is itself wildtype the baseline measurements are also reported as
// the mutant set, so consumers can treat both contexts alike.
func SplitGenotype(ms []domain.Measurement, wildtypeContext bool) GenotypeSplit {
	var s GenotypeSplit
	for _, m := range ms {
		if m.IsWildtype() {
			s.Wildtype = append(s.Wildtype, m)
		} else {
			s.Mutant = append(s.Mutant, m)
		}
	}
	if wildtypeContext {
		s.Mutant = s.Wildtype
	}
	return s
}

// ZygositySplit holds measurements per zygosity. Baseline measurements
// appear in every set.
type ZygositySplit struct {
	Het []domain.Measurement
	Hom []domain.Measurement
	Hem []domain.Measurement
}

// For returns the set for z.
func (s ZygositySplit) For(z domain.Zygosity) []domain.Measurement {
	switch z {
	case domain.Homozygous:
		return s.Hom
	case domain.Hemizygous:
		return s.Hem
	default:
		return s.Het
	}
}

// SplitZygosity distributes mutants by zygosity and copies wildtype
// measurements into all three sets. Mutants with an unknown zygosity are
// dropped.
func SplitZygosity(ms []domain.Measurement) ZygositySplit {
	var s ZygositySplit
	for _, m := range ms {
		if m.IsWildtype() {
			s.Het = append(s.Het, m)
			s.Hom = append(s.Hom, m)
			s.Hem = append(s.Hem, m)
			continue
		}
		switch m.Zygosity {
		case domain.Heterozygous:
			s.Het = append(s.Het, m)
		case domain.Homozygous:
			s.Hom = append(s.Hom, m)
		case domain.Hemizygous:
			s.Hem = append(s.Hem, m)
		}
	}
	return s
}

// Located is the plotted position of a measurement. Value carries the raw
// category for nominal parameters.
type Located struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value string  `json:"v,omitempty"`
}

// LookupTable indexes plotted points by measurement id.
func LookupTable(points []domain.Point) map[int64]Located {
	table := make(map[int64]Located, len(points))
	for _, p := range points {
		table[p.MeasurementID] = Located{X: p.X, Y: p.Y}
	}
	return table
}

// NominalLookupTable indexes categorical measurements by id, positioned at
// their experiment date.
func NominalLookupTable(ms []domain.Measurement) map[int64]Located {
	table := make(map[int64]Located, len(ms))
	for _, m := range ms {
		table[m.MeasurementID] = Located{X: float64(m.Timestamp.UnixMilli()), Value: m.Value}
	}
	return table
}

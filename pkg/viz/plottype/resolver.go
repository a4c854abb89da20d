// Package plottype resolves how a procedure parameter should be visualised
// from its catalogue metadata.
package plottype

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"phenoqc/pkg/domain"
)

// BodyWeightParameter is the derived body weight parameter, always plotted
// against age in weeks.
const BodyWeightParameter = "IMPC_BWT_001_001"

// Labels and units recognised by the resolver.
const (
	ExperimentDateLabel = "Experiment date"
	AgeInWeeksLabel     = "Age In Weeks"

	unitMinutes   = "minutes"
	unitSeconds   = "seconds"
	unitNumber    = "number"
	unitAgeInDays = "Age In Days"
	unitLightsOut = "Time in hours relative to lights out"
)

// Increment types.
const (
	IncrementFloat    = "float"
	IncrementRepeat   = "repeat"
	IncrementDatetime = "datetime"
)

// Resolve derives the plot type for a parameter. The first matching rule wins
// and malformed metadata resolves to a non-plottable kind instead of failing.
func Resolve(p domain.ParameterMetadata) domain.PlotType {
	pt := resolve(p)
	if strings.TrimSpace(p.StableID) == BodyWeightParameter {
		pt.Kind = domain.KindSeries
		pt.XAxis = domain.AxisFloat
		pt.XConverter = domain.ConvertFloat
		pt.XLabel = AgeInWeeksLabel
		if pt.YLabel == "" {
			pt.YLabel = yLabel(p.Name, strings.TrimSpace(p.Unit))
		}
	}
	return pt
}

func resolve(p domain.ParameterMetadata) domain.PlotType {
	if p.DataType == nil {
		return domain.PlotType{Kind: domain.KindNoPlot}
	}
	datatype := strings.TrimSpace(*p.DataType)
	pt := domain.PlotType{Kind: domain.KindNoPlot, Title: p.ProcedureName}

	if datatype == "TEXT" {
		pt.YConverter = domain.ConvertText
		pt.YValue = domain.ValueText
		switch p.ValueType {
		case domain.ParameterCategorical:
			pt.Kind = domain.KindNominal
			pt.YLabel = Capitalise(strings.TrimSpace(p.Name))
		case domain.ParameterMeta:
			pt.Kind = domain.KindMeta
		}
		return pt
	}

	unit := strings.TrimSpace(p.Unit)
	if datatype == "" || datatype == "NULL" {
		if unit == "" {
			return pt
		}
		datatype = "float"
	}
	pt = numeric(p, datatype, unit)
	if datatype == "IMAGE" {
		pt.Kind = domain.KindImage
	}
	return pt
}

func numeric(p domain.ParameterMetadata, datatype, unit string) domain.PlotType {
	pt := domain.PlotType{
		Kind:       domain.KindNoPlot,
		Title:      p.ProcedureName,
		YConverter: domain.ConverterFor(datatype),
		YValue:     domain.ValueKindFor(datatype),
		YLabel:     yLabel(p.Name, unit),
	}
	if p.Increment == nil {
		pt.Kind = domain.KindPoint
		pt.XAxis = domain.AxisDate
		pt.XConverter = domain.ConvertDate
		pt.XLabel = ExperimentDateLabel
		return pt
	}

	incUnit := strings.TrimSpace(p.Increment.Unit)
	pt.XLabel = incUnit
	switch strings.TrimSpace(p.Increment.Type) {
	case IncrementFloat:
		if incUnit == unitMinutes || incUnit == unitSeconds {
			pt.Kind = domain.KindSeries
			pt.XAxis = domain.AxisInteger
		} else {
			pt.Kind = domain.KindScatter
			pt.XAxis = domain.AxisFloat
		}
		pt.XConverter = domain.ConvertFloat
	case IncrementRepeat:
		pt.Kind = domain.KindSeries
		switch incUnit {
		case unitNumber, unitAgeInDays:
			pt.XConverter = domain.ConvertInteger
			pt.XAxis = domain.AxisInteger
		case unitLightsOut:
			pt.XConverter = domain.ConvertFloat
			pt.XAxis = domain.AxisFloat
		default:
			pt.XConverter = domain.ConvertFloat
			pt.XAxis = domain.AxisFloat
		}
	case IncrementDatetime:
		pt.Kind = domain.KindSeries
		switch incUnit {
		case unitLightsOut:
			pt.XConverter = domain.ConvertFloat
			pt.XAxis = domain.AxisFloat
		default:
			pt.XConverter = domain.ConvertDate
			pt.XAxis = domain.AxisDate
			pt.XLabel = ExperimentDateLabel
		}
	default:
		// Unknown increment types are not plottable.
		pt.XLabel = ""
		return pt
	}
	pt.XLabel = Capitalise(pt.XLabel)
	return pt
}

func yLabel(name, unit string) string {
	label := strings.TrimSpace(name)
	if unit != "" {
		label += " (" + unit + ")"
	}
	return Capitalise(label)
}

// Capitalise upper-cases the first rune of s.
func Capitalise(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Reserved category colour slots that precede parameter options.
const (
	CategoryHighlighted = "Highlighted specimen"
	CategorySelected    = "Selected specimen"
)

// CategoryColourIndex assigns a stable colour slot to every option of a
// categorical parameter. Options are ordered lexically after the two
// reserved highlight slots. The input slice is not modified.
func CategoryColourIndex(options []string) map[string]int {
	index := map[string]int{
		CategoryHighlighted: 0,
		CategorySelected:    1,
	}
	sorted := append([]string(nil), options...)
	sort.Strings(sorted)
	for i, option := range sorted {
		index[option] = i + 2
	}
	return index
}

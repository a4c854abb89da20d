package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PlotKind is the closed set of visualisation strategies. Consumers switch
// over it exhaustively.
type PlotKind int

// Plot kinds in resolution order of the plot type resolver.
const (
	KindNoPlot PlotKind = iota
	KindMeta
	KindNominal
	KindImage
	KindPoint
	KindSeries
	KindScatter
)

var plotKindNames = [...]string{
	KindNoPlot:  "noplot",
	KindMeta:    "meta",
	KindNominal: "nominal",
	KindImage:   "image",
	KindPoint:   "point",
	KindSeries:  "series",
	KindScatter: "scatter",
}

func (k PlotKind) String() string {
	if k < 0 || int(k) >= len(plotKindNames) {
		return fmt.Sprintf("PlotKind(%d)", int(k))
	}
	return plotKindNames[k]
}

// MarshalText encodes the kind using its wire name.
func (k PlotKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(plotKindNames) {
		return nil, fmt.Errorf("unknown plot kind %d", int(k))
	}
	return []byte(plotKindNames[k]), nil
}

// UnmarshalText decodes a wire name into a kind.
func (k *PlotKind) UnmarshalText(b []byte) error {
	for i, name := range plotKindNames {
		if name == string(b) {
			*k = PlotKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown plot kind %q", string(b))
}

// Numeric reports whether the kind plots numeric measured values.
func (k PlotKind) Numeric() bool {
	switch k {
	case KindPoint, KindSeries, KindScatter:
		return true
	case KindNoPlot, KindMeta, KindNominal, KindImage:
		return false
	}
	return false
}

// AxisType describes the value domain of the x-axis.
type AxisType int

// Axis value domains.
const (
	AxisFloat AxisType = iota
	AxisInteger
	AxisDate
)

func (a AxisType) String() string {
	switch a {
	case AxisInteger:
		return "integer"
	case AxisDate:
		return "date"
	default:
		return "float"
	}
}

// MarshalText encodes the axis type by name.
func (a AxisType) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Temporal reports whether values on the axis are instants.
func (a AxisType) Temporal() bool { return a == AxisDate }

// Converter turns a raw measurement string into a plottable value. Dates are
// represented as Unix milliseconds so that every axis value is a float64.
type Converter int

// Supported converters.
const (
	ConvertFloat Converter = iota
	ConvertInteger
	ConvertDate
	ConvertText
)

func (c Converter) String() string {
	switch c {
	case ConvertInteger:
		return "integer"
	case ConvertDate:
		return "date/time"
	case ConvertText:
		return "text"
	default:
		return "float"
	}
}

// MarshalText encodes the converter by name.
func (c Converter) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// ConverterFor maps a data type name onto a converter. Unknown names convert
// as floats.
func ConverterFor(datatype string) Converter {
	switch datatype {
	case "1-n", "INT", "INTEGER", "integer":
		return ConvertInteger
	case "date/time", "DATE/TIME":
		return ConvertDate
	case "TEXT", "text":
		return ConvertText
	default:
		return ConvertFloat
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.0",
	"2006-01-02",
}

// Convert parses raw. The boolean is false when the value is missing,
// unparseable or not finite; such values are excluded from plotting.
func (c Converter) Convert(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN(), false
	}
	switch c {
	case ConvertInteger:
		return parseIntPrefix(raw)
	case ConvertDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return float64(t.UnixMilli()), true
			}
		}
		return math.NaN(), false
	case ConvertText:
		return math.NaN(), false
	default:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return math.NaN(), false
		}
		return v, true
	}
}

// parseIntPrefix accepts an optional sign followed by leading decimal digits,
// ignoring whatever follows ("12.7" is 12).
func parseIntPrefix(raw string) (float64, bool) {
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	start := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == start {
		return math.NaN(), false
	}
	v, err := strconv.ParseInt(raw[:end], 10, 64)
	if err != nil {
		return math.NaN(), false
	}
	return float64(v), true
}

// ValueKind is the type of the measured (y) value.
type ValueKind int

// Measured value kinds.
const (
	ValueFloat ValueKind = iota
	ValueInteger
	ValueDate
	ValueText
)

// ValueKindFor maps a parameter data type onto a measured value kind.
func ValueKindFor(datatype string) ValueKind {
	switch datatype {
	case "INT":
		return ValueInteger
	case "DATETIME":
		return ValueDate
	case "TEXT":
		return ValueText
	default:
		return ValueFloat
	}
}

// ParameterValueType classifies how a parameter's values are captured.
type ParameterValueType int

// Parameter value types relevant to plot resolution.
const (
	ParameterMeta        ParameterValueType = 0
	ParameterSimple      ParameterValueType = 1
	ParameterSeries      ParameterValueType = 2
	ParameterCategorical ParameterValueType = 3
)

// ParameterMetadata describes a procedure parameter as supplied by the
// parameter catalogue.
type ParameterMetadata struct {
	StableID      string             `json:"e" yaml:"stable_id"`
	Name          string             `json:"n" yaml:"name"`
	ProcedureName string             `json:"a" yaml:"procedure_name"`
	DataType      *string            `json:"d" yaml:"data_type"`
	Unit          string             `json:"u" yaml:"unit"`
	ValueType     ParameterValueType `json:"t" yaml:"value_type"`
	Increment     *Increment         `json:"inc,omitempty" yaml:"increment"`
	Options       []string           `json:"o,omitempty" yaml:"options"`
}

// Increment describes the independent variable of a series parameter.
type Increment struct {
	ID      int64  `json:"ii" yaml:"id"`
	Type    string `json:"it" yaml:"type"`
	Unit    string `json:"iu" yaml:"unit"`
	Minimum string `json:"im,omitempty" yaml:"minimum"`
}

// PlotType is the resolved visualisation descriptor for a parameter.
type PlotType struct {
	Kind       PlotKind  `json:"t"`
	XAxis      AxisType  `json:"xt"`
	XConverter Converter `json:"xc"`
	YConverter Converter `json:"yc"`
	YValue     ValueKind `json:"yt"`
	XLabel     string    `json:"xl,omitempty"`
	YLabel     string    `json:"yl,omitempty"`
	Title      string    `json:"l,omitempty"`
}

// Point is a measurement converted for plotting. X holds the converted
// increment value or, for parameters without increments, the experiment date
// in Unix milliseconds.
type Point struct {
	MeasurementID int64     `json:"m"`
	AnimalID      int64     `json:"a"`
	Genotype      int64     `json:"g"`
	MetadataGroup int64     `json:"e"`
	Sex           Sex       `json:"s"`
	Zygosity      Zygosity  `json:"z"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Date          float64   `json:"d"`
	TrackerID     int64     `json:"fi,omitempty"`
	LastModified  time.Time `json:"fd"`
}

// ScaledPoint carries a point with its screen coordinates.
type ScaledPoint struct {
	Point
	SX float64 `json:"sx"`
	SY float64 `json:"sy"`
}

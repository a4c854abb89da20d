// Package controls describes which visual elements and specimen subsets a
// visualisation shows. Controls values are immutable; every change returns a
// new value.
package controls

import (
	"fmt"
	"strings"

	"phenoqc/pkg/domain"
	"phenoqc/pkg/viz/stats"
)

// Option is a single visualisation toggle.
type Option uint32

// Toggles. The bit values are stable and may be persisted.
const (
	Mean       Option = 0x1
	Median     Option = 0x2
	Max        Option = 0x4
	Min        Option = 0x8
	Quartile   Option = 0x10
	Female     Option = 0x20
	Male       Option = 0x40
	Point      Option = 0x80
	Polyline   Option = 0x100
	ErrorBar   Option = 0x200
	Crosshair  Option = 0x400
	Wildtype   Option = 0x800
	Whisker    Option = 0x1000
	WhiskerIQR Option = 0x2000
	Infobar    Option = 0x4000
	Statistics Option = 0x8000
	Swarm      Option = 0x10000
	Hom        Option = 0x20000
	Het        Option = 0x40000
	Hem        Option = 0x80000
	StdErr     Option = 0x100000
	Highlight  Option = 0x200000
	Selected   Option = 0x400000
	MinMax     Option = 0x800000
	Shapes     Option = 0x2000000
)

var names = []struct {
	opt  Option
	name string
}{
	{Mean, "mean"}, {Median, "median"}, {Max, "max"}, {Min, "min"},
	{Quartile, "quartile"}, {Female, "female"}, {Male, "male"},
	{Point, "point"}, {Polyline, "polyline"}, {ErrorBar, "errorbar"},
	{Crosshair, "crosshair"}, {Wildtype, "wildtype"}, {Whisker, "whisker"},
	{WhiskerIQR, "whisker_iqr"}, {Infobar, "infobar"},
	{Statistics, "statistics"}, {Swarm, "swarm"}, {Hom, "hom"},
	{Het, "het"}, {Hem, "hem"}, {StdErr, "std_err"},
	{Highlight, "highlight"}, {Selected, "selected"}, {MinMax, "minmax"},
	{Shapes, "shapes"},
}

func (o Option) String() string {
	for _, n := range names {
		if n.opt == o {
			return n.name
		}
	}
	return fmt.Sprintf("Option(%#x)", uint32(o))
}

// ParseOption returns the toggle with the given name.
func ParseOption(name string) (Option, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range names {
		if n.name == name {
			return n.opt, nil
		}
	}
	return 0, fmt.Errorf("unknown control %q", name)
}

const (
	sexes      = Male | Female
	zygosities = Hom | Het | Hem
)

// Controls is a set of enabled toggles.
type Controls struct {
	bits Option
}

// New returns controls with exactly opts enabled.
func New(opts ...Option) Controls {
	return Controls{}.With(opts...)
}

// Default returns the toggles enabled when nothing is configured.
func Default() Controls {
	return New(Mean, Female, Male, Point, Polyline, Wildtype, Whisker,
		WhiskerIQR, Statistics, Swarm, Hom, Het, Hem)
}

// Parse builds controls from toggle names.
func Parse(list []string) (Controls, error) {
	var c Controls
	for _, name := range list {
		o, err := ParseOption(name)
		if err != nil {
			return Controls{}, err
		}
		c.bits |= o
	}
	return c, nil
}

// Has reports whether every one of opts is enabled.
func (c Controls) Has(opts ...Option) bool {
	for _, o := range opts {
		if c.bits&o != o {
			return false
		}
	}
	return true
}

// With returns a copy with opts enabled.
func (c Controls) With(opts ...Option) Controls {
	for _, o := range opts {
		c.bits |= o
	}
	return c
}

// Without returns a copy with opts disabled.
func (c Controls) Without(opts ...Option) Controls {
	for _, o := range opts {
		c.bits &^= o
	}
	return c
}

// Toggle returns a copy with o flipped.
func (c Controls) Toggle(o Option) Controls {
	c.bits ^= o
	return c
}

// OnlySex shows specimens of one sex. Sexes other than male count as female.
func (c Controls) OnlySex(s domain.Sex) Controls {
	c.bits &^= sexes
	if s == domain.SexMale {
		c.bits |= Male
	} else {
		c.bits |= Female
	}
	return c
}

// BothSexes shows male and female specimens.
func (c Controls) BothSexes() Controls { return c.With(Male, Female) }

// OnlyZygosity shows mutants of a single zygosity.
func (c Controls) OnlyZygosity(z domain.Zygosity) Controls {
	c.bits &^= zygosities
	c.bits |= zygosityOption(z)
	return c
}

// AllZygosities shows mutants of every zygosity.
func (c Controls) AllZygosities() Controls { return c.With(zygosities) }

// Zygosity returns the zygosity filter in effect. all is true when every
// zygosity is shown or none is selected.
func (c Controls) Zygosity() (z domain.Zygosity, all bool) {
	switch {
	case c.bits&zygosities == zygosities:
		return domain.Heterozygous, true
	case c.Has(Hom):
		return domain.Homozygous, false
	case c.Has(Het):
		return domain.Heterozygous, false
	case c.Has(Hem):
		return domain.Hemizygous, false
	}
	return domain.Heterozygous, true
}

func zygosityOption(z domain.Zygosity) Option {
	switch z {
	case domain.Homozygous:
		return Hom
	case domain.Hemizygous:
		return Hem
	default:
		return Het
	}
}

// Options returns the enabled toggles in bit order.
func (c Controls) Options() []Option {
	var out []Option
	for _, n := range names {
		if c.bits&n.opt != 0 {
			out = append(out, n.opt)
		}
	}
	return out
}

// Names returns the names of the enabled toggles in bit order.
func (c Controls) Names() []string {
	opts := c.Options()
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.String()
	}
	return out
}

func (c Controls) String() string { return strings.Join(c.Names(), ",") }

// MarshalText encodes the enabled toggle names.
func (c Controls) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText decodes a comma separated list of toggle names.
func (c *Controls) UnmarshalText(b []byte) error {
	var list []string
	for _, part := range strings.Split(string(b), ",") {
		if strings.TrimSpace(part) != "" {
			list = append(list, part)
		}
	}
	parsed, err := Parse(list)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Resolve picks the controls a visualisation renders with. Instances that
// follow the shared setting, or that have none of their own, use shared.
func Resolve(shared Controls, instance *Controls, useShared bool) Controls {
	if useShared || instance == nil {
		return shared
	}
	return *instance
}

// StatisticsFor selects the statistics subset matching the sex toggles. It
// returns nil when neither sex is shown.
func StatisticsFor(s *stats.Statistics, c Controls) *stats.GroupStatistics {
	if s == nil {
		return nil
	}
	showMale, showFemale := c.Has(Male), c.Has(Female)
	switch {
	case showMale && showFemale:
		return s.GenderCombined
	case showMale:
		return s.Male
	case showFemale:
		return s.Female
	}
	return nil
}

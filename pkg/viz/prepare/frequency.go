package prepare

import (
	"slices"
	"strings"

	"phenoqc/pkg/domain"
)

// Grid rows follow the sex codes with a trailing row for all specimens.
const (
	RowFemale   = int(domain.SexFemale)
	RowMale     = int(domain.SexMale)
	RowIntersex = int(domain.SexIntersex)
	RowNoData   = int(domain.SexNoData)
	RowAll      = 4
)

// Grid columns follow the zygosity codes with a trailing column for all.
const (
	ColHet = int(domain.Heterozygous)
	ColHom = int(domain.Homozygous)
	ColHem = int(domain.Hemizygous)
	ColAll = 3
)

// HighlightedCategory leads the category legend.
const HighlightedCategory = "Highlighted specimen"

// Frequencies counts category values within one cell.
type Frequencies struct {
	Counts      map[string]int     `json:"counts"`
	Total       int                `json:"t"`
	Percentages map[string]float64 `json:"s"`
}

func (f *Frequencies) add(category string) {
	if f.Counts == nil {
		f.Counts = make(map[string]int)
	}
	f.Counts[category]++
	f.Total++
}

func (f *Frequencies) finish() {
	f.Percentages = make(map[string]float64, len(f.Counts))
	for category, n := range f.Counts {
		f.Percentages[category] = float64(n) * 100 / float64(f.Total)
	}
}

// Cell holds baseline and mutant frequencies for one sex and zygosity
// combination.
type Cell struct {
	Wildtype Frequencies `json:"b"`
	Mutant   Frequencies `json:"m"`
}

// Grid is the frequency table of a categorical parameter, indexed by
// [row][column]. Categories lists the observed values sorted, preceded by
// HighlightedCategory.
type Grid struct {
	Cells      [5][4]Cell `json:"grid"`
	Categories []string   `json:"categories"`
}

// Cell returns the cell for the given row and column.
func (g *Grid) Cell(row, col int) Cell { return g.Cells[row][col] }

// FrequencyGrid counts categorical measurements by sex and zygosity.
// Measurements with a sex or zygosity outside the known codes still count
// towards the aggregate row and column.
func FrequencyGrid(ms []domain.Measurement) Grid {
	var g Grid
	seen := make(map[string]struct{})
	for _, m := range ms {
		category := m.Value
		row, col := int(m.Sex), int(m.Zygosity)
		rowOK := row >= 0 && row < RowAll
		colOK := col >= 0 && col < ColAll

		g.bump(RowAll, ColAll, category, m.IsWildtype())
		if rowOK && colOK {
			g.bump(row, col, category, m.IsWildtype())
		}
		if colOK {
			g.bump(RowAll, col, category, m.IsWildtype())
		}
		if rowOK {
			g.bump(row, ColAll, category, m.IsWildtype())
		}
		if _, ok := seen[category]; !ok {
			seen[category] = struct{}{}
			g.Categories = append(g.Categories, category)
		}
	}
	for r := range g.Cells {
		for c := range g.Cells[r] {
			g.Cells[r][c].Wildtype.finish()
			g.Cells[r][c].Mutant.finish()
		}
	}
	slices.SortFunc(g.Categories, strings.Compare)
	g.Categories = append([]string{HighlightedCategory}, g.Categories...)
	return g
}

func (g *Grid) bump(row, col int, category string, wildtype bool) {
	cell := &g.Cells[row][col]
	if wildtype {
		cell.Wildtype.add(category)
	} else {
		cell.Mutant.add(category)
	}
}

// DifferingKeys returns the metadata keys whose values are not shared by
// every group. A key differs when two groups disagree on its value, when it
// is missing from the first group, or when only the first group carries
// it. Fewer than two groups have no differing keys.
func DifferingKeys(groups []domain.MetadataGroup) map[string]bool {
	diff := make(map[string]bool)
	if len(groups) < 2 {
		return diff
	}
	type seen struct {
		value string
		count int
	}
	first := make(map[string]*seen, len(groups[0].Values))
	for k, v := range groups[0].Values {
		first[k] = &seen{value: v, count: 1}
	}
	for _, g := range groups[1:] {
		for k, v := range g.Values {
			if diff[k] {
				continue
			}
			s, ok := first[k]
			switch {
			case !ok:
				diff[k] = true
			case s.value != v:
				diff[k] = true
			default:
				s.count++
			}
		}
	}
	for k, s := range first {
		if !diff[k] && s.count == 1 {
			diff[k] = true
		}
	}
	return diff
}

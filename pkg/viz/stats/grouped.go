package stats

import (
	"cmp"
	"slices"

	"phenoqc/pkg/domain"
)

// Group is a run of points sharing a key. Members are ordered by x.
type Group struct {
	Key        float64        `json:"k"`
	Count      int            `json:"c"`
	Members    []domain.Point `json:"d"`
	Statistics *Result        `json:"s"`
}

// Grouped is an ordered set of groups with a key to position lookup.
type Grouped struct {
	Groups []Group         `json:"groups"`
	Index  map[float64]int `json:"-"`
}

// Lookup returns the group for key.
func (g Grouped) Lookup(key float64) (Group, bool) {
	i, ok := g.Index[key]
	if !ok {
		return Group{}, false
	}
	return g.Groups[i], true
}

// Keys returns the group keys in ascending order.
func (g Grouped) Keys() []float64 {
	keys := make([]float64, len(g.Groups))
	for i, grp := range g.Groups {
		keys[i] = grp.Key
	}
	return keys
}

// GroupedSeriesStatistics groups points by keyColumn and summarises the y
// values of every group. Members of each group are ordered by xColumn.
func GroupedSeriesStatistics(points []domain.Point, keyColumn, xColumn Column) Grouped {
	out := Grouped{Index: make(map[float64]int)}
	if len(points) == 0 {
		return out
	}
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b domain.Point) int {
		return cmp.Compare(keyColumn.value(a), keyColumn.value(b))
	})

	flush := func(run []domain.Point) {
		members := slices.Clone(run)
		slices.SortStableFunc(members, func(a, b domain.Point) int {
			return cmp.Compare(xColumn.value(a), xColumn.value(b))
		})
		key := keyColumn.value(run[0])
		out.Index[key] = len(out.Groups)
		out.Groups = append(out.Groups, Group{
			Key:        key,
			Count:      len(members),
			Members:    members,
			Statistics: ColumnStatistics(members),
		})
	}

	start := 0
	for i := 1; i < len(sorted); i++ {
		if keyColumn.value(sorted[i]) != keyColumn.value(sorted[start]) {
			flush(sorted[start:i])
			start = i
		}
	}
	flush(sorted[start:])
	return out
}

// Range is the extent of a value domain.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Overall holds the x extent and the y summary of a whole dataset.
type Overall struct {
	X Range   `json:"x"`
	Y *Result `json:"y"`
}

// GroupStatistics is the full statistical description of one subset.
type GroupStatistics struct {
	Overall  Overall `json:"overall"`
	ByX      Grouped `json:"c"`
	ByAnimal Grouped `json:"r"`
}

// Describe computes overall, per-x and per-animal statistics for points. It
// returns nil when points is empty.
func Describe(points []domain.Point, keyColumn, xColumn Column) *GroupStatistics {
	if len(points) == 0 {
		return nil
	}
	gs := &GroupStatistics{
		ByX:      GroupedSeriesStatistics(points, xColumn, xColumn),
		ByAnimal: GroupedSeriesStatistics(points, keyColumn, xColumn),
	}
	gs.Overall.Y = ColumnStatistics(points)
	cols := gs.ByX.Groups
	gs.Overall.X = Range{Min: cols[0].Key, Max: cols[len(cols)-1].Key}
	return gs
}

// Statistics separates a dataset by sex. A nil entry means the subset is
// empty.
type Statistics struct {
	GenderCombined *GroupStatistics `json:"genderCombined"`
	Male           *GroupStatistics `json:"male"`
	Female         *GroupStatistics `json:"female"`
}

// ComputeStatistics describes points combined and split by sex. Points with
// a sex other than male are counted in the female subset. The input is not
// reordered.
func ComputeStatistics(points []domain.Point, keyColumn, xColumn Column) *Statistics {
	var male, female []domain.Point
	for _, p := range points {
		if p.Sex == domain.SexMale {
			male = append(male, p)
		} else {
			female = append(female, p)
		}
	}
	return &Statistics{
		GenderCombined: Describe(points, keyColumn, xColumn),
		Male:           Describe(male, keyColumn, xColumn),
		Female:         Describe(female, keyColumn, xColumn),
	}
}

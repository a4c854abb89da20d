// Package viz groups the visualisation engine. It holds no code itself;
// the subpackages are:
//
//	plottype   resolves a parameter to its plot strategy
//	stats      descriptive statistics of plotted subsets
//	prepare    conversion of measurements into plottable points and grids
//	scale      axis domains, ranges and ticks
//	beeswarm   non-overlapping marker placement
//	selection  selected data points and their observers
//	controls   display toggles and their implied filters
//	registry   insertion ordered keyed collection
//
// The subpackages depend on pkg/domain and the numeric libraries only, so a
// renderer can embed them without the services under internal/.
package viz

// Package selection tracks the data points a reviewer has selected or that
// an issue cites, and notifies observers when the selection changes.
package selection

import (
	"maps"
	"slices"

	"phenoqc/pkg/domain"
)

// Entry is a selected data point.
type Entry struct {
	MeasurementID int64   `json:"m"`
	AnimalID      int64   `json:"a"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

// Observer receives the selection count after every change.
type Observer func(count int)

// Manager holds at most one entry per measurement id. It is not safe for
// concurrent use; owners serialise access.
type Manager struct {
	items     map[int64]Entry
	observers map[int]Observer
	nextObs   int
}

// New returns an empty selection.
func New() *Manager {
	return &Manager{items: make(map[int64]Entry), observers: make(map[int]Observer)}
}

// Subscribe registers fn and returns a function that removes it.
func (m *Manager) Subscribe(fn Observer) (unsubscribe func()) {
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	return func() { delete(m.observers, id) }
}

func (m *Manager) notify() {
	count := len(m.items)
	for _, id := range slices.Sorted(maps.Keys(m.observers)) {
		if fn, ok := m.observers[id]; ok {
			fn(count)
		}
	}
}

// Add selects entry under id. Adding an id that is already selected leaves
// the selection unchanged.
func (m *Manager) Add(id int64, entry Entry) {
	if _, ok := m.items[id]; ok {
		return
	}
	m.items[id] = entry
	m.notify()
}

// Remove deselects id if it is selected.
func (m *Manager) Remove(id int64) {
	if _, ok := m.items[id]; !ok {
		return
	}
	delete(m.items, id)
	m.notify()
}

// Contains reports whether id is selected.
func (m *Manager) Contains(id int64) bool {
	_, ok := m.items[id]
	return ok
}

// Get returns the entry selected under id.
func (m *Manager) Get(id int64) (Entry, bool) {
	e, ok := m.items[id]
	return e, ok
}

// Count returns the number of selected entries.
func (m *Manager) Count() int { return len(m.items) }

// IsEmpty reports whether nothing is selected.
func (m *Manager) IsEmpty() bool { return len(m.items) == 0 }

// Reset clears the selection.
func (m *Manager) Reset() {
	clear(m.items)
	m.notify()
}

// ForEach visits every entry in no particular order.
func (m *Manager) ForEach(visit func(Entry)) {
	for _, e := range m.items {
		visit(e)
	}
}

// IDs returns the selected measurement ids in ascending order.
func (m *Manager) IDs() []int64 {
	return slices.Sorted(maps.Keys(m.items))
}

// AnimalIDs returns the distinct animals with at least one selected
// measurement, in ascending order.
func (m *Manager) AnimalIDs() []int64 {
	seen := make(map[int64]struct{}, len(m.items))
	for _, e := range m.items {
		seen[e.AnimalID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Box is a rectangle in screen coordinates. Corners may be given in any
// order; bounds are inclusive.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Contains reports whether (x, y) lies inside the box.
func (b Box) Contains(x, y float64) bool {
	x1, x2 := min(b.X1, b.X2), max(b.X1, b.X2)
	y1, y2 := min(b.Y1, b.Y2), max(b.Y1, b.Y2)
	return x1 <= x && x <= x2 && y1 <= y && y <= y2
}

// SelectInBox selects every point inside box and returns how many were
// newly selected.
func (m *Manager) SelectInBox(points []domain.ScaledPoint, box Box) int {
	added := 0
	for _, p := range points {
		if !box.Contains(p.SX, p.SY) || m.Contains(p.MeasurementID) {
			continue
		}
		m.Add(p.MeasurementID, Entry{MeasurementID: p.MeasurementID, AnimalID: p.AnimalID, X: p.X, Y: p.Y})
		added++
	}
	return added
}

// DeselectInBox removes every point inside box from the selection and
// returns how many were removed.
func (m *Manager) DeselectInBox(points []domain.ScaledPoint, box Box) int {
	removed := 0
	for _, p := range points {
		if box.Contains(p.SX, p.SY) && m.Contains(p.MeasurementID) {
			m.Remove(p.MeasurementID)
			removed++
		}
	}
	return removed
}

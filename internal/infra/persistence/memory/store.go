// Package memory provides an in-process measurement source used by tests,
// fixtures and the command line batch mode.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"phenoqc/pkg/domain"
)

// Record is a measurement together with the context columns it is filed
// under. The genotype is carried by the measurement itself.
type Record struct {
	domain.Measurement
	CentreID     int64  `json:"cid"`
	PipelineID   int64  `json:"lid"`
	ProcedureKey string `json:"peid"`
	ParameterKey string `json:"qeid"`
}

// Matches reports whether the record belongs to dc. Wildtype records match
// every context sharing the centre, pipeline, strain and parameter.
func (r Record) Matches(dc domain.DataContext) bool {
	return r.CentreID == dc.CentreID &&
		r.PipelineID == dc.PipelineID &&
		r.StrainID == dc.StrainID &&
		r.ProcedureKey == dc.ProcedureKey &&
		r.ParameterKey == dc.ParameterKey &&
		(r.Genotype == dc.GenotypeID || r.Genotype == domain.WildtypeGenotype)
}

// Citation links a data point to the issue citing it.
type Citation struct {
	IssueID int64 `json:"issue"`
	domain.CitedDataPoint
}

// Snapshot is the full content of a source. It is the fixture format and
// the unit the SQL sources import.
type Snapshot struct {
	Parameters     []domain.ParameterMetadata `json:"parameters"`
	Records        []Record                   `json:"measurements"`
	MetadataGroups []domain.MetadataGroup     `json:"metadataGroups"`
	Citations      []Citation                 `json:"citations"`
}

// LoadSnapshot decodes a JSON snapshot.
func LoadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Store is a concurrency safe in-memory source.
type Store struct {
	mu         sync.RWMutex
	parameters map[string]domain.ParameterMetadata
	records    []Record
	groups     map[int64]domain.MetadataGroup
	citations  map[int64][]domain.CitedDataPoint
}

// New returns an empty store.
func New() *Store {
	return &Store{
		parameters: make(map[string]domain.ParameterMetadata),
		groups:     make(map[int64]domain.MetadataGroup),
		citations:  make(map[int64][]domain.CitedDataPoint),
	}
}

// NewFromSnapshot returns a store holding snap.
func NewFromSnapshot(snap Snapshot) *Store {
	s := New()
	s.ImportState(snap)
	return s
}

// ImportState replaces the store content with snap.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.parameters)
	clear(s.groups)
	clear(s.citations)
	s.records = slices.Clone(snap.Records)
	for _, p := range snap.Parameters {
		s.parameters[p.StableID] = p
	}
	for _, g := range snap.MetadataGroups {
		s.groups[g.Index] = g
	}
	for _, c := range snap.Citations {
		s.citations[c.IssueID] = append(s.citations[c.IssueID], c.CitedDataPoint)
	}
}

// ExportState returns a copy of the store content in a stable order.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Records: slices.Clone(s.records)}
	for _, p := range s.parameters {
		snap.Parameters = append(snap.Parameters, p)
	}
	slices.SortFunc(snap.Parameters, func(a, b domain.ParameterMetadata) int { return cmp.Compare(a.StableID, b.StableID) })
	for _, g := range s.groups {
		snap.MetadataGroups = append(snap.MetadataGroups, g)
	}
	slices.SortFunc(snap.MetadataGroups, func(a, b domain.MetadataGroup) int { return cmp.Compare(a.Index, b.Index) })
	for issue, points := range s.citations {
		for _, p := range points {
			snap.Citations = append(snap.Citations, Citation{IssueID: issue, CitedDataPoint: p})
		}
	}
	slices.SortFunc(snap.Citations, func(a, b Citation) int {
		return cmp.Or(cmp.Compare(a.IssueID, b.IssueID), cmp.Compare(a.MeasurementID, b.MeasurementID))
	})
	return snap
}

// PutParameter stores or replaces a parameter description.
func (s *Store) PutParameter(p domain.ParameterMetadata) {
	s.mu.Lock()
	s.parameters[p.StableID] = p
	s.mu.Unlock()
}

// AddRecords appends measurements.
func (s *Store) AddRecords(records ...Record) {
	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
}

// PutMetadataGroup stores or replaces a metadata group.
func (s *Store) PutMetadataGroup(g domain.MetadataGroup) {
	s.mu.Lock()
	s.groups[g.Index] = g
	s.mu.Unlock()
}

// Cite records that issueID cites points.
func (s *Store) Cite(issueID int64, points ...domain.CitedDataPoint) {
	s.mu.Lock()
	s.citations[issueID] = append(s.citations[issueID], points...)
	s.mu.Unlock()
}

// Measurements returns the mutant and wildtype measurements of dc, ordered
// by measurement id, with the metadata groups they reference.
func (s *Store) Measurements(ctx context.Context, dc domain.DataContext) (domain.MeasurementSet, error) {
	if err := ctx.Err(); err != nil {
		return domain.MeasurementSet{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var set domain.MeasurementSet
	referenced := make(map[int64]struct{})
	for _, r := range s.records {
		if r.Matches(dc) {
			set.Measurements = append(set.Measurements, r.Measurement)
			referenced[r.MetadataGroup] = struct{}{}
		}
	}
	slices.SortFunc(set.Measurements, func(a, b domain.Measurement) int { return cmp.Compare(a.MeasurementID, b.MeasurementID) })
	for idx := range referenced {
		if g, ok := s.groups[idx]; ok {
			set.MetadataGroups = append(set.MetadataGroups, g)
		}
	}
	slices.SortFunc(set.MetadataGroups, func(a, b domain.MetadataGroup) int { return cmp.Compare(a.Index, b.Index) })
	return set, nil
}

// Parameter returns the description of the parameter with stable id key.
func (s *Store) Parameter(ctx context.Context, key string) (domain.ParameterMetadata, error) {
	if err := ctx.Err(); err != nil {
		return domain.ParameterMetadata{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parameters[key]
	if !ok {
		return domain.ParameterMetadata{}, domain.ErrNotFound{Entity: domain.EntityParameter, ID: key}
	}
	return p, nil
}

// CitedDataPoints returns the data points cited by an issue, ordered by
// measurement id. An issue without citations yields none.
func (s *Store) CitedDataPoints(ctx context.Context, issueID int64) ([]domain.CitedDataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	points := slices.Clone(s.citations[issueID])
	s.mu.RUnlock()
	slices.SortFunc(points, func(a, b domain.CitedDataPoint) int { return cmp.Compare(a.MeasurementID, b.MeasurementID) })
	return points, nil
}

// Package domain defines the value types exchanged between the phenoqc
// visualisation engine, its measurement sources and rendering collaborators.
package domain

import (
	"fmt"
	"time"
)

// Sex identifies the recorded sex of a specimen.
type Sex int

// Recognised sex codes. Values outside Female/Male come from specimens with
// incomplete submission data.
const (
	SexFemale Sex = iota
	SexMale
	SexIntersex
	SexNoData
)

// String returns the display name for the sex code.
func (s Sex) String() string {
	switch s {
	case SexFemale:
		return "female"
	case SexMale:
		return "male"
	case SexIntersex:
		return "intersex"
	case SexNoData:
		return "no data"
	default:
		return "invalid"
	}
}

// Zygosity identifies the genetic state of a specimen.
type Zygosity int

// Recognised zygosity codes.
const (
	Heterozygous Zygosity = iota
	Homozygous
	Hemizygous
)

// String returns the display name for the zygosity code.
func (z Zygosity) String() string {
	switch z {
	case Heterozygous:
		return "heterozygous"
	case Homozygous:
		return "homozygous"
	case Hemizygous:
		return "hemizygous"
	default:
		return "invalid"
	}
}

// WildtypeGenotype is the genotype identifier used by baseline specimens.
const WildtypeGenotype = 0

// Measurement is a single raw measured value as delivered by a measurement
// source. Measurements are immutable once received.
type Measurement struct {
	MeasurementID int64     `json:"m"`
	AnimalID      int64     `json:"a"`
	AnimalName    string    `json:"n,omitempty"`
	Genotype      int64     `json:"g"`
	StrainID      int64     `json:"t,omitempty"`
	Sex           Sex       `json:"s"`
	Zygosity      Zygosity  `json:"z"`
	Timestamp     time.Time `json:"d"`
	Increment     *string   `json:"i,omitempty"`
	Value         string    `json:"v"`
	MetadataGroup int64     `json:"e"`
	TrackerID     int64     `json:"x,omitempty"`
	LastModified  time.Time `json:"u"`
}

// IsWildtype reports whether the measurement belongs to a baseline specimen.
func (m Measurement) IsWildtype() bool { return m.Genotype == WildtypeGenotype }

// MetadataGroup is a set of experimental conditions shared by a subset of
// measurements.
type MetadataGroup struct {
	Index  int64             `json:"i"`
	Values map[string]string `json:"v"`
}

// MeasurementSet is the full replacement payload for a data context.
type MeasurementSet struct {
	Measurements   []Measurement   `json:"measurements"`
	MetadataGroups []MetadataGroup `json:"metadataGroups"`
}

// DataContext identifies the genotype, strain, procedure and parameter whose
// measurements are being reviewed. Any change to a field replaces the
// measurement set wholesale.
type DataContext struct {
	CentreID     int64  `json:"cid" yaml:"centre_id"`
	PipelineID   int64  `json:"lid" yaml:"pipeline_id"`
	GenotypeID   int64  `json:"gid" yaml:"genotype_id"`
	StrainID     int64  `json:"sid" yaml:"strain_id"`
	ProcedureKey string `json:"peid" yaml:"procedure_key"`
	ParameterKey string `json:"qeid" yaml:"parameter_key"`
}

// Key returns a stable identifier for the context, usable as a storage prefix.
func (c DataContext) Key() string {
	return fmt.Sprintf("%d-%d-%d-%d-%s-%s", c.GenotypeID, c.StrainID, c.CentreID, c.PipelineID, c.ProcedureKey, c.ParameterKey)
}

// IsWildtype reports whether the context reviews baseline specimens only.
func (c DataContext) IsWildtype() bool { return c.GenotypeID == WildtypeGenotype }

// Validate reports missing identifiers. Zero genotype is valid (wildtype).
func (c DataContext) Validate() error {
	switch {
	case c.CentreID == 0:
		return fmt.Errorf("data context: centre id required")
	case c.PipelineID == 0:
		return fmt.Errorf("data context: pipeline id required")
	case c.StrainID == 0:
		return fmt.Errorf("data context: strain id required")
	case c.ProcedureKey == "":
		return fmt.Errorf("data context: procedure key required")
	case c.ParameterKey == "":
		return fmt.Errorf("data context: parameter key required")
	}
	return nil
}

// CitedDataPoint references a measurement cited by a QC issue.
type CitedDataPoint struct {
	MeasurementID int64 `json:"m"`
	AnimalID      int64 `json:"a"`
}

// EntityType identifies the kind of record referenced by ErrNotFound.
type EntityType string

// EntityParameter is reported when a parameter catalogue has no entry for a
// stable id. Unknown issues cite nothing rather than failing.
const EntityParameter EntityType = "parameter"

// ErrNotFound indicates the requested record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

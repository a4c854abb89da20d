package memory

import (
	"time"

	"phenoqc/pkg/domain"
)

// Identifiers of the demonstration dataset returned by Fixture.
const (
	FixtureCentre      = 1
	FixturePipeline    = 7
	FixtureStrain      = 3
	FixtureGenotype    = 42
	FixtureProcedure   = "IMPC_GRS_001"
	FixturePoint       = "IMPC_GRS_010_001"
	FixtureSeries      = "IMPC_GRS_011_001"
	FixtureIssue       = 900
	fixtureOtherMutant = 77
)

// FixtureContext returns the data context of the demonstration dataset for
// the given parameter and genotype.
func FixtureContext(parameter string, genotype int64) domain.DataContext {
	return domain.DataContext{
		CentreID:     FixtureCentre,
		PipelineID:   FixturePipeline,
		GenotypeID:   genotype,
		StrainID:     FixtureStrain,
		ProcedureKey: FixtureProcedure,
		ParameterKey: parameter,
	}
}

// Fixture returns a small demonstration dataset: grip strength measured
// once per animal and again as a three repeat series, for one mutant line,
// its wildtype baseline and an unrelated mutant line.
func Fixture() Snapshot {
	floatType := "float"
	day := func(d int) time.Time { return time.Date(2024, time.March, d, 9, 0, 0, 0, time.UTC) }
	record := func(id, animal, genotype int64, sex domain.Sex, zyg domain.Zygosity, d int, parameter, value string, group int64, inc *string) Record {
		return Record{
			Measurement: domain.Measurement{
				MeasurementID: id,
				AnimalID:      animal,
				Genotype:      genotype,
				StrainID:      FixtureStrain,
				Sex:           sex,
				Zygosity:      zyg,
				Timestamp:     day(d),
				Increment:     inc,
				Value:         value,
				MetadataGroup: group,
			},
			CentreID:     FixtureCentre,
			PipelineID:   FixturePipeline,
			ProcedureKey: FixtureProcedure,
			ParameterKey: parameter,
		}
	}
	inc := func(s string) *string { return &s }
	snap := Snapshot{
		Parameters: []domain.ParameterMetadata{
			{StableID: FixturePoint, Name: "Forelimb grip strength", ProcedureName: "Grip strength", DataType: &floatType, Unit: "g", ValueType: domain.ParameterSimple},
			{StableID: FixtureSeries, Name: "Grip strength repeat", ProcedureName: "Grip strength", DataType: &floatType, Unit: "g", ValueType: domain.ParameterSeries,
				Increment: &domain.Increment{ID: 1, Type: "repeat", Unit: "number"}},
		},
		Records: []Record{
			record(1, 101, FixtureGenotype, domain.SexFemale, domain.Homozygous, 4, FixturePoint, "10", 1, nil),
			record(2, 102, FixtureGenotype, domain.SexMale, domain.Homozygous, 4, FixturePoint, "12", 1, nil),
			record(3, 103, FixtureGenotype, domain.SexFemale, domain.Heterozygous, 5, FixturePoint, "11", 1, nil),
			record(4, 104, FixtureGenotype, domain.SexMale, domain.Heterozygous, 5, FixturePoint, "13", 1, nil),
			record(5, 201, domain.WildtypeGenotype, domain.SexFemale, domain.Homozygous, 1, FixturePoint, "9", 2, nil),
			record(6, 202, domain.WildtypeGenotype, domain.SexMale, domain.Homozygous, 2, FixturePoint, "10.5", 2, nil),
			record(7, 203, domain.WildtypeGenotype, domain.SexFemale, domain.Homozygous, 3, FixturePoint, "9.5", 2, nil),
			record(8, 204, domain.WildtypeGenotype, domain.SexMale, domain.Homozygous, 6, FixturePoint, "11", 2, nil),
			record(9, 301, fixtureOtherMutant, domain.SexFemale, domain.Homozygous, 4, FixturePoint, "20", 1, nil),
			record(10, 101, FixtureGenotype, domain.SexFemale, domain.Homozygous, 4, FixtureSeries, "10", 1, inc("1")),
			record(11, 101, FixtureGenotype, domain.SexFemale, domain.Homozygous, 4, FixtureSeries, "11", 1, inc("2")),
			record(12, 101, FixtureGenotype, domain.SexFemale, domain.Homozygous, 4, FixtureSeries, "12", 1, inc("3")),
			record(13, 102, FixtureGenotype, domain.SexMale, domain.Homozygous, 4, FixtureSeries, "13", 1, inc("1")),
			record(14, 102, FixtureGenotype, domain.SexMale, domain.Homozygous, 4, FixtureSeries, "12", 1, inc("2")),
			record(15, 102, FixtureGenotype, domain.SexMale, domain.Homozygous, 4, FixtureSeries, "14", 1, inc("3")),
			record(16, 201, domain.WildtypeGenotype, domain.SexFemale, domain.Homozygous, 1, FixtureSeries, "9", 2, inc("1")),
			record(17, 201, domain.WildtypeGenotype, domain.SexFemale, domain.Homozygous, 1, FixtureSeries, "9.5", 2, inc("2")),
			record(18, 201, domain.WildtypeGenotype, domain.SexFemale, domain.Homozygous, 1, FixtureSeries, "10", 2, inc("3")),
		},
		MetadataGroups: []domain.MetadataGroup{
			{Index: 1, Values: map[string]string{"Equipment": "Bioseb", "Operator": "A"}},
			{Index: 2, Values: map[string]string{"Equipment": "TSE", "Operator": "A"}},
		},
		Citations: []Citation{
			{IssueID: FixtureIssue, CitedDataPoint: domain.CitedDataPoint{MeasurementID: 2, AnimalID: 102}},
			{IssueID: FixtureIssue, CitedDataPoint: domain.CitedDataPoint{MeasurementID: 99, AnimalID: 999}},
		},
	}
	return snap
}

package sqlsource

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"phenoqc/internal/infra/persistence/memory"
	"phenoqc/pkg/domain"
)

// Execer is the subset of *sql.DB and *sql.Tx used to apply the schema.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Source reads measurement sets from a database holding the shared schema.
type Source struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db. The schema is not applied; call Migrate for that.
func New(db *sql.DB, d Dialect) *Source { return &Source{db: db, dialect: d} }

// DB exposes the underlying handle.
func (s *Source) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect in use.
func (s *Source) Dialect() Dialect { return s.dialect }

// Close releases the database handle.
func (s *Source) Close() error { return s.db.Close() }

// Migrate applies the dialect's schema. Every statement is idempotent.
func (s *Source) Migrate(ctx context.Context) error {
	return ApplyStatements(ctx, s.db, s.dialect.DDL)
}

// ApplyStatements executes every statement of ddl in order.
func ApplyStatements(ctx context.Context, db Execer, ddl string) error {
	for _, stmt := range SplitStatements(ddl) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

const measurementColumns = "measurement_id, animal_id, animal_name, genotype_id, strain_id, sex, zygosity, experiment_ms, increment_value, value, metadata_group, tracker_id, modified_ms"

// Measurements returns the mutant and wildtype measurements of dc, ordered
// by measurement id, with the metadata groups they reference.
func (s *Source) Measurements(ctx context.Context, dc domain.DataContext) (domain.MeasurementSet, error) {
	q := s.dialect.Bind("SELECT " + measurementColumns + " FROM measurements" +
		" WHERE centre_id = ? AND pipeline_id = ? AND strain_id = ? AND procedure_key = ? AND parameter_key = ?" +
		" AND genotype_id IN (?, ?) ORDER BY measurement_id")
	rows, err := s.db.QueryContext(ctx, q, dc.CentreID, dc.PipelineID, dc.StrainID, dc.ProcedureKey, dc.ParameterKey,
		dc.GenotypeID, int64(domain.WildtypeGenotype))
	if err != nil {
		return domain.MeasurementSet{}, fmt.Errorf("select measurements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var set domain.MeasurementSet
	var groups []int64
	seen := make(map[int64]bool)
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return domain.MeasurementSet{}, err
		}
		set.Measurements = append(set.Measurements, m)
		if !seen[m.MetadataGroup] {
			seen[m.MetadataGroup] = true
			groups = append(groups, m.MetadataGroup)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.MeasurementSet{}, fmt.Errorf("iterate measurements: %w", err)
	}
	_ = rows.Close()
	set.MetadataGroups, err = s.metadataGroups(ctx, groups)
	if err != nil {
		return domain.MeasurementSet{}, err
	}
	return set, nil
}

func scanMeasurement(rows *sql.Rows) (domain.Measurement, error) {
	var (
		m          domain.Measurement
		sex, zyg   int64
		experiment int64
		modified   int64
		increment  sql.NullString
	)
	if err := rows.Scan(&m.MeasurementID, &m.AnimalID, &m.AnimalName, &m.Genotype, &m.StrainID, &sex, &zyg,
		&experiment, &increment, &m.Value, &m.MetadataGroup, &m.TrackerID, &modified); err != nil {
		return domain.Measurement{}, fmt.Errorf("scan measurement: %w", err)
	}
	m.Sex = domain.Sex(sex)
	m.Zygosity = domain.Zygosity(zyg)
	m.Timestamp = time.UnixMilli(experiment).UTC()
	if modified != 0 {
		m.LastModified = time.UnixMilli(modified).UTC()
	}
	if increment.Valid {
		v := increment.String
		m.Increment = &v
	}
	return m, nil
}

func (s *Source) metadataGroups(ctx context.Context, indices []int64) ([]domain.MetadataGroup, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	args := make([]any, len(indices))
	for i, idx := range indices {
		args[i] = idx
	}
	q := s.dialect.Bind("SELECT group_index, payload FROM metadata_groups WHERE group_index IN (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(indices)), ", ") + ") ORDER BY group_index")
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select metadata groups: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.MetadataGroup
	for rows.Next() {
		var g domain.MetadataGroup
		var payload []byte
		if err := rows.Scan(&g.Index, &payload); err != nil {
			return nil, fmt.Errorf("scan metadata group: %w", err)
		}
		if err := json.Unmarshal(payload, &g.Values); err != nil {
			return nil, fmt.Errorf("decode metadata group %d: %w", g.Index, err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata groups: %w", err)
	}
	return out, nil
}

// Parameter returns the description of the parameter with stable id key.
func (s *Source) Parameter(ctx context.Context, key string) (domain.ParameterMetadata, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.dialect.Bind("SELECT payload FROM parameters WHERE stable_id = ?"), key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ParameterMetadata{}, domain.ErrNotFound{Entity: domain.EntityParameter, ID: key}
	}
	if err != nil {
		return domain.ParameterMetadata{}, fmt.Errorf("select parameter %s: %w", key, err)
	}
	var p domain.ParameterMetadata
	if err := json.Unmarshal(payload, &p); err != nil {
		return domain.ParameterMetadata{}, fmt.Errorf("decode parameter %s: %w", key, err)
	}
	return p, nil
}

// CitedDataPoints returns the data points cited by an issue.
func (s *Source) CitedDataPoints(ctx context.Context, issueID int64) ([]domain.CitedDataPoint, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Bind(
		"SELECT measurement_id, animal_id FROM cited_data_points WHERE issue_id = ? ORDER BY measurement_id"), issueID)
	if err != nil {
		return nil, fmt.Errorf("select cited data points: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.CitedDataPoint
	for rows.Next() {
		var c domain.CitedDataPoint
		if err := rows.Scan(&c.MeasurementID, &c.AnimalID); err != nil {
			return nil, fmt.Errorf("scan cited data point: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cited data points: %w", err)
	}
	return out, nil
}

// Import writes snap in a single transaction. Parameters and metadata
// groups are replaced; measurements and citations already present are kept.
func (s *Source) Import(ctx context.Context, snap memory.Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, p := range snap.Parameters {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode parameter %s: %w", p.StableID, err)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.Bind(
			"INSERT INTO parameters (stable_id, payload) VALUES (?, ?) ON CONFLICT (stable_id) DO UPDATE SET payload = excluded.payload"),
			p.StableID, string(payload)); err != nil {
			return fmt.Errorf("upsert parameter %s: %w", p.StableID, err)
		}
	}
	for _, g := range snap.MetadataGroups {
		payload, err := json.Marshal(g.Values)
		if err != nil {
			return fmt.Errorf("encode metadata group %d: %w", g.Index, err)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.Bind(
			"INSERT INTO metadata_groups (group_index, payload) VALUES (?, ?) ON CONFLICT (group_index) DO UPDATE SET payload = excluded.payload"),
			g.Index, string(payload)); err != nil {
			return fmt.Errorf("upsert metadata group %d: %w", g.Index, err)
		}
	}
	insertMeasurement := s.dialect.Bind("INSERT INTO measurements (measurement_id, centre_id, pipeline_id, genotype_id, strain_id," +
		" procedure_key, parameter_key, animal_id, animal_name, sex, zygosity, experiment_ms, increment_value, value," +
		" metadata_group, tracker_id, modified_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)" +
		" ON CONFLICT (measurement_id) DO NOTHING")
	for _, r := range snap.Records {
		var increment sql.NullString
		if r.Increment != nil {
			increment = sql.NullString{String: *r.Increment, Valid: true}
		}
		var modified int64
		if !r.LastModified.IsZero() {
			modified = r.LastModified.UnixMilli()
		}
		if _, err := tx.ExecContext(ctx, insertMeasurement,
			r.MeasurementID, r.CentreID, r.PipelineID, r.Genotype, r.StrainID,
			r.ProcedureKey, r.ParameterKey, r.AnimalID, r.AnimalName, int64(r.Sex), int64(r.Zygosity),
			r.Timestamp.UnixMilli(), increment, r.Value, r.MetadataGroup, r.TrackerID, modified); err != nil {
			return fmt.Errorf("insert measurement %d: %w", r.MeasurementID, err)
		}
	}
	for _, c := range snap.Citations {
		if _, err := tx.ExecContext(ctx, s.dialect.Bind(
			"INSERT INTO cited_data_points (issue_id, measurement_id, animal_id) VALUES (?, ?, ?) ON CONFLICT (issue_id, measurement_id) DO NOTHING"),
			c.IssueID, c.MeasurementID, c.AnimalID); err != nil {
			return fmt.Errorf("insert citation %d/%d: %w", c.IssueID, c.MeasurementID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Package storage owns the normalized star schema: DDL, reference seeds,
// dimension upserts, fact inserts and the derived summary tables. All SQL
// state lives behind the Store; nothing else writes to the database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/database"
)

type Store struct {
	db  database.Driver
	log zerolog.Logger
}

func New(db database.Driver, log zerolog.Logger) *Store {
	return &Store{db: db, log: log.With().Str("component", "storage").Logger()}
}

// Driver exposes the underlying driver for the read-only query layer.
func (s *Store) Driver() database.Driver {
	return s.db
}

// Init applies the schema and seeds the reference dimensions. Safe to re-run.
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range Statements(s.db.Name()) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			// MySQL cannot express CREATE INDEX IF NOT EXISTS.
			if s.db.Name() == "mysql" && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if err := s.seed(ctx); err != nil {
		return err
	}
	s.log.Info().Str("driver", s.db.Name()).Msg("schema ready")
	return nil
}

// conflictInsert builds an insert that silently skips rows whose unique name
// already exists, so concurrent loaders can never create duplicates.
func (s *Store) conflictInsert(table, conflictCol string, cols ...string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	base := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if s.db.Name() == "mysql" {
		return strings.Replace(base, "INSERT", "INSERT IGNORE", 1)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", base, conflictCol)
}

func (s *Store) seed(ctx context.Context) error {
	for _, d := range DisorderSeeds {
		q := s.conflictInsert("mental_disorders", "disorder_name",
			"disorder_name", "disorder_category", "icd_code")
		if _, err := s.db.ExecContext(ctx, q, d.Name, d.Category, d.ICDCode); err != nil {
			return fmt.Errorf("seed disorder %q: %w", d.Name, err)
		}
	}
	for _, m := range MeasureSeeds {
		q := s.conflictInsert("health_measures", "measure_name",
			"measure_name", "unit_of_measurement")
		if _, err := s.db.ExecContext(ctx, q, m.Name, m.Unit); err != nil {
			return fmt.Errorf("seed measure %q: %w", m.Name, err)
		}
	}
	for _, sex := range SexSeeds {
		q := s.conflictInsert("sex_categories", "sex_name", "sex_name")
		if _, err := s.db.ExecContext(ctx, q, sex); err != nil {
			return fmt.Errorf("seed sex %q: %w", sex, err)
		}
	}
	for _, band := range AgeGroupSeeds() {
		if _, err := s.UpsertAgeGroup(ctx, band); err != nil {
			return fmt.Errorf("seed age group %q: %w", band, err)
		}
	}
	return nil
}

func (s *Store) lookup(ctx context.Context, table, idCol, nameCol, name string) (int64, bool, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", idCol, table, nameCol)
	var id int64
	err := s.db.QueryRowContext(ctx, q, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s %q: %w", table, name, err)
	}
	return id, true, nil
}

// UpsertCountry resolves a country by name, creating it with a classified
// region on first sight.
func (s *Store) UpsertCountry(ctx context.Context, name string) (int64, error) {
	if id, ok, err := s.lookup(ctx, "countries", "country_id", "country_name", name); err != nil || ok {
		return id, err
	}
	q := s.conflictInsert("countries", "country_name", "country_name", "region")
	if _, err := s.db.ExecContext(ctx, q, name, RegionOf(name)); err != nil {
		return 0, fmt.Errorf("insert country %q: %w", name, err)
	}
	id, ok, err := s.lookup(ctx, "countries", "country_id", "country_name", name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &ReferentialError{Dimension: "country", Name: name}
	}
	return id, nil
}

// UpsertAgeGroup resolves an age band by its cleaned label, creating it with
// parsed bounds on first sight. Labels that do not parse are stored with
// null bounds rather than rejected ("All ages" style groups).
func (s *Store) UpsertAgeGroup(ctx context.Context, band string) (int64, error) {
	if id, ok, err := s.lookup(ctx, "age_groups", "age_group_id", "age_group_name", band); err != nil || ok {
		return id, err
	}
	var start, end sql.NullInt64
	if lo, hi, ok := ParseAgeBounds(band); ok {
		start = sql.NullInt64{Int64: int64(lo), Valid: true}
		end = sql.NullInt64{Int64: int64(hi), Valid: true}
	}
	q := s.conflictInsert("age_groups", "age_group_name", "age_group_name", "age_start", "age_end")
	if _, err := s.db.ExecContext(ctx, q, band, start, end); err != nil {
		return 0, fmt.Errorf("insert age group %q: %w", band, err)
	}
	id, ok, err := s.lookup(ctx, "age_groups", "age_group_id", "age_group_name", band)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &ReferentialError{Dimension: "age group", Name: band}
	}
	return id, nil
}

// ResolveDisorder, ResolveMeasure and ResolveSex look up closed enumerations;
// an unknown name is a referential failure, never an insert.
func (s *Store) ResolveDisorder(ctx context.Context, name string) (int64, error) {
	return s.resolve(ctx, "mental_disorders", "disorder_id", "disorder_name", "disorder", name)
}

func (s *Store) ResolveMeasure(ctx context.Context, name string) (int64, error) {
	return s.resolve(ctx, "health_measures", "measure_id", "measure_name", "measure", name)
}

func (s *Store) ResolveSex(ctx context.Context, name string) (int64, error) {
	return s.resolve(ctx, "sex_categories", "sex_id", "sex_name", "sex", name)
}

func (s *Store) resolve(ctx context.Context, table, idCol, nameCol, dim, name string) (int64, error) {
	id, ok, err := s.lookup(ctx, table, idCol, nameCol, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &ReferentialError{Dimension: dim, Name: name}
	}
	return id, nil
}

// FactRow is one resolved observation ready for insertion.
type FactRow struct {
	CountryID  int64
	DisorderID int64
	MeasureID  int64
	AgeGroupID int64
	SexID      int64
	Year       int
	Value      float64
	UpperBound float64
	LowerBound float64
}

func (f FactRow) validate() error {
	if f.Year < 1980 || f.Year > 2030 {
		return &ConstraintViolation{Constraint: "valid_year"}
	}
	if f.Value < 0 {
		return &ConstraintViolation{Constraint: "valid_value"}
	}
	if f.UpperBound < f.LowerBound {
		return &ConstraintViolation{Constraint: "valid_bounds"}
	}
	return nil
}

const insertFactSQL = `INSERT INTO mental_health_data
	(country_id, disorder_id, measure_id, age_group_id, sex_id, year, value, upper_bound, lower_bound)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// InsertFact enforces the table invariants at the storage boundary and
// inserts one immutable fact row. The context may carry an open transaction.
func (s *Store) InsertFact(ctx context.Context, f FactRow) error {
	if err := f.validate(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, insertFactSQL,
		f.CountryID, f.DisorderID, f.MeasureID, f.AgeGroupID, f.SexID,
		f.Year, f.Value, f.UpperBound, f.LowerBound); err != nil {
		return &ConstraintViolation{Constraint: "mental_health_data", Err: err}
	}
	return nil
}

// CorrectFact replaces the estimate of an existing fact row and refreshes
// its updated_at stamp. The only mutation the fact table supports.
func (s *Store) CorrectFact(ctx context.Context, id int64, value, upper, lower float64) error {
	if value < 0 {
		return &ConstraintViolation{Constraint: "valid_value"}
	}
	if upper < lower {
		return &ConstraintViolation{Constraint: "valid_bounds"}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE mental_health_data
		SET value = $1, upper_bound = $2, lower_bound = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4`, value, upper, lower, id)
	if err != nil {
		return &ConstraintViolation{Constraint: "mental_health_data", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fact %d not found", id)
	}
	return nil
}

var summaryRefresh = map[string]string{
	YearlyDisorderSummary: `INSERT INTO yearly_disorder_summary
		(disorder_id, measure_id, year, mean_value, min_value, max_value, observation_count)
		SELECT disorder_id, measure_id, year, AVG(value), MIN(value), MAX(value), COUNT(*)
		FROM mental_health_data
		GROUP BY disorder_id, measure_id, year`,
	CountryDisorderSummary: `INSERT INTO country_disorder_summary
		(country_id, disorder_id, measure_id, mean_value, observation_count)
		SELECT country_id, disorder_id, measure_id, AVG(value), COUNT(*)
		FROM mental_health_data
		GROUP BY country_id, disorder_id, measure_id`,
}

// RefreshMaterialized rebuilds one derived summary from the fact table
// inside a single transaction. Summaries are disposable caches; this is the
// only way they change.
func (s *Store) RefreshMaterialized(ctx context.Context, name string) error {
	insert, ok := summaryRefresh[name]
	if !ok {
		return fmt.Errorf("unknown materialized summary %q", name)
	}
	err := s.db.ExecuteTx(ctx, func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+name); err != nil {
			return err
		}
		_, err := s.db.ExecContext(ctx, insert)
		return err
	})
	if err != nil {
		return fmt.Errorf("refresh %s: %w", name, err)
	}
	s.log.Debug().Str("summary", name).Msg("materialized summary refreshed")
	return nil
}

// RefreshAllMaterialized recomputes every summary. Called after each load;
// any change to the fact table invalidates all of them.
func (s *Store) RefreshAllMaterialized(ctx context.Context) error {
	for _, name := range []string{YearlyDisorderSummary, CountryDisorderSummary} {
		if err := s.RefreshMaterialized(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

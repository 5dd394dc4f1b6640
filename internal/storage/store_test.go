package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/database"
)

func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()

	driver := &database.SQLiteDriver{}
	if err := driver.Connect(":memory:"); err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	t.Cleanup(func() { driver.Close() })

	store := New(driver, zerolog.Nop())
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return store, context.Background()
}

func countRows(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	var n int64
	if err := s.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestInitIdempotent(t *testing.T) {
	store, ctx := newTestStore(t)

	if err := store.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	if n := countRows(t, store, "mental_disorders"); n != int64(len(DisorderSeeds)) {
		t.Errorf("mental_disorders = %d rows, want %d", n, len(DisorderSeeds))
	}
	if n := countRows(t, store, "health_measures"); n != int64(len(MeasureSeeds)) {
		t.Errorf("health_measures = %d rows, want %d", n, len(MeasureSeeds))
	}
	if n := countRows(t, store, "sex_categories"); n != 3 {
		t.Errorf("sex_categories = %d rows, want 3", n)
	}
	if n := countRows(t, store, "age_groups"); n != int64(len(AgeGroupSeeds())) {
		t.Errorf("age_groups = %d rows, want %d", n, len(AgeGroupSeeds()))
	}
}

func TestResolveSeededDimensions(t *testing.T) {
	store, ctx := newTestStore(t)

	if _, err := store.ResolveDisorder(ctx, "Anxiety disorders"); err != nil {
		t.Errorf("ResolveDisorder: %v", err)
	}
	if _, err := store.ResolveMeasure(ctx, "DALYs (Disability-Adjusted Life Years)"); err != nil {
		t.Errorf("ResolveMeasure: %v", err)
	}
	if _, err := store.ResolveSex(ctx, "Both"); err != nil {
		t.Errorf("ResolveSex: %v", err)
	}

	_, err := store.ResolveDisorder(ctx, "Nostalgia")
	var re *ReferentialError
	if !errors.As(err, &re) {
		t.Fatalf("unknown disorder error = %v, want *ReferentialError", err)
	}
	if re.Dimension != "disorder" || re.Name != "Nostalgia" {
		t.Errorf("ReferentialError = %+v", re)
	}
}

func TestUpsertCountry(t *testing.T) {
	store, ctx := newTestStore(t)

	first, err := store.UpsertCountry(ctx, "Kenya")
	if err != nil {
		t.Fatalf("UpsertCountry: %v", err)
	}
	second, err := store.UpsertCountry(ctx, "Kenya")
	if err != nil {
		t.Fatalf("second UpsertCountry: %v", err)
	}
	if first != second {
		t.Errorf("ids differ across upserts: %d vs %d", first, second)
	}

	var region string
	err = store.db.QueryRowContext(ctx,
		"SELECT region FROM countries WHERE country_id = $1", first).Scan(&region)
	if err != nil {
		t.Fatalf("read region: %v", err)
	}
	if region != "Africa" {
		t.Errorf("region = %q, want Africa", region)
	}

	tuvalu, err := store.UpsertCountry(ctx, "Tuvalu")
	if err != nil {
		t.Fatalf("UpsertCountry unknown region: %v", err)
	}
	err = store.db.QueryRowContext(ctx,
		"SELECT region FROM countries WHERE country_id = $1", tuvalu).Scan(&region)
	if err != nil {
		t.Fatalf("read region: %v", err)
	}
	if region != "Other/Oceania" {
		t.Errorf("region = %q, want Other/Oceania", region)
	}
}

func TestUpsertAgeGroupBounds(t *testing.T) {
	store, ctx := newTestStore(t)

	id, err := store.UpsertAgeGroup(ctx, "15-19")
	if err != nil {
		t.Fatalf("UpsertAgeGroup: %v", err)
	}
	var start, end int
	err = store.db.QueryRowContext(ctx,
		"SELECT age_start, age_end FROM age_groups WHERE age_group_id = $1", id).Scan(&start, &end)
	if err != nil {
		t.Fatalf("read bounds: %v", err)
	}
	if start != 15 || end != 19 {
		t.Errorf("bounds = %d-%d, want 15-19", start, end)
	}

	// Unparseable labels still get a row, with null bounds.
	if _, err := store.UpsertAgeGroup(ctx, "All ages"); err != nil {
		t.Errorf("UpsertAgeGroup(All ages): %v", err)
	}
}

func validFact(t *testing.T, store *Store, ctx context.Context) FactRow {
	t.Helper()
	countryID, err := store.UpsertCountry(ctx, "Kenya")
	if err != nil {
		t.Fatalf("UpsertCountry: %v", err)
	}
	disorderID, err := store.ResolveDisorder(ctx, "Anxiety disorders")
	if err != nil {
		t.Fatalf("ResolveDisorder: %v", err)
	}
	measureID, err := store.ResolveMeasure(ctx, "DALYs (Disability-Adjusted Life Years)")
	if err != nil {
		t.Fatalf("ResolveMeasure: %v", err)
	}
	ageID, err := store.UpsertAgeGroup(ctx, "15-19")
	if err != nil {
		t.Fatalf("UpsertAgeGroup: %v", err)
	}
	sexID, err := store.ResolveSex(ctx, "Both")
	if err != nil {
		t.Fatalf("ResolveSex: %v", err)
	}
	return FactRow{
		CountryID: countryID, DisorderID: disorderID, MeasureID: measureID,
		AgeGroupID: ageID, SexID: sexID,
		Year: 2019, Value: 523.4, UpperBound: 610.2, LowerBound: 440.8,
	}
}

func TestInsertFactInvariants(t *testing.T) {
	store, ctx := newTestStore(t)
	base := validFact(t, store, ctx)

	if err := store.InsertFact(ctx, base); err != nil {
		t.Fatalf("valid fact rejected: %v", err)
	}

	tests := []struct {
		name       string
		mutate     func(*FactRow)
		constraint string
	}{
		{"year below range", func(f *FactRow) { f.Year = 1979 }, "valid_year"},
		{"year above range", func(f *FactRow) { f.Year = 2031 }, "valid_year"},
		{"negative value", func(f *FactRow) { f.Value = -1 }, "valid_value"},
		{"inverted bounds", func(f *FactRow) { f.UpperBound = 1; f.LowerBound = 2 }, "valid_bounds"},
		{"unknown country", func(f *FactRow) { f.CountryID = 99999 }, "mental_health_data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mutate(&f)

			err := store.InsertFact(ctx, f)
			var cv *ConstraintViolation
			if !errors.As(err, &cv) {
				t.Fatalf("error = %v, want *ConstraintViolation", err)
			}
			if cv.Constraint != tt.constraint {
				t.Errorf("Constraint = %q, want %q", cv.Constraint, tt.constraint)
			}
		})
	}
}

func TestCorrectFact(t *testing.T) {
	store, ctx := newTestStore(t)
	f := validFact(t, store, ctx)
	if err := store.InsertFact(ctx, f); err != nil {
		t.Fatalf("InsertFact: %v", err)
	}

	var id int64
	if err := store.db.QueryRowContext(ctx, "SELECT id FROM mental_health_data").Scan(&id); err != nil {
		t.Fatalf("read fact id: %v", err)
	}

	if err := store.CorrectFact(ctx, id, 600, 700, 500); err != nil {
		t.Fatalf("CorrectFact: %v", err)
	}
	var value float64
	if err := store.db.QueryRowContext(ctx,
		"SELECT value FROM mental_health_data WHERE id = $1", id).Scan(&value); err != nil {
		t.Fatalf("read value: %v", err)
	}
	if value != 600 {
		t.Errorf("value = %v, want 600", value)
	}

	var cv *ConstraintViolation
	if err := store.CorrectFact(ctx, id, -1, 1, 0); !errors.As(err, &cv) {
		t.Errorf("negative correction error = %v, want *ConstraintViolation", err)
	}
	if err := store.CorrectFact(ctx, id, 1, 0, 5); !errors.As(err, &cv) {
		t.Errorf("inverted bounds correction error = %v, want *ConstraintViolation", err)
	}
	if err := store.CorrectFact(ctx, 99999, 1, 2, 0); err == nil {
		t.Error("correcting a missing fact id succeeded")
	}
}

func TestRefreshMaterialized(t *testing.T) {
	store, ctx := newTestStore(t)
	f := validFact(t, store, ctx)

	for _, year := range []int{2018, 2019, 2020} {
		f.Year = year
		f.Value = float64(100 * year)
		if err := store.InsertFact(ctx, f); err != nil {
			t.Fatalf("InsertFact(%d): %v", year, err)
		}
	}

	if err := store.RefreshAllMaterialized(ctx); err != nil {
		t.Fatalf("RefreshAllMaterialized: %v", err)
	}
	if n := countRows(t, store, YearlyDisorderSummary); n != 3 {
		t.Errorf("yearly summary = %d rows, want 3", n)
	}
	if n := countRows(t, store, CountryDisorderSummary); n != 1 {
		t.Errorf("country summary = %d rows, want 1", n)
	}

	// Refresh replaces, never accumulates.
	if err := store.RefreshAllMaterialized(ctx); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if n := countRows(t, store, YearlyDisorderSummary); n != 3 {
		t.Errorf("yearly summary after re-refresh = %d rows, want 3", n)
	}

	if err := store.RefreshMaterialized(ctx, "nope"); err == nil {
		t.Error("unknown summary name accepted")
	}
}

func TestParseAgeBounds(t *testing.T) {
	tests := []struct {
		band       string
		start, end int
		ok         bool
	}{
		{"5-9", 5, 9, true},
		{"80-84", 80, 84, true},
		{"15 - 19", 15, 19, true},
		{"All ages", 0, 0, false},
		{"19-15", 0, 0, false},
		{"x-9", 0, 0, false},
	}
	for _, tt := range tests {
		start, end, ok := ParseAgeBounds(tt.band)
		if start != tt.start || end != tt.end || ok != tt.ok {
			t.Errorf("ParseAgeBounds(%q) = %d, %d, %v; want %d, %d, %v",
				tt.band, start, end, ok, tt.start, tt.end, tt.ok)
		}
	}
}

func TestRegionOf(t *testing.T) {
	tests := []struct {
		country, region string
	}{
		{"Germany", "Europe"},
		{"India", "Asia"},
		{"Nigeria", "Africa"},
		{"Brazil", "Americas"},
		{"Australia", "Other/Oceania"},
	}
	for _, tt := range tests {
		if got := RegionOf(tt.country); got != tt.region {
			t.Errorf("RegionOf(%q) = %q, want %q", tt.country, got, tt.region)
		}
	}
}

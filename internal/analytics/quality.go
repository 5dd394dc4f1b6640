package analytics

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/database"
)

// dataQuality reports coverage of the loaded fact table: record count,
// distinct dimension coverage and the year range.
func dataQuality(ctx context.Context, db database.Driver, _ Params) (*ResultSet, error) {
	const query = `SELECT COUNT(*),
			COUNT(DISTINCT country_id),
			COUNT(DISTINCT disorder_id),
			COUNT(DISTINCT measure_id),
			COUNT(DISTINCT age_group_id),
			MIN(year), MAX(year)
		FROM mental_health_data`

	var (
		total, countries, disorders, measures, ageGroups int64
		minYear, maxYear                                 sql.NullInt64
	)
	err := db.QueryRowContext(ctx, query).Scan(
		&total, &countries, &disorders, &measures, &ageGroups, &minYear, &maxYear)
	if err != nil {
		return nil, fmt.Errorf("data_quality: %w", err)
	}

	// Coverage of the (country, disorder, year) grid, against the span of
	// years actually present.
	var completeness any
	if minYear.Valid && countries > 0 && disorders > 0 {
		var cells int64
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM (
				SELECT country_id, disorder_id, year FROM mental_health_data
				GROUP BY country_id, disorder_id, year
			) g`).Scan(&cells)
		if err != nil {
			return nil, fmt.Errorf("data_quality coverage: %w", err)
		}
		span := maxYear.Int64 - minYear.Int64 + 1
		completeness = float64(cells) / float64(countries*disorders*span) * 100
	}

	ni := func(v sql.NullInt64) any {
		if v.Valid {
			return v.Int64
		}
		return nil
	}

	return &ResultSet{
		Name:    "data_quality",
		Columns: []string{"metric", "value"},
		Rows: [][]any{
			{"total_records", total},
			{"countries_covered", countries},
			{"disorders_covered", disorders},
			{"measures_covered", measures},
			{"age_groups_covered", ageGroups},
			{"min_year", ni(minYear)},
			{"max_year", ni(maxYear)},
			{"grid_completeness_pct", completeness},
		},
	}, nil
}

package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/database"
)

func nf(v sql.NullFloat64) any {
	if v.Valid {
		return v.Float64
	}
	return nil
}

// yoyGrowth computes per-disorder year-over-year growth of the yearly mean,
// plus a trailing 5-year rolling average of the growth series. Growth is
// null for the first year of a disorder and whenever the previous mean is
// not positive.
func yoyGrowth(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	query := fmt.Sprintf(`WITH yearly AS (%s),
		growth AS (
			SELECT disorder, year, mean_value,
				LAG(mean_value) OVER (PARTITION BY disorder ORDER BY year) AS prev_value
			FROM yearly
		)
		SELECT disorder, year, mean_value,
			CASE WHEN prev_value > 0 THEN (mean_value - prev_value) / prev_value * 100 END AS yoy_growth_pct,
			AVG(CASE WHEN prev_value > 0 THEN (mean_value - prev_value) / prev_value * 100 END)
				OVER (PARTITION BY disorder ORDER BY year ROWS BETWEEN 4 PRECEDING AND CURRENT ROW) AS growth_5yr_avg
		FROM growth
		ORDER BY disorder, year`, yearlyMeansSQL)

	rows, err := db.QueryContext(ctx, query, p.Measure, p.Sex)
	if err != nil {
		return nil, fmt.Errorf("yoy_growth: %w", err)
	}
	defer rows.Close()

	rs := &ResultSet{
		Name:    "yoy_growth",
		Columns: []string{"disorder", "year", "mean_value", "yoy_growth_pct", "growth_5yr_avg"},
	}
	for rows.Next() {
		var (
			disorder     string
			year         int64
			mean         float64
			growth, avg5 sql.NullFloat64
		)
		if err := rows.Scan(&disorder, &year, &mean, &growth, &avg5); err != nil {
			return nil, fmt.Errorf("yoy_growth scan: %w", err)
		}
		rs.Rows = append(rs.Rows, []any{disorder, year, mean, nf(growth), nf(avg5)})
	}
	return rs, rows.Err()
}

// movingAverages computes centered 3- and 5-year means, a 0.4/0.3/0.2/0.1
// weighted average over the current and three preceding years, and a 5-year
// centered standard deviation as a volatility proxy. The deviation comes
// back from SQL as a population variance so the query stays portable; the
// square root happens here.
func movingAverages(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	const w5 = "PARTITION BY disorder ORDER BY year ROWS BETWEEN 2 PRECEDING AND 2 FOLLOWING"
	query := fmt.Sprintf(`WITH yearly AS (%s)
		SELECT disorder, year, mean_value,
			AVG(mean_value) OVER (PARTITION BY disorder ORDER BY year ROWS BETWEEN 1 PRECEDING AND 1 FOLLOWING) AS ma_3yr,
			AVG(mean_value) OVER (%s) AS ma_5yr,
			0.4 * mean_value
				+ 0.3 * LAG(mean_value, 1) OVER (PARTITION BY disorder ORDER BY year)
				+ 0.2 * LAG(mean_value, 2) OVER (PARTITION BY disorder ORDER BY year)
				+ 0.1 * LAG(mean_value, 3) OVER (PARTITION BY disorder ORDER BY year) AS weighted_ma,
			AVG(mean_value * mean_value) OVER (%s) - AVG(mean_value) OVER (%s) * AVG(mean_value) OVER (%s) AS variance_5yr
		FROM yearly
		ORDER BY disorder, year`, yearlyMeansSQL, w5, w5, w5, w5)

	rows, err := db.QueryContext(ctx, query, p.Measure, p.Sex)
	if err != nil {
		return nil, fmt.Errorf("moving_averages: %w", err)
	}
	defer rows.Close()

	rs := &ResultSet{
		Name:    "moving_averages",
		Columns: []string{"disorder", "year", "mean_value", "ma_3yr", "ma_5yr", "weighted_ma", "volatility_5yr"},
	}
	for rows.Next() {
		var (
			disorder            string
			year                int64
			mean                float64
			ma3, ma5, wma, vari sql.NullFloat64
		)
		if err := rows.Scan(&disorder, &year, &mean, &ma3, &ma5, &wma, &vari); err != nil {
			return nil, fmt.Errorf("moving_averages scan: %w", err)
		}
		var volatility any
		if vari.Valid {
			volatility = math.Sqrt(math.Max(vari.Float64, 0))
		}
		rs.Rows = append(rs.Rows, []any{disorder, year, mean, nf(ma3), nf(ma5), nf(wma), volatility})
	}
	return rs, rows.Err()
}

// turningPoints classifies each year with two full years of history on both
// sides as Peak, Valley, Increasing, Decreasing or Stable. Boundary years
// never appear in the result.
func turningPoints(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	query := fmt.Sprintf(`WITH yearly AS (%s),
		neighborhood AS (
			SELECT disorder, year, mean_value,
				LAG(mean_value, 2) OVER (PARTITION BY disorder ORDER BY year) AS prev2,
				LAG(mean_value, 1) OVER (PARTITION BY disorder ORDER BY year) AS prev1,
				LEAD(mean_value, 1) OVER (PARTITION BY disorder ORDER BY year) AS next1,
				LEAD(mean_value, 2) OVER (PARTITION BY disorder ORDER BY year) AS next2
			FROM yearly
		)
		SELECT disorder, year, mean_value,
			CASE
				WHEN prev2 < prev1 AND prev1 < mean_value AND mean_value > next1 AND next1 > next2 THEN 'Peak'
				WHEN prev2 > prev1 AND prev1 > mean_value AND mean_value < next1 AND next1 < next2 THEN 'Valley'
				WHEN prev1 < mean_value AND mean_value < next1 THEN 'Increasing'
				WHEN prev1 > mean_value AND mean_value > next1 THEN 'Decreasing'
				ELSE 'Stable'
			END AS classification
		FROM neighborhood
		WHERE prev2 IS NOT NULL AND next2 IS NOT NULL
		ORDER BY disorder, year`, yearlyMeansSQL)

	rows, err := db.QueryContext(ctx, query, p.Measure, p.Sex)
	if err != nil {
		return nil, fmt.Errorf("turning_points: %w", err)
	}
	defer rows.Close()

	rs := &ResultSet{
		Name:    "turning_points",
		Columns: []string{"disorder", "year", "mean_value", "classification"},
	}
	for rows.Next() {
		var (
			disorder, class string
			year            int64
			mean            float64
		)
		if err := rows.Scan(&disorder, &year, &mean, &class); err != nil {
			return nil, fmt.Errorf("turning_points scan: %w", err)
		}
		rs.Rows = append(rs.Rows, []any{disorder, year, mean, class})
	}
	return rs, rows.Err()
}

// trendClassification fits a least-squares line through each disorder's
// (year, mean) series and tags it with the trend decision table. Disorders
// with fewer than MinYears distinct years are omitted.
func trendClassification(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	rows, err := db.QueryContext(ctx, yearlyMeansSQL+" ORDER BY d.disorder_name, f.year", p.Measure, p.Sex)
	if err != nil {
		return nil, fmt.Errorf("trend_classification: %w", err)
	}
	defer rows.Close()

	type series struct {
		years []float64
		means []float64
	}
	byDisorder := map[string]*series{}
	for rows.Next() {
		var (
			disorder string
			year     int64
			mean     float64
		)
		if err := rows.Scan(&disorder, &year, &mean); err != nil {
			return nil, fmt.Errorf("trend_classification scan: %w", err)
		}
		s := byDisorder[disorder]
		if s == nil {
			s = &series{}
			byDisorder[disorder] = s
		}
		s.years = append(s.years, float64(year))
		s.means = append(s.means, mean)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(byDisorder))
	for name := range byDisorder {
		names = append(names, name)
	}
	sort.Strings(names)

	rs := &ResultSet{
		Name:    "trend_classification",
		Columns: []string{"disorder", "years_observed", "slope", "correlation", "trend"},
	}
	for _, name := range names {
		s := byDisorder[name]
		if len(s.years) < p.MinYears {
			continue
		}
		slope, corr, ok := linearTrend(s.years, s.means)
		if !ok {
			continue
		}
		rs.Rows = append(rs.Rows, []any{name, int64(len(s.years)), slope, corr, ClassifyTrend(slope, corr)})
	}
	return rs, nil
}

// linearTrend returns the least-squares slope and Pearson correlation of a
// series. Degenerate input (under two points, or no variance in x) reports
// ok=false.
func linearTrend(xs, ys []float64) (slope, corr float64, ok bool) {
	cov, err := stats.CovariancePopulation(xs, ys)
	if err != nil {
		return 0, 0, false
	}
	varX, err := stats.PopulationVariance(xs)
	if err != nil || varX == 0 {
		return 0, 0, false
	}
	corr, err = stats.Pearson(xs, ys)
	if err != nil || math.IsNaN(corr) {
		return 0, 0, false
	}
	return cov / varX, corr, true
}

// disorderGrowth compares each disorder's mean between a baseline and a
// latest year, with the original analysis' growth buckets.
func disorderGrowth(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	return baselineComparison(ctx, db, p, "disorder_growth",
		"d.disorder_name", "JOIN mental_disorders d ON d.disorder_id = f.disorder_id", "disorder")
}

// ageGroupTrends runs the same baseline comparison keyed by age group.
func ageGroupTrends(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	return baselineComparison(ctx, db, p, "age_group_trends",
		"a.age_group_name", "JOIN age_groups a ON a.age_group_id = f.age_group_id", "age_group")
}

func baselineComparison(ctx context.Context, db database.Driver, p Params, name, keyExpr, keyJoin, keyCol string) (*ResultSet, error) {
	// Placeholders stay strictly ordered and never repeat, so the query
	// rebinds cleanly on every engine; the measure and sex filters are
	// passed once per side instead.
	sideSQL := func(first int) string {
		return fmt.Sprintf(`SELECT %s AS grp, AVG(f.value) AS mean_value
			FROM mental_health_data f
			%s
			JOIN health_measures m ON m.measure_id = f.measure_id
			JOIN sex_categories s ON s.sex_id = f.sex_id
			WHERE m.measure_name = $%d AND s.sex_name = $%d AND f.year = $%d
			GROUP BY %s`, keyExpr, keyJoin, first, first+1, first+2, keyExpr)
	}
	query := fmt.Sprintf(`WITH baseline AS (%s), latest AS (%s)
		SELECT l.grp, b.mean_value AS baseline_value, l.mean_value AS latest_value,
			l.mean_value - b.mean_value AS absolute_change,
			CASE WHEN b.mean_value > 0 THEN (l.mean_value - b.mean_value) / b.mean_value * 100 END AS relative_growth_pct
		FROM latest l
		JOIN baseline b ON b.grp = l.grp
		ORDER BY l.grp`, sideSQL(1), sideSQL(4))

	rows, err := db.QueryContext(ctx, query,
		p.Measure, p.Sex, p.BaselineYear, p.Measure, p.Sex, p.LatestYear)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer rows.Close()

	rs := &ResultSet{
		Name: name,
		Columns: []string{keyCol, "baseline_value", "latest_value", "absolute_change",
			"relative_growth_pct", "growth_category"},
	}
	for rows.Next() {
		var (
			grp          string
			base, latest float64
			change       float64
			growth       sql.NullFloat64
		)
		if err := rows.Scan(&grp, &base, &latest, &change, &growth); err != nil {
			return nil, fmt.Errorf("%s scan: %w", name, err)
		}
		category := "Undefined"
		if growth.Valid {
			category = GrowthBucket(growth.Float64)
		}
		rs.Rows = append(rs.Rows, []any{grp, base, latest, change, nf(growth), category})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// highest growth first, matching the original report ordering
	sort.SliceStable(rs.Rows, func(i, j int) bool {
		gi, iok := rs.Rows[i][4].(float64)
		gj, jok := rs.Rows[j][4].(float64)
		if iok != jok {
			return iok
		}
		if gi != gj {
			return gi > gj
		}
		return rs.Rows[i][0].(string) < rs.Rows[j][0].(string)
	})
	return rs, nil
}

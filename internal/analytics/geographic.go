package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/database"
)

// countryRanking ranks countries per disorder by mean prevalence and buckets
// them into order-based quartiles. Countries with fewer than MinObservations
// facts for a disorder are omitted; rank ties break on country name.
func countryRanking(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	// The optional filter takes $3 and pushes the HAVING threshold to $4,
	// keeping placeholders in textual order for positional rebinding.
	filter := ""
	args := []any{p.Measure, p.Sex}
	if p.Disorder != "" {
		filter = " AND d.disorder_name = $3"
		args = append(args, p.Disorder)
	}
	args = append(args, p.MinObservations)
	query := fmt.Sprintf(`WITH country_means AS (
			SELECT d.disorder_name AS disorder, c.country_name AS country,
				AVG(f.value) AS mean_value, COUNT(*) AS observations
			FROM mental_health_data f
			JOIN countries c ON c.country_id = f.country_id
			JOIN mental_disorders d ON d.disorder_id = f.disorder_id
			JOIN health_measures m ON m.measure_id = f.measure_id
			JOIN sex_categories s ON s.sex_id = f.sex_id
			WHERE m.measure_name = $1 AND s.sex_name = $2%s
			GROUP BY d.disorder_name, c.country_name
			HAVING COUNT(*) >= $%d
		)
		SELECT disorder, country, mean_value, observations,
			RANK() OVER (PARTITION BY disorder ORDER BY mean_value DESC, country) AS prevalence_rank,
			NTILE(4) OVER (PARTITION BY disorder ORDER BY mean_value, country DESC) AS quartile
		FROM country_means
		ORDER BY disorder, prevalence_rank`, filter, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("country_ranking: %w", err)
	}
	defer rows.Close()

	rs := &ResultSet{
		Name: "country_ranking",
		Columns: []string{"disorder", "country", "mean_value", "observations",
			"prevalence_rank", "quartile", "prevalence_level"},
	}
	for rows.Next() {
		var (
			disorder, country  string
			mean               float64
			obs, rank, quartil int64
		)
		if err := rows.Scan(&disorder, &country, &mean, &obs, &rank, &quartil); err != nil {
			return nil, fmt.Errorf("country_ranking scan: %w", err)
		}
		rs.Rows = append(rs.Rows, []any{disorder, country, mean, obs, rank, quartil, QuartileLabel(int(quartil))})
	}
	return rs, rows.Err()
}

// countryMeansSQL is the per-(country, disorder) mean used by the regional,
// hotspot and similarity analyses.
const countryMeansSQL = `SELECT c.country_name AS country, c.region AS region,
		d.disorder_name AS disorder, AVG(f.value) AS mean_value
	FROM mental_health_data f
	JOIN countries c ON c.country_id = f.country_id
	JOIN mental_disorders d ON d.disorder_id = f.disorder_id
	JOIN health_measures m ON m.measure_id = f.measure_id
	JOIN sex_categories s ON s.sex_id = f.sex_id
	WHERE m.measure_name = $1 AND s.sex_name = $2
	GROUP BY c.country_name, c.region, d.disorder_name`

// regionalComparison aggregates country means per (region, disorder):
// mean, standard deviation, median and IQR, plus the region's deviation
// from the disorder's global mean. Regions with fewer than MinCountries
// countries for a disorder are omitted.
func regionalComparison(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	rows, err := db.QueryContext(ctx, countryMeansSQL, p.Measure, p.Sex)
	if err != nil {
		return nil, fmt.Errorf("regional_comparison: %w", err)
	}
	defer rows.Close()

	type groupKey struct{ region, disorder string }
	groups := map[groupKey][]float64{}
	global := map[string][]float64{}
	for rows.Next() {
		var (
			country, region, disorder string
			mean                      float64
		)
		if err := rows.Scan(&country, &region, &disorder, &mean); err != nil {
			return nil, fmt.Errorf("regional_comparison scan: %w", err)
		}
		_ = country
		groups[groupKey{region, disorder}] = append(groups[groupKey{region, disorder}], mean)
		global[disorder] = append(global[disorder], mean)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].region != keys[j].region {
			return keys[i].region < keys[j].region
		}
		return keys[i].disorder < keys[j].disorder
	})

	rs := &ResultSet{
		Name: "regional_comparison",
		Columns: []string{"region", "disorder", "countries", "mean_value", "std_dev",
			"median_value", "iqr", "global_mean", "deviation", "deviation_pct"},
	}
	for _, k := range keys {
		values := groups[k]
		if len(values) < p.MinCountries {
			continue
		}
		mean, err := stats.Mean(values)
		if err != nil {
			continue
		}
		stdDev, _ := stats.StandardDeviationSample(values)
		median, _ := stats.Median(values)
		iqr, _ := stats.InterQuartileRange(values)
		globalMean, err := stats.Mean(global[k.disorder])
		if err != nil {
			continue
		}
		deviation := mean - globalMean
		var deviationPct any
		if globalMean != 0 {
			deviationPct = deviation / globalMean * 100
		}
		rs.Rows = append(rs.Rows, []any{k.region, k.disorder, int64(len(values)),
			mean, stdDev, median, iqr, globalMean, deviation, deviationPct})
	}
	return rs, nil
}

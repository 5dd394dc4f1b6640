package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/database"
)

// hotspotClassification scores every country's mean prevalence as a z-score
// within each disorder's cross-country distribution, counts high-severity
// (z > 2), elevated (z > 1, inclusive of high) and low (z < -1) disorders,
// and tags the country with the hotspot decision table. Countries with
// fewer than five measured disorders are omitted.
func hotspotClassification(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	rows, err := db.QueryContext(ctx, countryMeansSQL, p.Measure, p.Sex)
	if err != nil {
		return nil, fmt.Errorf("hotspot_classification: %w", err)
	}
	defer rows.Close()

	type observation struct {
		country string
		mean    float64
	}
	byDisorder := map[string][]observation{}
	for rows.Next() {
		var (
			country, region, disorder string
			mean                      float64
		)
		if err := rows.Scan(&country, &region, &disorder, &mean); err != nil {
			return nil, fmt.Errorf("hotspot_classification scan: %w", err)
		}
		_ = region
		byDisorder[disorder] = append(byDisorder[disorder], observation{country, mean})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	type severity struct {
		measured int
		high     int
		elevated int
		low      int
	}
	byCountry := map[string]*severity{}
	for _, obs := range byDisorder {
		values := make([]float64, len(obs))
		for i, o := range obs {
			values[i] = o.mean
		}
		mean, err := stats.Mean(values)
		if err != nil {
			continue
		}
		stdDev, err := stats.StandardDeviationSample(values)
		if err != nil {
			continue
		}
		for _, o := range obs {
			s := byCountry[o.country]
			if s == nil {
				s = &severity{}
				byCountry[o.country] = s
			}
			s.measured++
			if stdDev == 0 {
				continue
			}
			z := (o.mean - mean) / stdDev
			if z > HighSeverityZ {
				s.high++
			}
			if z > ElevatedZ {
				s.elevated++
			}
			if z < LowZ {
				s.low++
			}
		}
	}

	countries := make([]string, 0, len(byCountry))
	for name := range byCountry {
		countries = append(countries, name)
	}
	sort.Strings(countries)

	rs := &ResultSet{
		Name: "hotspot_classification",
		Columns: []string{"country", "disorders_measured", "high_severity",
			"elevated", "low", "classification"},
	}
	for _, name := range countries {
		s := byCountry[name]
		if s.measured < MinDisordersPerCountry {
			continue
		}
		rs.Rows = append(rs.Rows, []any{name, int64(s.measured), int64(s.high),
			int64(s.elevated), int64(s.low), ClassifyHotspot(s.high, s.elevated, s.low)})
	}
	return rs, nil
}

// countrySimilarity correlates country time series for one disorder and
// keeps pairs above the similarity threshold; the threshold is what keeps
// the quadratic pair enumeration tractable. Requires the disorder parameter.
func countrySimilarity(ctx context.Context, db database.Driver, p Params) (*ResultSet, error) {
	if p.Disorder == "" {
		return nil, fmt.Errorf("country_similarity: disorder parameter is required")
	}

	query := `SELECT c.country_name, f.year, AVG(f.value)
		FROM mental_health_data f
		JOIN countries c ON c.country_id = f.country_id
		JOIN mental_disorders d ON d.disorder_id = f.disorder_id
		JOIN health_measures m ON m.measure_id = f.measure_id
		JOIN sex_categories s ON s.sex_id = f.sex_id
		WHERE m.measure_name = $1 AND s.sex_name = $2 AND d.disorder_name = $3
		GROUP BY c.country_name, f.year`

	rows, err := db.QueryContext(ctx, query, p.Measure, p.Sex, p.Disorder)
	if err != nil {
		return nil, fmt.Errorf("country_similarity: %w", err)
	}
	defer rows.Close()

	series := map[string]map[int64]float64{}
	for rows.Next() {
		var (
			country string
			year    int64
			mean    float64
		)
		if err := rows.Scan(&country, &year, &mean); err != nil {
			return nil, fmt.Errorf("country_similarity scan: %w", err)
		}
		if series[country] == nil {
			series[country] = map[int64]float64{}
		}
		series[country][year] = mean
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	countries := make([]string, 0, len(series))
	for name := range series {
		countries = append(countries, name)
	}
	sort.Strings(countries)

	rs := &ResultSet{
		Name:    "country_similarity",
		Columns: []string{"country_a", "country_b", "shared_years", "correlation"},
	}
	for i := 0; i < len(countries); i++ {
		for j := i + 1; j < len(countries); j++ {
			a, b := series[countries[i]], series[countries[j]]
			var xs, ys []float64
			years := make([]int64, 0, len(a))
			for year := range a {
				if _, ok := b[year]; ok {
					years = append(years, year)
				}
			}
			if len(years) < p.MinObservations {
				continue
			}
			sort.Slice(years, func(x, y int) bool { return years[x] < years[y] })
			for _, year := range years {
				xs = append(xs, a[year])
				ys = append(ys, b[year])
			}
			corr, err := stats.Pearson(xs, ys)
			if err != nil || corr < p.SimilarityThreshold {
				continue
			}
			rs.Rows = append(rs.Rows, []any{countries[i], countries[j], int64(len(years)), corr})
		}
	}

	sort.SliceStable(rs.Rows, func(i, j int) bool {
		return rs.Rows[i][3].(float64) > rs.Rows[j][3].(float64)
	})
	return rs, nil
}

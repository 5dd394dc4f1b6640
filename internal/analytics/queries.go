// Package analytics is the read-only query library over the normalized
// schema. Every query is a pure function from parameters to a tabular
// result set; groups that fall below their minimum-sample thresholds are
// omitted from results rather than reported as errors.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/database"
)

// ResultSet is a plain row set: ordered column names plus rows of values.
// Rendering is someone else's problem.
type ResultSet struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

const (
	DefaultMeasure = "DALYs (Disability-Adjusted Life Years)"
	DefaultSex     = "Both"
)

// Params carries the filters and thresholds shared by the query library.
// Zero values fall back to the defaults the original analysis used.
type Params struct {
	Measure  string
	Sex      string
	Disorder string

	BaselineYear int
	LatestYear   int

	MinYears            int
	MinObservations     int
	MinCountries        int
	SimilarityThreshold float64
}

func (p Params) withDefaults() Params {
	if p.Measure == "" {
		p.Measure = DefaultMeasure
	}
	if p.Sex == "" {
		p.Sex = DefaultSex
	}
	if p.BaselineYear == 0 {
		p.BaselineYear = 1990
	}
	if p.LatestYear == 0 {
		p.LatestYear = 2021
	}
	if p.MinYears == 0 {
		p.MinYears = 10
	}
	if p.MinObservations == 0 {
		p.MinObservations = 5
	}
	if p.MinCountries == 0 {
		p.MinCountries = 3
	}
	if p.SimilarityThreshold == 0 {
		p.SimilarityThreshold = 0.7
	}
	return p
}

// ParamsFromMap builds Params from CLI-style key=value pairs.
func ParamsFromMap(kv map[string]string) (Params, error) {
	var p Params
	for k, v := range kv {
		var err error
		switch k {
		case "measure":
			p.Measure = v
		case "sex":
			p.Sex = v
		case "disorder":
			p.Disorder = v
		case "baseline_year":
			p.BaselineYear, err = strconv.Atoi(v)
		case "latest_year":
			p.LatestYear, err = strconv.Atoi(v)
		case "min_years":
			p.MinYears, err = strconv.Atoi(v)
		case "min_observations":
			p.MinObservations, err = strconv.Atoi(v)
		case "min_countries":
			p.MinCountries, err = strconv.Atoi(v)
		case "similarity_threshold":
			p.SimilarityThreshold, err = strconv.ParseFloat(v, 64)
		default:
			return Params{}, fmt.Errorf("unknown query parameter %q", k)
		}
		if err != nil {
			return Params{}, fmt.Errorf("bad value for %s: %w", k, err)
		}
	}
	return p, nil
}

type QueryFunc func(ctx context.Context, db database.Driver, p Params) (*ResultSet, error)

var registry = map[string]QueryFunc{
	"yoy_growth":             yoyGrowth,
	"moving_averages":        movingAverages,
	"turning_points":         turningPoints,
	"trend_classification":   trendClassification,
	"country_ranking":        countryRanking,
	"regional_comparison":    regionalComparison,
	"hotspot_classification": hotspotClassification,
	"country_similarity":     countrySimilarity,
	"disorder_growth":        disorderGrowth,
	"age_group_trends":       ageGroupTrends,
	"data_quality":           dataQuality,
}

// Names lists the registered queries, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a registered query by name.
func Run(ctx context.Context, db database.Driver, name string, p Params) (*ResultSet, error) {
	q, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown query %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return q(ctx, db, p.withDefaults())
}

// yearlyMeansSQL aggregates facts to one mean per (disorder, year) for a
// measure and sex; the shared base of every temporal query.
const yearlyMeansSQL = `SELECT d.disorder_name AS disorder, f.year AS year, AVG(f.value) AS mean_value
	FROM mental_health_data f
	JOIN mental_disorders d ON d.disorder_id = f.disorder_id
	JOIN health_measures m ON m.measure_id = f.measure_id
	JOIN sex_categories s ON s.sex_id = f.sex_id
	WHERE m.measure_name = $1 AND s.sex_name = $2
	GROUP BY d.disorder_name, f.year`

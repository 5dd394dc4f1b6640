package storage

import (
	"strconv"
	"strings"
)

// Reference data for the fixed dimension enumerations. Countries and age
// groups beyond these lists are created on demand during a load; disorders,
// measures and sexes are closed sets.

type DisorderSeed struct {
	Name     string
	Category string
	ICDCode  string
}

var DisorderSeeds = []DisorderSeed{
	{"Depressive disorders", "Mood disorders", "F32-F33"},
	{"Anxiety disorders", "Anxiety disorders", "F40-F41"},
	{"Bipolar disorder", "Mood disorders", "F31"},
	{"Schizophrenia", "Psychotic disorders", "F20"},
	{"Eating disorders", "Behavioural syndromes", "F50"},
	{"Autism spectrum disorders", "Developmental disorders", "F84"},
	{"Attention-deficit/hyperactivity disorder", "Behavioural disorders", "F90"},
	{"Conduct disorder", "Behavioural disorders", "F91"},
	{"Idiopathic developmental intellectual disability", "Developmental disorders", "F70-F79"},
	{"Other mental disorders", "Other", "F99"},
}

type MeasureSeed struct {
	Name string
	Unit string
}

var MeasureSeeds = []MeasureSeed{
	{"Deaths", "count"},
	{"DALYs (Disability-Adjusted Life Years)", "years"},
	{"YLDs (Years Lived with Disability)", "years"},
	{"YLLs (Years of Life Lost)", "years"},
}

var SexSeeds = []string{"Male", "Female", "Both"}

// AgeGroupSeeds covers the standard 5-year bands the dataset reports.
func AgeGroupSeeds() []string {
	bands := make([]string, 0, 16)
	for start := 5; start <= 80; start += 5 {
		bands = append(bands, strconv.Itoa(start)+"-"+strconv.Itoa(start+4))
	}
	return bands
}

// ParseAgeBounds extracts the numeric start/end from an "A-B" band label.
func ParseAgeBounds(band string) (start, end int, ok bool) {
	lo, hi, found := strings.Cut(band, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || end < start {
		return 0, 0, false
	}
	return start, end, true
}

var regionByCountry = buildRegionIndex(map[string][]string{
	"Europe": {
		"United Kingdom", "Germany", "France", "Spain", "Italy", "Netherlands",
		"Poland", "Romania", "Greece", "Portugal", "Belgium", "Czech Republic",
		"Hungary", "Sweden", "Austria", "Belarus", "Switzerland", "Bulgaria",
		"Serbia", "Denmark", "Finland", "Slovakia", "Norway", "Ireland", "Croatia",
	},
	"Asia": {
		"China", "India", "Japan", "Indonesia", "Pakistan", "Bangladesh", "Vietnam",
		"Philippines", "Turkey", "Iran", "Thailand", "Myanmar", "South Korea",
		"Iraq", "Afghanistan", "Uzbekistan", "Malaysia", "Nepal", "Sri Lanka",
	},
	"Africa": {
		"Nigeria", "Ethiopia", "Egypt", "South Africa", "Kenya", "Uganda", "Algeria",
		"Sudan", "Morocco", "Angola", "Ghana", "Mozambique", "Madagascar", "Cameroon",
	},
	"Americas": {
		"United States", "Brazil", "Mexico", "Canada", "Argentina", "Colombia",
		"Peru", "Venezuela", "Chile", "Ecuador", "Guatemala", "Cuba", "Bolivia",
	},
})

func buildRegionIndex(regions map[string][]string) map[string]string {
	idx := make(map[string]string)
	for region, countries := range regions {
		for _, c := range countries {
			idx[c] = region
		}
	}
	return idx
}

// RegionOf classifies a country into a coarse region; everything not in the
// known lists lands in Other/Oceania.
func RegionOf(country string) string {
	if region, ok := regionByCountry[country]; ok {
		return region
	}
	return "Other/Oceania"
}

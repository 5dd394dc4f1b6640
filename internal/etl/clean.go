// Package etl turns raw wide-format survey rows into cleaned records ready
// for normalization. The transform is pure and idempotent: re-cleaning an
// already cleaned record is a no-op.
package etl

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	MinYear = 1980
	MaxYear = 2030

	ageSuffix = " years"
)

// RawRecord is one wide-format source row. Numeric fields stay textual until
// Clean validates them; surrogate-key columns are dropped before this point.
type RawRecord struct {
	MeasureName  string
	LocationName string
	SexName      string
	AgeName      string
	CauseName    string
	MetricName   string
	Year         string
	Val          string
	Upper        string
	Lower        string
}

// CleanRecord is the normalized flat row produced by Clean. Metric survives
// cleaning but is not carried into the fact table.
type CleanRecord struct {
	Measure         string
	Country         string
	Sex             string
	AgeGroup        string
	Disorder        string
	Metric          string
	Year            int
	Value           float64
	ValueUpperBound float64
	ValueLowerBound float64
}

// MalformedRecordError reports a source row that failed validation. The
// record is skipped and counted, never coerced.
type MalformedRecordError struct {
	Country  string
	Disorder string
	Year     string
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record (country=%q disorder=%q year=%q): %s",
		e.Country, e.Disorder, e.Year, e.Reason)
}

func malformed(r RawRecord, reason string) error {
	return &MalformedRecordError{
		Country:  r.LocationName,
		Disorder: r.CauseName,
		Year:     r.Year,
		Reason:   reason,
	}
}

// Clean applies the field renames, strips the " years" suffix from age-group
// labels and validates the numeric fields. Inputs already carrying cleaned
// values pass through unchanged.
func Clean(r RawRecord) (CleanRecord, error) {
	for field, v := range map[string]string{
		"measure":  r.MeasureName,
		"country":  r.LocationName,
		"sex":      r.SexName,
		"age":      r.AgeName,
		"disorder": r.CauseName,
	} {
		if strings.TrimSpace(v) == "" {
			return CleanRecord{}, malformed(r, "missing "+field+" name")
		}
	}

	year, err := strconv.Atoi(strings.TrimSpace(r.Year))
	if err != nil {
		return CleanRecord{}, malformed(r, "year is not an integer")
	}
	if year < MinYear || year > MaxYear {
		return CleanRecord{}, malformed(r, fmt.Sprintf("year %d outside %d-%d", year, MinYear, MaxYear))
	}

	value, err := parseFloat(r.Val)
	if err != nil {
		return CleanRecord{}, malformed(r, "value is not numeric")
	}
	upper, err := parseFloat(r.Upper)
	if err != nil {
		return CleanRecord{}, malformed(r, "upper bound is not numeric")
	}
	lower, err := parseFloat(r.Lower)
	if err != nil {
		return CleanRecord{}, malformed(r, "lower bound is not numeric")
	}

	if value < 0 {
		return CleanRecord{}, malformed(r, "negative value")
	}
	if upper < lower {
		return CleanRecord{}, malformed(r, "upper bound below lower bound")
	}

	return CleanRecord{
		Measure:         strings.TrimSpace(r.MeasureName),
		Country:         strings.TrimSpace(r.LocationName),
		Sex:             strings.TrimSpace(r.SexName),
		AgeGroup:        strings.TrimSuffix(strings.TrimSpace(r.AgeName), ageSuffix),
		Disorder:        strings.TrimSpace(r.CauseName),
		Metric:          strings.TrimSpace(r.MetricName),
		Year:            year,
		Value:           value,
		ValueUpperBound: upper,
		ValueLowerBound: lower,
	}, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

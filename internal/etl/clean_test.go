package etl

import (
	"errors"
	"strings"
	"testing"
)

func validRaw() RawRecord {
	return RawRecord{
		MeasureName:  "DALYs (Disability-Adjusted Life Years)",
		LocationName: "Kenya",
		SexName:      "Both",
		AgeName:      "15-19 years",
		CauseName:    "Anxiety disorders",
		MetricName:   "Rate",
		Year:         "2019",
		Val:          "523.4",
		Upper:        "610.2",
		Lower:        "440.8",
	}
}

func TestCleanRenamesAndParses(t *testing.T) {
	got, err := Clean(validRaw())
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}

	if got.Country != "Kenya" {
		t.Errorf("Country = %q, want Kenya", got.Country)
	}
	if got.Disorder != "Anxiety disorders" {
		t.Errorf("Disorder = %q, want Anxiety disorders", got.Disorder)
	}
	if got.AgeGroup != "15-19" {
		t.Errorf("AgeGroup = %q, want 15-19 (suffix stripped)", got.AgeGroup)
	}
	if got.Year != 2019 {
		t.Errorf("Year = %d, want 2019", got.Year)
	}
	if got.Value != 523.4 || got.ValueUpperBound != 610.2 || got.ValueLowerBound != 440.8 {
		t.Errorf("values = %v/%v/%v, want 523.4/610.2/440.8",
			got.Value, got.ValueUpperBound, got.ValueLowerBound)
	}
}

func TestCleanIdempotent(t *testing.T) {
	// A record whose age label already lacks the suffix cleans to itself.
	raw := validRaw()
	raw.AgeName = "15-19"

	first, err := Clean(raw)
	if err != nil {
		t.Fatalf("first Clean: %v", err)
	}
	if first.AgeGroup != "15-19" {
		t.Fatalf("AgeGroup = %q, want 15-19", first.AgeGroup)
	}

	second, err := Clean(raw)
	if err != nil {
		t.Fatalf("second Clean: %v", err)
	}
	if first != second {
		t.Errorf("Clean is not idempotent: %+v vs %+v", first, second)
	}
}

func TestCleanRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawRecord)
		reason string
	}{
		{"missing country", func(r *RawRecord) { r.LocationName = "  " }, "missing country name"},
		{"missing disorder", func(r *RawRecord) { r.CauseName = "" }, "missing disorder name"},
		{"missing measure", func(r *RawRecord) { r.MeasureName = "" }, "missing measure name"},
		{"missing sex", func(r *RawRecord) { r.SexName = "" }, "missing sex name"},
		{"missing age", func(r *RawRecord) { r.AgeName = "" }, "missing age name"},
		{"non-integer year", func(r *RawRecord) { r.Year = "20x9" }, "year is not an integer"},
		{"year too early", func(r *RawRecord) { r.Year = "1979" }, "outside"},
		{"year too late", func(r *RawRecord) { r.Year = "2031" }, "outside"},
		{"non-numeric value", func(r *RawRecord) { r.Val = "n/a" }, "value is not numeric"},
		{"non-numeric upper", func(r *RawRecord) { r.Upper = "" }, "upper bound is not numeric"},
		{"non-numeric lower", func(r *RawRecord) { r.Lower = "?" }, "lower bound is not numeric"},
		{"negative value", func(r *RawRecord) { r.Val = "-0.5" }, "negative value"},
		{"inverted bounds", func(r *RawRecord) { r.Upper = "1"; r.Lower = "2" }, "upper bound below lower bound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			_, err := Clean(raw)
			if err == nil {
				t.Fatal("Clean accepted a malformed record")
			}
			var mre *MalformedRecordError
			if !errors.As(err, &mre) {
				t.Fatalf("error is %T, want *MalformedRecordError", err)
			}
			if !strings.Contains(mre.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to contain %q", mre.Reason, tt.reason)
			}
		})
	}
}

func TestCleanBoundaryYears(t *testing.T) {
	for _, year := range []string{"1980", "2030"} {
		raw := validRaw()
		raw.Year = year
		if _, err := Clean(raw); err != nil {
			t.Errorf("year %s rejected: %v", year, err)
		}
	}
}

func TestCleanZeroValueAccepted(t *testing.T) {
	raw := validRaw()
	raw.Val = "0"
	raw.Lower = "0"
	raw.Upper = "0"
	if _, err := Clean(raw); err != nil {
		t.Errorf("zero value rejected: %v", err)
	}
}

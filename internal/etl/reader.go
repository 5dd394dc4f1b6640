package etl

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Header aliases: the reader accepts both the raw export headers and the
// already-cleaned ones, so a cleaned sample file loads the same way the raw
// dump does. Surrogate-id columns (measure_id, location_id, ...) are simply
// never looked up, which drops them.
var headerAliases = map[string][]string{
	"measure":  {"measure_name", "measure"},
	"country":  {"location_name", "country"},
	"sex":      {"sex_name", "sex"},
	"age":      {"age_name", "age_group"},
	"disorder": {"cause_name", "disorder"},
	"metric":   {"metric_name", "metric"},
	"year":     {"year"},
	"value":    {"val", "value"},
	"upper":    {"upper", "value_upper_bound"},
	"lower":    {"lower", "value_lower_bound"},
}

// Reader streams raw records out of a CSV file one row at a time, so inputs
// of any size never need to fit in memory.
type Reader struct {
	csv  *csv.Reader
	cols map[string]int
	row  int
}

func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	cols := make(map[string]int, len(headerAliases))
	for field, aliases := range headerAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				cols[field] = i
				break
			}
		}
		if _, ok := cols[field]; !ok {
			return nil, fmt.Errorf("csv header missing column for %s (tried %v)", field, aliases)
		}
	}

	return &Reader{csv: cr, cols: cols, row: 1}, nil
}

// Row returns the 1-based index of the last record read (the header is row 1).
func (r *Reader) Row() int {
	return r.row
}

// Next returns the next raw record, or io.EOF when the input is exhausted.
func (r *Reader) Next() (RawRecord, error) {
	rec, err := r.csv.Read()
	if err != nil {
		return RawRecord{}, err
	}
	r.row++

	get := func(field string) string {
		i := r.cols[field]
		if i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	return RawRecord{
		MeasureName:  get("measure"),
		LocationName: get("country"),
		SexName:      get("sex"),
		AgeName:      get("age"),
		CauseName:    get("disorder"),
		MetricName:   get("metric"),
		Year:         get("year"),
		Val:          get("value"),
		Upper:        get("upper"),
		Lower:        get("lower"),
	}, nil
}

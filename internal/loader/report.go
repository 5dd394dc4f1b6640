package loader

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"
)

// RowError is one recorded failure, identified by its source row range.
type RowError struct {
	RowStart int    `json:"row_start"`
	RowEnd   int    `json:"row_end"`
	Reason   string `json:"reason"`
}

// Report summarises a load run. Row-level problems are counted and sampled
// here instead of aborting the load.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	Total   int `json:"total_records"`
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped_malformed"`
	Failed  int `json:"failed_rows"`

	Chunks  int `json:"chunks_committed"`
	Retries int `json:"chunk_retries"`

	CommitP50Ms float64 `json:"commit_p50_ms"`
	CommitP95Ms float64 `json:"commit_p95_ms"`
	CommitP99Ms float64 `json:"commit_p99_ms"`

	DurationSeconds float64 `json:"duration_seconds"`

	ErrorExamples []RowError `json:"error_examples,omitempty"`

	maxExamples int
	commits     *hdrhistogram.Histogram
}

func newReport(maxExamples int) *Report {
	return &Report{
		RunID:       uuid.New().String(),
		StartedAt:   time.Now().UTC(),
		maxExamples: maxExamples,
		// commit latencies in microseconds, up to one hour
		commits: hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3),
	}
}

func (r *Report) addError(rowStart, rowEnd int, reason string) {
	if len(r.ErrorExamples) >= r.maxExamples {
		return
	}
	r.ErrorExamples = append(r.ErrorExamples, RowError{RowStart: rowStart, RowEnd: rowEnd, Reason: reason})
}

func (r *Report) observeCommit(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	_ = r.commits.RecordValue(us)
}

func (r *Report) finalize(elapsed time.Duration) {
	r.DurationSeconds = elapsed.Seconds()
	if r.commits.TotalCount() > 0 {
		r.CommitP50Ms = float64(r.commits.ValueAtQuantile(50)) / 1000
		r.CommitP95Ms = float64(r.commits.ValueAtQuantile(95)) / 1000
		r.CommitP99Ms = float64(r.commits.ValueAtQuantile(99)) / 1000
	}
}

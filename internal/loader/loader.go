// Package loader streams cleaned records into the star schema in fixed-size
// chunks. Each chunk commits as one transaction; a failed chunk is bisected
// until the offending rows are isolated and reported.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/etl"
	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/storage"
)

const (
	DefaultChunkSize        = 10000
	DefaultMaxErrorExamples = 10
)

type Options struct {
	ChunkSize        int
	MaxErrorExamples int
}

type Loader struct {
	store     *storage.Store
	chunkSize int
	maxErrors int
	log       zerolog.Logger
}

func New(store *storage.Store, opts Options, log zerolog.Logger) *Loader {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxErrorExamples <= 0 {
		opts.MaxErrorExamples = DefaultMaxErrorExamples
	}
	return &Loader{
		store:     store,
		chunkSize: opts.ChunkSize,
		maxErrors: opts.MaxErrorExamples,
		log:       log.With().Str("component", "loader").Logger(),
	}
}

// RecordSource yields cleaned records with their source row number. It
// returns io.EOF when exhausted; a *etl.MalformedRecordError marks a bad row
// that should be skipped, any other error aborts the load.
type RecordSource func() (etl.CleanRecord, int, error)

// LoadCSV cleans and loads a raw or pre-cleaned CSV stream.
func (l *Loader) LoadCSV(ctx context.Context, r io.Reader) (*Report, error) {
	rd, err := etl.NewReader(r)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, func() (etl.CleanRecord, int, error) {
		raw, err := rd.Next()
		if err != nil {
			return etl.CleanRecord{}, rd.Row(), err
		}
		rec, err := etl.Clean(raw)
		return rec, rd.Row(), err
	})
}

type pendingRow struct {
	fact storage.FactRow
	src  int
}

// Load drains the source chunk by chunk and refreshes the materialized
// summaries once the fact table has changed.
func (l *Loader) Load(ctx context.Context, next RecordSource) (*Report, error) {
	report := newReport(l.maxErrors)
	start := time.Now()
	cache := newDimCache()

	l.log.Info().Str("run_id", report.RunID).Int("chunk_size", l.chunkSize).Msg("load started")

	chunk := make([]pendingRow, 0, l.chunkSize)
	for {
		rec, row, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		var bad *etl.MalformedRecordError
		if errors.As(err, &bad) {
			report.Total++
			report.Skipped++
			report.addError(row, row, bad.Error())
			l.log.Warn().Int("row", row).Str("country", bad.Country).
				Str("disorder", bad.Disorder).Str("year", bad.Year).
				Str("reason", bad.Reason).Msg("malformed record skipped")
			continue
		}
		if err != nil {
			return report, fmt.Errorf("read record at row %d: %w", row, err)
		}

		report.Total++
		fact, err := l.resolve(ctx, rec, cache)
		if err != nil {
			var ref *storage.ReferentialError
			if errors.As(err, &ref) {
				report.Failed++
				report.addError(row, row, ref.Error())
				l.log.Warn().Int("row", row).Str("dimension", ref.Dimension).
					Str("name", ref.Name).Msg("unresolvable dimension, row dropped")
				continue
			}
			return report, err
		}

		chunk = append(chunk, pendingRow{fact: fact, src: row})
		if len(chunk) >= l.chunkSize {
			l.commitChunk(ctx, chunk, report)
			chunk = chunk[:0]
			if report.Chunks%10 == 0 {
				l.log.Info().Int("chunks", report.Chunks).Int("loaded", report.Loaded).Msg("load progress")
			}
		}
	}
	l.commitChunk(ctx, chunk, report)

	if report.Loaded > 0 {
		if err := l.store.RefreshAllMaterialized(ctx); err != nil {
			return report, err
		}
	}

	report.finalize(time.Since(start))
	l.log.Info().Str("run_id", report.RunID).Int("total", report.Total).
		Int("loaded", report.Loaded).Int("skipped", report.Skipped).
		Int("failed", report.Failed).Msg("load finished")
	return report, nil
}

type dimCache struct {
	countries map[string]int64
	disorders map[string]int64
	measures  map[string]int64
	ageGroups map[string]int64
	sexes     map[string]int64
}

func newDimCache() *dimCache {
	return &dimCache{
		countries: make(map[string]int64),
		disorders: make(map[string]int64),
		measures:  make(map[string]int64),
		ageGroups: make(map[string]int64),
		sexes:     make(map[string]int64),
	}
}

func cached(ctx context.Context, m map[string]int64, name string,
	fetch func(context.Context, string) (int64, error)) (int64, error) {
	if id, ok := m[name]; ok {
		return id, nil
	}
	id, err := fetch(ctx, name)
	if err != nil {
		return 0, err
	}
	m[name] = id
	return id, nil
}

// resolve maps a cleaned record onto dimension keys. Countries and age
// groups are created on first sight; disorders, measures and sexes must
// already exist. The metric column is dropped here, as in the source schema.
func (l *Loader) resolve(ctx context.Context, rec etl.CleanRecord, c *dimCache) (storage.FactRow, error) {
	countryID, err := cached(ctx, c.countries, rec.Country, l.store.UpsertCountry)
	if err != nil {
		return storage.FactRow{}, err
	}
	disorderID, err := cached(ctx, c.disorders, rec.Disorder, l.store.ResolveDisorder)
	if err != nil {
		return storage.FactRow{}, err
	}
	measureID, err := cached(ctx, c.measures, rec.Measure, l.store.ResolveMeasure)
	if err != nil {
		return storage.FactRow{}, err
	}
	ageGroupID, err := cached(ctx, c.ageGroups, rec.AgeGroup, l.store.UpsertAgeGroup)
	if err != nil {
		return storage.FactRow{}, err
	}
	sexID, err := cached(ctx, c.sexes, rec.Sex, l.store.ResolveSex)
	if err != nil {
		return storage.FactRow{}, err
	}
	return storage.FactRow{
		CountryID:  countryID,
		DisorderID: disorderID,
		MeasureID:  measureID,
		AgeGroupID: ageGroupID,
		SexID:      sexID,
		Year:       rec.Year,
		Value:      rec.Value,
		UpperBound: rec.ValueUpperBound,
		LowerBound: rec.ValueLowerBound,
	}, nil
}

// commitChunk writes one chunk atomically. On failure the chunk is split and
// retried so a single bad row only ever rolls back itself.
func (l *Loader) commitChunk(ctx context.Context, rows []pendingRow, report *Report) {
	if len(rows) == 0 {
		return
	}
	start := time.Now()
	err := l.store.Driver().ExecuteTx(ctx, func(ctx context.Context) error {
		for _, pr := range rows {
			if err := l.store.InsertFact(ctx, pr.fact); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		report.Loaded += len(rows)
		report.Chunks++
		report.observeCommit(time.Since(start))
		return
	}

	if len(rows) == 1 {
		report.Failed++
		report.addError(rows[0].src, rows[0].src, err.Error())
		l.log.Warn().Int("row", rows[0].src).Err(err).Msg("fact row rejected")
		return
	}

	report.Retries++
	l.log.Warn().Int("rows", len(rows)).
		Int("row_start", rows[0].src).Int("row_end", rows[len(rows)-1].src).
		Err(err).Msg("chunk failed, retrying at half size")
	mid := len(rows) / 2
	l.commitChunk(ctx, rows[:mid], report)
	l.commitChunk(ctx, rows[mid:], report)
}

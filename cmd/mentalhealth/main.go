package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/analytics"
	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/config"
	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/database"
	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/loader"
	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/report"
	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/storage"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	cmd := flag.String("cmd", "query", "command to run (setup, load, query, report, refresh)")
	dbType := flag.String("db", "postgres", "database engine (postgres, mysql, or sqlite)")
	configPath := flag.String("config", "", "path to yaml config (defaults apply when omitted)")
	csvPath := flag.String("csv", "", "path to the source csv for the load command")
	chunkSize := flag.Int("chunk-size", 0, "rows per load transaction (0 uses the configured value)")
	queryName := flag.String("query", "", "analysis query to run (empty lists the available queries)")
	format := flag.String("format", "table", "output format (table, markdown, csv, or json)")
	outPath := flag.String("out", "", "write output to a file instead of stdout")

	params := map[string]string{}
	flag.Func("param", "query parameter as key=value (repeatable)", func(s string) error {
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", s)
		}
		params[strings.TrimSpace(k)] = strings.TrimSpace(v)
		return nil
	})

	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Error().Err(err).Str("path", *configPath).Msg("failed to load config")
		exitCode = 1
		return
	}

	dbs := map[string]database.Driver{
		"postgres": &database.PostgresDriver{},
		"mysql":    &database.MySQLDriver{},
		"sqlite":   &database.SQLiteDriver{},
	}

	driver, ok := dbs[*dbType]
	if !ok {
		log.Error().Str("db", *dbType).Msg("unsupported database engine")
		exitCode = 1
		return
	}

	dsn := cfg.DSN(*dbType)
	if err := driver.Connect(dsn); err != nil {
		log.Error().Err(err).Str("db", *dbType).Msg("failed to connect")
		exitCode = 1
		return
	}
	defer driver.Close()

	ctx := context.Background()
	store := storage.New(driver, log)

	switch *cmd {
	case "setup":
		if err := store.Init(ctx); err != nil {
			log.Error().Err(err).Msg("schema setup failed")
			exitCode = 1
			return
		}
		log.Info().Str("db", *dbType).Msg("schema ready")

	case "load":
		if *csvPath == "" {
			log.Error().Msg("load requires -csv")
			exitCode = 1
			return
		}
		if err := store.Init(ctx); err != nil {
			log.Error().Err(err).Msg("schema setup failed")
			exitCode = 1
			return
		}

		f, err := os.Open(*csvPath)
		if err != nil {
			log.Error().Err(err).Str("path", *csvPath).Msg("failed to open csv")
			exitCode = 1
			return
		}
		defer f.Close()

		opts := loader.Options{
			ChunkSize:        cfg.Load.ChunkSize,
			MaxErrorExamples: cfg.Load.MaxErrorExamples,
		}
		if *chunkSize > 0 {
			opts.ChunkSize = *chunkSize
		}

		rep, err := loader.New(store, opts, log).LoadCSV(ctx, f)
		if err != nil {
			log.Error().Err(err).Msg("load failed")
			exitCode = 1
			return
		}
		if err := writeJSON(*outPath, rep); err != nil {
			log.Error().Err(err).Msg("failed to write load report")
			exitCode = 1
			return
		}

	case "refresh":
		if err := store.RefreshAllMaterialized(ctx); err != nil {
			log.Error().Err(err).Msg("summary refresh failed")
			exitCode = 1
			return
		}
		log.Info().Msg("summary tables refreshed")

	case "query":
		if *queryName == "" {
			fmt.Println("available queries:")
			for _, name := range analytics.Names() {
				fmt.Printf("  %s\n", name)
			}
			return
		}
		p, err := analytics.ParamsFromMap(params)
		if err != nil {
			log.Error().Err(err).Msg("invalid query parameter")
			exitCode = 1
			return
		}
		overrideAnalysisDefaults(&p, cfg)

		rs, err := analytics.Run(ctx, driver, *queryName, p)
		if err != nil {
			log.Error().Err(err).Str("query", *queryName).Msg("query failed")
			exitCode = 1
			return
		}
		if err := emit(*outPath, *format, rs); err != nil {
			log.Error().Err(err).Msg("failed to write result")
			exitCode = 1
			return
		}

	case "report":
		p, err := analytics.ParamsFromMap(params)
		if err != nil {
			log.Error().Err(err).Msg("invalid query parameter")
			exitCode = 1
			return
		}
		overrideAnalysisDefaults(&p, cfg)

		out, close, err := openOut(*outPath)
		if err != nil {
			log.Error().Err(err).Msg("failed to open output")
			exitCode = 1
			return
		}
		defer close()

		for _, name := range analytics.Names() {
			rs, err := analytics.Run(ctx, driver, name, p)
			if err != nil {
				log.Warn().Err(err).Str("query", name).Msg("skipping query")
				continue
			}
			fmt.Fprintf(out, "\n## %s\n\n", name)
			report.RenderMarkdown(out, rs)
		}

	default:
		log.Error().Str("cmd", *cmd).Msg("unsupported command")
		exitCode = 1
	}
}

func overrideAnalysisDefaults(p *analytics.Params, cfg *config.Config) {
	if p.Measure == "" && cfg.Analysis.DefaultMeasure != "" {
		p.Measure = cfg.Analysis.DefaultMeasure
	}
	if p.Sex == "" && cfg.Analysis.DefaultSex != "" {
		p.Sex = cfg.Analysis.DefaultSex
	}
	if p.MinYears == 0 && cfg.Analysis.MinYears > 0 {
		p.MinYears = cfg.Analysis.MinYears
	}
	if p.MinObservations == 0 && cfg.Analysis.MinObservations > 0 {
		p.MinObservations = cfg.Analysis.MinObservations
	}
	if p.SimilarityThreshold == 0 && cfg.Analysis.SimilarityThreshold > 0 {
		p.SimilarityThreshold = cfg.Analysis.SimilarityThreshold
	}
}

func openOut(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func writeJSON(path string, v any) error {
	out, close, err := openOut(path)
	if err != nil {
		return err
	}
	defer close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func emit(path, format string, rs *analytics.ResultSet) error {
	out, close, err := openOut(path)
	if err != nil {
		return err
	}
	defer close()

	switch format {
	case "table":
		report.RenderTable(out, rs)
	case "markdown":
		report.RenderMarkdown(out, rs)
	case "csv":
		return report.WriteCSV(out, rs)
	case "json":
		return report.WriteJSON(out, rs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	return nil
}

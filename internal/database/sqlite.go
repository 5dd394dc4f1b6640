package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

type SQLiteDriver struct {
	sqlDriver
}

func (sd *SQLiteDriver) Connect(dsn string) error {
	if dsn == "" {
		dsn = "mental_health.db"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	// Foreign keys are off by default in SQLite; the fact table relies on them.
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn = fmt.Sprintf("%s%s_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn, sep)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	// A single connection keeps in-memory databases coherent and serializes
	// the write path, which is all the single-writer load model needs.
	db.SetMaxOpenConns(1)
	return sd.ready(db)
}

func (sd *SQLiteDriver) Name() string {
	return "sqlite"
}

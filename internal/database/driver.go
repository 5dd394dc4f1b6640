package database

import (
	"context"
	"database/sql"
	"time"
)

// Rows is the cursor shared by all drivers. *sql.Rows satisfies it.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

type Row interface {
	Scan(dest ...any) error
}

// Driver abstracts the SQL engines the analysis can run against.
// Queries are written with $1-style placeholders; drivers whose engine
// expects a different style rebind them internally.
type Driver interface {
	Connect(dsn string) error
	Close() error
	Name() string
	ExecuteTx(ctx context.Context, txFunc func(ctx context.Context) error) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) Row
}

type txKey struct{}

// WithTx returns a context carrying an open transaction. Exec and Query
// calls made with it run inside that transaction.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// sqlDriver holds the plumbing common to every database/sql backed engine.
type sqlDriver struct {
	db     *sql.DB
	rebind func(string) string
}

func (d *sqlDriver) ready(db *sql.DB) error {
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	d.db = db
	return nil
}

func (d *sqlDriver) Close() error {
	return d.db.Close()
}

// DB exposes the underlying pool for integration tests.
func (d *sqlDriver) DB() *sql.DB { return d.db }

func (d *sqlDriver) ExecuteTx(ctx context.Context, txFunc func(ctx context.Context) error) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // re-panic after rollback
		} else if err != nil {
			tx.Rollback() // err is non-nil; don't change it
		} else {
			err = tx.Commit() // err is nil; if Commit returns error, update err
		}
	}()

	err = txFunc(WithTx(ctx, tx))
	return err
}

func (d *sqlDriver) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if d.rebind != nil {
		query = d.rebind(query)
	}
	if tx, ok := txFrom(ctx); ok {
		return tx.ExecContext(ctx, query, args...)
	}
	return d.db.ExecContext(ctx, query, args...)
}

func (d *sqlDriver) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if d.rebind != nil {
		query = d.rebind(query)
	}
	if tx, ok := txFrom(ctx); ok {
		return tx.QueryContext(ctx, query, args...)
	}
	return d.db.QueryContext(ctx, query, args...)
}

func (d *sqlDriver) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	if d.rebind != nil {
		query = d.rebind(query)
	}
	if tx, ok := txFrom(ctx); ok {
		return tx.QueryRowContext(ctx, query, args...)
	}
	return d.db.QueryRowContext(ctx, query, args...)
}

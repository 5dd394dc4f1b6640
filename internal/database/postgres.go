package database

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

type PostgresDriver struct {
	sqlDriver
}

func (pd *PostgresDriver) Connect(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(25)
	return pd.ready(db)
}

func (pd *PostgresDriver) Name() string {
	return "postgres"
}

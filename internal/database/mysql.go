package database

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLDriver struct {
	sqlDriver
}

func (md *MySQLDriver) Connect(dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(25)
	md.rebind = rebindQuestion
	return md.ready(db)
}

func (md *MySQLDriver) Name() string {
	return "mysql"
}

// rebindQuestion rewrites $1-style placeholders to the ? form MySQL expects.
// Queries never reuse a placeholder, so positional order is preserved.
func rebindQuestion(query string) string {
	out := make([]byte, 0, len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			out = append(out, '?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

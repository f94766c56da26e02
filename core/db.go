package core

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DBExecutor runs queries; *sqlx.DB and *sqlx.Tx both qualify.
type DBExecutor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// DB is a DBExecutor able to open transactions, for the repositories writing several tables at once.
type DB interface {
	DBExecutor
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// DBOrdering is one `ORDER BY` term.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}

// ParseOrdering reads a comma separated list of fields, descending when prefixed with `-`
// (eg: `last_name,-created_at`). Blank fields and fields rejected by valid are dropped.
func ParseOrdering(raw string, valid func(string) bool) []DBOrdering {
	var orderings []DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || !valid(field) {
			continue
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !desc})
	}
	return orderings
}

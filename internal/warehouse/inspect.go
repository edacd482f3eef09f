package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Open returns a Snowflake handle for creds. The connection is established lazily.
func Open(creds Credentials) (*sql.DB, error) {
	dsn, err := creds.DSN()
	if err != nil {
		return nil, err
	}
	return sql.Open(DriverName, dsn)
}

// Inspector lists warehouse objects for the inspect command.
type Inspector struct {
	Log *log.Logger
}

// ListDatabases returns the names from SHOW DATABASES.
func (i *Inspector) ListDatabases(ctx context.Context, q Querier) []string {
	return i.listNames(ctx, q, "SHOW DATABASES")
}

// ListTablesInDatabase returns the table names in database.
func (i *Inspector) ListTablesInDatabase(ctx context.Context, q Querier, database string) []string {
	return i.listNames(ctx, q, fmt.Sprintf("SHOW TABLES IN DATABASE %s", quoteIdentifier(database)))
}

// listNames runs a SHOW query and collects the name column.
//
// A failed query is logged and yields an empty list, indistinguishable from a
// query with no rows. Callers that need to tell the two apart must query
// directly.
func (i *Inspector) listNames(ctx context.Context, q Querier, query string) []string {
	i.logf("Executing query: %s", query)

	names, err := queryNames(ctx, q, query)
	if err != nil {
		i.logf("ERROR: %s: %v", query, err)
		return []string{}
	}

	i.logf("Query returned %d rows", len(names))
	return names
}

func queryNames(ctx context.Context, q Querier, query string) ([]string, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	nameIdx := nameColumn(cols)

	vals := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for j := range vals {
		dest[j] = &vals[j]
	}

	names := []string{}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if nameIdx >= 0 {
			names = append(names, vals[nameIdx].String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// nameColumn finds the "name" column. SHOW output puts it second, after created_on.
func nameColumn(cols []string) int {
	for j, c := range cols {
		if strings.EqualFold(c, "name") {
			return j
		}
	}
	switch {
	case len(cols) > 1:
		return 1
	case len(cols) == 1:
		return 0
	default:
		return -1
	}
}

// quoteIdentifier double-quotes name for use as a Snowflake identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (i *Inspector) logf(format string, args ...any) {
	if i.Log != nil {
		i.Log.Printf(format, args...)
	}
}

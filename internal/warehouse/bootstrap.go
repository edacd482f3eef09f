package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
)

// DriverName is the database/sql driver registered by gosnowflake.
const DriverName = "snowflake"

// Setup stages reported in SetupError.
const (
	StageValidate  = "validate"
	StageConnect   = "connect"
	StageProvision = "provision"
)

// SetupError reports a bootstrap failure. It is distinct from conversation errors.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("warehouse setup failed (%s): %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// ErrInvalidIdentifier is wrapped when an object name is not a plain identifier.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

func validIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%s %q: %w", kind, name, ErrInvalidIdentifier)
	}
	return nil
}

// Bootstrapper creates the warehouse, database, schema and table if they do not exist.
type Bootstrapper struct {
	// Open opens a database handle. Defaults to sql.Open.
	Open func(driverName, dsn string) (*sql.DB, error)

	// Table is created in Database.Schema.
	Table string

	Log *log.Logger
}

// NewBootstrapper creates a bootstrapper for table using the Snowflake driver.
func NewBootstrapper(table string, logger *log.Logger) *Bootstrapper {
	return &Bootstrapper{Open: sql.Open, Table: table, Log: logger}
}

// Statements returns the provisioning DDL in execution order. Every
// statement is a no-op when the object already exists.
func (b *Bootstrapper) Statements(creds Credentials) []string {
	qualifiedSchema := creds.Database + "." + creds.Schema
	return []string{
		fmt.Sprintf("CREATE WAREHOUSE IF NOT EXISTS %s WITH WAREHOUSE_SIZE = 'XSMALL' AUTO_SUSPEND = 60 AUTO_RESUME = TRUE", creds.Warehouse),
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", creds.Database),
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", qualifiedSchema),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (ID NUMBER AUTOINCREMENT, RUN_ID STRING, PAYLOAD VARIANT, CREATED_AT TIMESTAMP_NTZ DEFAULT CURRENT_TIMESTAMP())", qualifiedSchema, b.Table),
	}
}

// Bootstrap opens one connection, runs the provisioning statements and
// releases the connection on every path. All failures are *SetupError.
func (b *Bootstrapper) Bootstrap(ctx context.Context, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return &SetupError{Stage: StageValidate, Err: err}
	}
	for _, id := range []struct{ kind, name string }{
		{"warehouse", creds.Warehouse},
		{"database", creds.Database},
		{"schema", creds.Schema},
		{"table", b.Table},
	} {
		if err := validIdentifier(id.kind, id.name); err != nil {
			return &SetupError{Stage: StageValidate, Err: err}
		}
	}

	dsn, err := creds.DSN()
	if err != nil {
		return &SetupError{Stage: StageValidate, Err: err}
	}

	open := b.Open
	if open == nil {
		open = sql.Open
	}
	db, err := open(DriverName, dsn)
	if err != nil {
		return &SetupError{Stage: StageConnect, Err: err}
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return &SetupError{Stage: StageConnect, Err: fmt.Errorf("connecting to account %s: %w", creds.Account, err)}
	}
	defer conn.Close()

	for _, stmt := range b.Statements(creds) {
		b.logf("Executing query: %s", stmt)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return &SetupError{Stage: StageProvision, Err: fmt.Errorf("%s: %w", stmt, err)}
		}
	}

	b.logf("Warehouse objects ready: %s.%s.%s", creds.Database, creds.Schema, b.Table)
	return nil
}

func (b *Bootstrapper) logf(format string, args ...any) {
	if b.Log != nil {
		b.Log.Printf(format, args...)
	}
}

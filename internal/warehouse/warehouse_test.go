package warehouse

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/agentcrew/internal/config"
)

func testCreds() Credentials {
	return Credentials{
		Account:   "xy12345.us-east-1",
		User:      "alice",
		Password:  "s3cret-pw",
		Role:      "SYSADMIN",
		Warehouse: "COMPUTE_WH",
		Database:  "AGENTCREW_DB",
		Schema:    "PUBLIC",
	}
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	return db, mock
}

func mockBootstrapper(db *sql.DB, buf *bytes.Buffer) *Bootstrapper {
	return &Bootstrapper{
		Open: func(driverName, dsn string) (*sql.DB, error) {
			return db, nil
		},
		Table: "PROJECT_DATA",
		Log:   log.New(buf, "", 0),
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	env := map[string]string{
		EnvAccount:  " xy12345 ",
		EnvUser:     "alice",
		EnvPassword: "pw",
		EnvSchema:   "ANALYTICS",
	}
	creds := CredentialsFromEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "xy12345", creds.Account)
	assert.Equal(t, "ANALYTICS", creds.Schema)
	assert.Empty(t, creds.Warehouse)

	filled := creds.WithDefaults(config.DefaultConfig().Warehouse)
	assert.Equal(t, "COMPUTE_WH", filled.Warehouse)
	assert.Equal(t, "AGENTCREW_DB", filled.Database)
	assert.Equal(t, "ANALYTICS", filled.Schema, "explicit value must win over default")
}

func TestCredentialsFromINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	content := "[SNOWFLAKE]\nACCOUNT = xy12345\nUSER = alice\nPASSWORD = pw\nROLE = SYSADMIN\nWAREHOUSE = COMPUTE_WH\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	creds, err := CredentialsFromINI(path)
	require.NoError(t, err)
	assert.Equal(t, "xy12345", creds.Account)
	assert.Equal(t, "SYSADMIN", creds.Role)
	assert.Equal(t, "COMPUTE_WH", creds.Warehouse)
	assert.Empty(t, creds.Database)
}

func TestCredentialsFromINI_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := CredentialsFromINI(filepath.Join(dir, "missing.ini"))
	assert.Error(t, err)

	path := filepath.Join(dir, "other.ini")
	require.NoError(t, os.WriteFile(path, []byte("[OTHER]\nA = b\n"), 0600))
	_, err = CredentialsFromINI(path)
	assert.Error(t, err)
}

func TestCredentials_Redaction(t *testing.T) {
	creds := testCreds()

	for _, format := range []string{"%v", "%+v", "%#v", "%s"} {
		out := fmt.Sprintf(format, creds)
		assert.NotContains(t, out, "s3cret-pw", "format %s leaked the password", format)
		assert.Contains(t, out, "alice")
	}
	assert.Contains(t, creds.String(), redacted)
}

func TestCredentials_Environ(t *testing.T) {
	creds := testCreds()
	creds.Role = ""

	env := creds.Environ()
	assert.Contains(t, env, "SNOWFLAKE_PASSWORD=s3cret-pw")
	assert.Contains(t, env, "SNOWFLAKE_SCHEMA=PUBLIC")
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, EnvRole+"="), "unset role should be omitted")
	}
}

func TestCredentials_DSN(t *testing.T) {
	dsn, err := testCreds().DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "alice")
	assert.Contains(t, dsn, "AGENTCREW_DB")

	_, err = Credentials{User: "alice", Password: "pw"}.DSN()
	assert.ErrorContains(t, err, EnvAccount)
}

func TestBootstrap_Success(t *testing.T) {
	db, mock := newMock(t)
	var buf bytes.Buffer
	b := mockBootstrapper(db, &buf)
	creds := testCreds()

	for _, stmt := range b.Statements(creds) {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectClose()

	require.NoError(t, b.Bootstrap(context.Background(), creds))
	assert.NoError(t, mock.ExpectationsWereMet())

	logs := buf.String()
	assert.Contains(t, logs, "Executing query: CREATE WAREHOUSE IF NOT EXISTS COMPUTE_WH")
	assert.NotContains(t, logs, "s3cret-pw")
}

func TestBootstrap_StatementsAreGuarded(t *testing.T) {
	b := &Bootstrapper{Table: "PROJECT_DATA"}
	stmts := b.Statements(testCreds())

	require.Len(t, stmts, 4)
	for _, s := range stmts {
		assert.Contains(t, s, "IF NOT EXISTS")
	}
	assert.Contains(t, stmts[2], "AGENTCREW_DB.PUBLIC")
	assert.Contains(t, stmts[3], "AGENTCREW_DB.PUBLIC.PROJECT_DATA")
}

func TestBootstrap_ProvisionFailureReleasesConnection(t *testing.T) {
	db, mock := newMock(t)
	var buf bytes.Buffer
	b := mockBootstrapper(db, &buf)
	creds := testCreds()
	stmts := b.Statements(creds)

	mock.ExpectExec(stmts[0]).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(stmts[1]).WillReturnError(errors.New("insufficient privileges"))
	mock.ExpectClose()

	err := b.Bootstrap(context.Background(), creds)

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, StageProvision, setupErr.Stage)
	assert.ErrorContains(t, err, "insufficient privileges")
	assert.NoError(t, mock.ExpectationsWereMet(), "connection must be closed after a failed statement")
}

func TestBootstrap_ConnectFailure(t *testing.T) {
	b := &Bootstrapper{
		Open: func(driverName, dsn string) (*sql.DB, error) {
			assert.Equal(t, DriverName, driverName)
			return nil, errors.New("network unreachable")
		},
		Table: "PROJECT_DATA",
	}

	err := b.Bootstrap(context.Background(), testCreds())

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, StageConnect, setupErr.Stage)
}

func TestBootstrap_Validation(t *testing.T) {
	missingAccount := testCreds()
	missingAccount.Account = ""

	badSchema := testCreds()
	badSchema.Schema = "PUBLIC; DROP DATABASE X"

	tests := []struct {
		name    string
		creds   Credentials
		table   string
		wantErr error
	}{
		{"missing account", missingAccount, "PROJECT_DATA", nil},
		{"injected schema", badSchema, "PROJECT_DATA", ErrInvalidIdentifier},
		{"empty table", testCreds(), "", ErrInvalidIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened := false
			b := &Bootstrapper{
				Open: func(string, string) (*sql.DB, error) {
					opened = true
					return nil, errors.New("must not connect")
				},
				Table: tt.table,
			}

			err := b.Bootstrap(context.Background(), tt.creds)

			var setupErr *SetupError
			require.ErrorAs(t, err, &setupErr)
			assert.Equal(t, StageValidate, setupErr.Stage)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.False(t, opened, "no connection may be attempted on invalid input")
		})
	}
}

func TestInspector_ListDatabases(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()
	var buf bytes.Buffer
	insp := &Inspector{Log: log.New(&buf, "", 0)}

	rows := sqlmock.NewRows([]string{"created_on", "name", "is_default", "owner"}).
		AddRow("2024-01-01", "ANALYTICS", "N", "SYSADMIN").
		AddRow("2024-01-02", "AGENTCREW_DB", "N", "SYSADMIN")
	mock.ExpectQuery("SHOW DATABASES").WillReturnRows(rows)

	names := insp.ListDatabases(context.Background(), db)

	assert.Equal(t, []string{"ANALYTICS", "AGENTCREW_DB"}, names)
	assert.Contains(t, buf.String(), "Executing query: SHOW DATABASES")
	assert.Contains(t, buf.String(), "Query returned 2 rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInspector_ListTablesInDatabase(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()
	insp := &Inspector{}

	mock.ExpectQuery(`SHOW TABLES IN DATABASE "my""db"`).
		WillReturnRows(sqlmock.NewRows([]string{"created_on", "name"}).AddRow("2024-01-01", "PROJECT_DATA"))

	names := insp.ListTablesInDatabase(context.Background(), db, `my"db`)
	assert.Equal(t, []string{"PROJECT_DATA"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInspector_EmptyAndErrorBothYieldEmpty(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()
	var buf bytes.Buffer
	insp := &Inspector{Log: log.New(&buf, "", 0)}

	mock.ExpectQuery(`SHOW TABLES IN DATABASE "EMPTY_DB"`).
		WillReturnRows(sqlmock.NewRows([]string{"created_on", "name"}))
	mock.ExpectQuery(`SHOW TABLES IN DATABASE "GONE_DB"`).
		WillReturnError(errors.New("Database 'GONE_DB' does not exist"))

	empty := insp.ListTablesInDatabase(context.Background(), db, "EMPTY_DB")
	failed := insp.ListTablesInDatabase(context.Background(), db, "GONE_DB")

	assert.NotNil(t, empty)
	assert.Empty(t, empty)
	assert.NotNil(t, failed)
	assert.Empty(t, failed)
	assert.Contains(t, buf.String(), "ERROR:")
	assert.Contains(t, buf.String(), "does not exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNameColumn(t *testing.T) {
	assert.Equal(t, 2, nameColumn([]string{"created_on", "kind", "NAME"}))
	assert.Equal(t, 1, nameColumn([]string{"a", "b", "c"}))
	assert.Equal(t, 0, nameColumn([]string{"only"}))
	assert.Equal(t, -1, nameColumn(nil))
}

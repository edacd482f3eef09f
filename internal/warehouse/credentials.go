// Package warehouse provisions and inspects the Snowflake objects used in
// warehouse mode.
package warehouse

import (
	"fmt"
	"strings"

	sf "github.com/snowflakedb/gosnowflake"
	"gopkg.in/ini.v1"

	"github.com/aristath/agentcrew/internal/config"
)

// Environment variable names read by CredentialsFromEnv and set by Environ.
const (
	EnvAccount   = "SNOWFLAKE_ACCOUNT"
	EnvUser      = "SNOWFLAKE_USER"
	EnvPassword  = "SNOWFLAKE_PASSWORD"
	EnvRole      = "SNOWFLAKE_ROLE"
	EnvWarehouse = "SNOWFLAKE_WAREHOUSE"
	EnvDatabase  = "SNOWFLAKE_DATABASE"
	EnvSchema    = "SNOWFLAKE_SCHEMA"
)

// INISection is the config.ini section holding credentials.
const INISection = "SNOWFLAKE"

const redacted = "[REDACTED]"

// Credentials identify a Snowflake account and the objects to use.
// String and GoString never include the password.
type Credentials struct {
	Account   string
	User      string
	Password  string
	Role      string
	Warehouse string
	Database  string
	Schema    string
}

// CredentialsFromEnv reads SNOWFLAKE_* variables through lookup.
func CredentialsFromEnv(lookup func(string) (string, bool)) Credentials {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	return Credentials{
		Account:   get(EnvAccount),
		User:      get(EnvUser),
		Password:  get(EnvPassword),
		Role:      get(EnvRole),
		Warehouse: get(EnvWarehouse),
		Database:  get(EnvDatabase),
		Schema:    get(EnvSchema),
	}
}

// CredentialsFromINI reads the [SNOWFLAKE] section of an INI file.
func CredentialsFromINI(path string) (Credentials, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("loading %s: %w", path, err)
	}

	sec, err := file.GetSection(INISection)
	if err != nil {
		return Credentials{}, fmt.Errorf("%s: %w", path, err)
	}

	get := func(key string) string {
		return strings.TrimSpace(sec.Key(key).String())
	}
	return Credentials{
		Account:   get("ACCOUNT"),
		User:      get("USER"),
		Password:  get("PASSWORD"),
		Role:      get("ROLE"),
		Warehouse: get("WAREHOUSE"),
		Database:  get("DATABASE"),
		Schema:    get("SCHEMA"),
	}, nil
}

// WithDefaults fills unset object names from cfg.
func (c Credentials) WithDefaults(cfg config.WarehouseConfig) Credentials {
	if c.Warehouse == "" {
		c.Warehouse = cfg.Warehouse
	}
	if c.Database == "" {
		c.Database = cfg.Database
	}
	if c.Schema == "" {
		c.Schema = cfg.Schema
	}
	return c
}

// Validate checks that the fields needed to connect are present.
func (c Credentials) Validate() error {
	var missing []string
	if c.Account == "" {
		missing = append(missing, EnvAccount)
	}
	if c.User == "" {
		missing = append(missing, EnvUser)
	}
	if c.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing warehouse credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DSN builds the driver connection string. The result contains the password.
func (c Credentials) DSN() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	dsn, err := sf.DSN(&sf.Config{
		Account:   c.Account,
		User:      c.User,
		Password:  c.Password,
		Role:      c.Role,
		Warehouse: c.Warehouse,
		Database:  c.Database,
		Schema:    c.Schema,
	})
	if err != nil {
		return "", fmt.Errorf("building snowflake DSN: %w", err)
	}
	return dsn, nil
}

// Environ returns KEY=value pairs for the set fields, for injection into
// executed code.
func (c Credentials) Environ() []string {
	pairs := []struct{ key, val string }{
		{EnvAccount, c.Account},
		{EnvUser, c.User},
		{EnvPassword, c.Password},
		{EnvRole, c.Role},
		{EnvWarehouse, c.Warehouse},
		{EnvDatabase, c.Database},
		{EnvSchema, c.Schema},
	}
	env := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.val != "" {
			env = append(env, p.key+"="+p.val)
		}
	}
	return env
}

func (c Credentials) String() string {
	password := ""
	if c.Password != "" {
		password = redacted
	}
	return fmt.Sprintf("Credentials{account=%s user=%s password=%s role=%s warehouse=%s database=%s schema=%s}",
		c.Account, c.User, password, c.Role, c.Warehouse, c.Database, c.Schema)
}

// GoString keeps %#v from printing the password.
func (c Credentials) GoString() string {
	return c.String()
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// quoteDSNValue single-quotes a value for the key=value DSN format,
// escaping backslashes and embedded quotes so passwords with spaces or
// special characters survive driver parsing.
func quoteDSNValue(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

// PostgresConnectionString returns the key=value DSN used by pgx.
// Only the password is quoted; the remaining fields are validated
// identifiers and never contain DSN metacharacters.
func (c *Config) PostgresConnectionString() string {
	parts := []string{
		"host=" + c.PostgresHost,
		"port=" + strconv.Itoa(c.PostgresPort),
		"user=" + c.PostgresUser,
		"password=" + quoteDSNValue(c.PostgresPassword),
		"dbname=" + c.PostgresDBName,
		"sslmode=" + c.PostgresSSLMode,
	}
	return strings.Join(parts, " ")
}

// PostgresURL returns the postgres:// URL form used by golang-migrate.
// url.URL handles percent-encoding of credentials.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     c.PostgresHost + ":" + strconv.Itoa(c.PostgresPort),
		Path:     c.PostgresDBName,
		RawQuery: "sslmode=" + c.PostgresSSLMode,
	}
	return u.String()
}

// parseDatabaseURL applies the DATABASE_URL environment variable on top
// of the individual postgres_* settings. Cloud platforms hand out a
// single URL, so when it is present it wins; components it omits keep
// their configured values.
func (c *Config) parseDatabaseURL() error {
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid DATABASE_URL format: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
	default:
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://, got %q", u.Scheme)
	}

	if h := u.Hostname(); h != "" {
		c.PostgresHost = h
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid port in DATABASE_URL: %w", err)
		}
		c.PostgresPort = port
	}
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			c.PostgresUser = name
		}
		if pass, ok := u.User.Password(); ok {
			c.PostgresPassword = pass
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		c.PostgresDBName = db
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}

	return nil
}

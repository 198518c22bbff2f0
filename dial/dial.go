// Package dial opens a db.DB connection pool from a Config using one of the
// gopsql drivers.
package dial

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gopsql/db"
	"github.com/gopsql/pgx"
	"github.com/gopsql/pq"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DriverPgx = "pgx"
	DriverPq  = "pq"

	DefaultHost    = "localhost"
	DefaultPort    = 5432
	DefaultSSLMode = "disable"
)

var ErrUnknownDriver = errors.New("dial: unknown driver")

// Config describes a PostgreSQL server. Zero values fall back to the
// defaults above; Driver defaults to pgx.
type Config struct {
	Driver   string            `koanf:"driver" yaml:"driver"`
	Host     string            `koanf:"host" yaml:"host"`
	Port     int               `koanf:"port" yaml:"port"`
	User     string            `koanf:"user" yaml:"user"`
	Password string            `koanf:"password" yaml:"password,omitempty"`
	Database string            `koanf:"database" yaml:"database"`
	SSLMode  string            `koanf:"sslmode" yaml:"sslmode"`
	Options  map[string]string `koanf:"options" yaml:"options,omitempty"`
}

// DSN returns the connection string in key=value form.
//
//	host=localhost port=5432 dbname=app sslmode=disable user=app
func (c Config) DSN() string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = DefaultSSLMode
	}
	parts := []string{
		"host=" + quoteValue(host),
		"port=" + strconv.Itoa(port),
	}
	if c.Database != "" {
		parts = append(parts, "dbname="+quoteValue(c.Database))
	}
	parts = append(parts, "sslmode="+quoteValue(sslmode))
	if c.User != "" {
		parts = append(parts, "user="+quoteValue(c.User))
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteValue(c.Password))
	}
	keys := make([]string, 0, len(c.Options))
	for key := range c.Options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, key+"="+quoteValue(c.Options[key]))
	}
	return strings.Join(parts, " ")
}

// String is the DSN with the password masked, for logs.
func (c Config) String() string {
	if c.Password != "" {
		c.Password = "xxxxx"
	}
	return c.DSN()
}

// Validate parses the DSN without connecting.
func (c Config) Validate() error {
	switch c.Driver {
	case "", DriverPgx, DriverPq:
	default:
		return fmt.Errorf("%w %q, use %s or %s", ErrUnknownDriver, c.Driver, DriverPgx, DriverPq)
	}
	if _, err := pgconn.ParseConfig(c.DSN()); err != nil {
		return fmt.Errorf("dial: invalid connection config: %w", err)
	}
	return nil
}

// Open validates the config and opens a connection pool with the chosen
// driver.
func Open(c Config) (db.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Driver {
	case DriverPq:
		conn, err := pq.Open(c.DSN())
		if err != nil {
			return nil, err
		}
		return conn, nil
	default:
		conn, err := pgx.Open(c.DSN())
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// MustOpen is like Open but panics if an error occurs.
func MustOpen(c Config) db.DB {
	conn, err := Open(c)
	if err != nil {
		panic(err)
	}
	return conn
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Package dialect provides database dialect abstractions for multi-database support.
package dialect

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Dialect represents a SQL database dialect.
type Dialect interface {
	// Name returns the dialect name (e.g., "sqlite", "postgres")
	Name() string

	// DriverName returns the database/sql driver name to use
	DriverName() string

	// DSN builds the driver connection string from connection parameters
	DSN(p ConnParams) (string, error)

	// InitStatements returns statements run once on a fresh pool (e.g., PRAGMA for SQLite)
	InitStatements() []string

	// VersionQuery returns a query selecting the server version string
	VersionQuery() string
}

// ConnParams are the driver-independent connection settings.
type ConnParams struct {
	Server   string
	Port     int
	User     string
	Password string
	Database string
	Options  map[string]string
}

// Address returns host:port, or the database name for file-backed dialects.
func (p ConnParams) Address() string {
	if p.Server == "" {
		return p.Database
	}
	if p.Port == 0 {
		return p.Server
	}
	return net.JoinHostPort(p.Server, strconv.Itoa(p.Port))
}

// DialectType represents supported database types
type DialectType string

const (
	SQLite   DialectType = "sqlite"
	Postgres DialectType = "postgres"
)

// New creates a new Dialect based on the dialect type
func New(dialectType DialectType) (Dialect, error) {
	switch dialectType {
	case SQLite:
		return &sqliteDialect{}, nil
	case Postgres:
		return &postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialectType)
	}
}

// FromDriverName returns the dialect for a given driver name
func FromDriverName(driverName string) (Dialect, error) {
	switch strings.ToLower(driverName) {
	case "sqlite", "sqlite3":
		return &sqliteDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return &postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driverName)
	}
}

// encodeOptions renders options as a query string with keys in sorted order.
func encodeOptions(opts map[string]string) string {
	if len(opts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(opts[k]))
	}
	return b.String()
}

// sqliteDialect implements Dialect for SQLite
type sqliteDialect struct{}

func (d *sqliteDialect) Name() string {
	return "sqlite"
}

func (d *sqliteDialect) DriverName() string {
	return "sqlite"
}

// DSN treats Database as a file path (or ":memory:"). Options become URI
// query parameters, e.g. mode=memory&cache=shared.
func (d *sqliteDialect) DSN(p ConnParams) (string, error) {
	if p.Database == "" {
		return "", fmt.Errorf("sqlite: database path is required")
	}

	dsn := p.Database
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if q := encodeOptions(p.Options); q != "" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + q
	}
	return dsn, nil
}

func (d *sqliteDialect) InitStatements() []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
}

func (d *sqliteDialect) VersionQuery() string {
	return "SELECT sqlite_version()"
}

// postgresDialect implements Dialect for PostgreSQL
type postgresDialect struct{}

func (d *postgresDialect) Name() string {
	return "postgres"
}

func (d *postgresDialect) DriverName() string {
	return "pgx"
}

// DSN builds a postgres:// URL. Port defaults to 5432.
func (d *postgresDialect) DSN(p ConnParams) (string, error) {
	if p.Server == "" {
		return "", fmt.Errorf("postgres: server is required")
	}

	port := p.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(p.Server, strconv.Itoa(port)),
		Path:     "/" + p.Database,
		RawQuery: encodeOptions(p.Options),
	}
	if p.User != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
	}
	return u.String(), nil
}

func (d *postgresDialect) InitStatements() []string {
	return nil // PostgreSQL doesn't use pragmas
}

func (d *postgresDialect) VersionQuery() string {
	return "SELECT version()"
}

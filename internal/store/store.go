package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
)

const (
	DriverPostgres = "pgx"
	DriverDuckDB   = "duckdb"

	defaultConnectTimeout = 5 * time.Second
)

// Params are the connection parameters of the store a question is answered against.
// Callers may override the configured defaults per request.
type Params struct {
	Driver    string `json:"driver,omitempty"`
	Host      string `json:"host,omitempty"`
	Port      int    `json:"port,omitempty"`
	Database  string `json:"database,omitempty"`
	User      string `json:"user,omitempty"`
	Password  string `json:"password,omitempty"`
	SSLMode   string `json:"sslmode,omitempty"`
	Path      string `json:"path,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// Opener connects to a store. Every call returns a fresh handle the caller must close.
type Opener func(ctx context.Context, params Params) (*sql.DB, error)

// ConnectionError means the store could not be reached; it is never retried.
type ConnectionError struct {
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// WithDefaults fills every unset field of p from defaults.
func (p Params) WithDefaults(defaults Params) Params {
	merged := p
	if merged.Driver == "" {
		merged.Driver = defaults.Driver
	}
	if merged.Host == "" {
		merged.Host = defaults.Host
	}
	if merged.Port == 0 {
		merged.Port = defaults.Port
	}
	if merged.Database == "" {
		merged.Database = defaults.Database
	}
	if merged.User == "" {
		merged.User = defaults.User
	}
	if merged.Password == "" && p.User == "" {
		merged.Password = defaults.Password
	}
	if merged.SSLMode == "" {
		merged.SSLMode = defaults.SSLMode
	}
	if merged.Path == "" && merged.Driver == defaults.Driver {
		merged.Path = defaults.Path
	}
	if merged.Namespace == "" {
		merged.Namespace = defaults.Namespace
	}
	if merged.Namespace == "" {
		merged.Namespace = DefaultNamespace(merged.Driver)
	}
	return merged
}

func DefaultNamespace(driver string) string {
	if driver == DriverDuckDB {
		return "main"
	}
	return "public"
}

func (p Params) Validate() error {
	switch p.Driver {
	case DriverPostgres:
		if strings.TrimSpace(p.Host) == "" {
			return fmt.Errorf("store host is required")
		}
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("invalid store port: %d", p.Port)
		}
		if strings.TrimSpace(p.Database) == "" {
			return fmt.Errorf("store database is required")
		}
	case DriverDuckDB:
	default:
		return fmt.Errorf("unsupported store driver %q", p.Driver)
	}
	return nil
}

// DSN renders the driver-specific data source name.
func (p Params) DSN() string {
	if p.Driver == DriverDuckDB {
		return p.Path
	}
	query := url.Values{}
	if p.SSLMode != "" {
		query.Set("sslmode", p.SSLMode)
	}
	query.Set("connect_timeout", strconv.Itoa(int(defaultConnectTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Database,
		RawQuery: query.Encode(),
	}
	if p.User != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
	}
	return u.String()
}

// Target describes the store for logs and error messages without credentials.
func (p Params) Target() string {
	if p.Driver == DriverDuckDB {
		if p.Path == "" {
			return "duckdb:memory"
		}
		return "duckdb:" + p.Path
	}
	return fmt.Sprintf("postgres://%s/%s", net.JoinHostPort(p.Host, strconv.Itoa(p.Port)), p.Database)
}

// Open connects and pings. A single connection is used; nothing is pooled across calls.
func Open(ctx context.Context, params Params) (*sql.DB, error) {
	if err := params.Validate(); err != nil {
		return nil, &ConnectionError{Target: params.Target(), Err: err}
	}

	db, err := sql.Open(params.Driver, params.DSN())
	if err != nil {
		return nil, &ConnectionError{Target: params.Target(), Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Target: params.Target(), Err: err}
	}
	return db, nil
}

// Check opens and immediately closes a connection.
func Check(ctx context.Context, params Params) error {
	db, err := Open(ctx, params)
	if err != nil {
		return err
	}
	return db.Close()
}

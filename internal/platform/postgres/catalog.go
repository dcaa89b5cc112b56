package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	defaultPort        = 5432
	defaultUser        = "admin"
	defaultDatabase    = "postgres"
	defaultDialTimeout = 10 * time.Second
)

// Config addresses the Postgres cluster of an installation.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// Database is the maintenance database to connect to.
	Database string

	SSLMode string
}

// DSN returns the connection URL for cfg, filling in defaults.
func (c Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	user := c.User
	if user == "" {
		user = defaultUser
	}
	db := c.Database
	if db == "" {
		db = defaultDatabase
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "prefer"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:   "/" + db,
	}
	if c.Password != "" {
		u.User = url.UserPassword(user, c.Password)
	} else {
		u.User = url.User(user)
	}
	q := url.Values{}
	q.Set("sslmode", sslmode)
	q.Set("connect_timeout", strconv.Itoa(int(defaultDialTimeout.Seconds())))
	u.RawQuery = q.Encode()
	return u.String()
}

type conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Catalog reads the list of databases of a cluster.
type Catalog struct {
	conn conn
	host string
}

// Open connects to the cluster described by cfg.
func Open(ctx context.Context, cfg Config) (*Catalog, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("postgres host cannot be empty")
	}

	c, err := pgx.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres at %s: %w", cfg.Host, err)
	}
	return &Catalog{conn: c, host: cfg.Host}, nil
}

// Databases returns the names of every non-template database, sorted.
func (c *Catalog) Databases(ctx context.Context) ([]string, error) {
	rows, err := c.conn.Query(ctx,
		`SELECT datname FROM pg_catalog.pg_database WHERE NOT datistemplate ORDER BY datname`)
	if err != nil {
		return nil, fmt.Errorf("list databases on %s: %w", c.host, err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list databases on %s: %w", c.host, err)
	}
	return names, nil
}

// Missing returns the entries of want that do not exist on the cluster.
func (c *Catalog) Missing(ctx context.Context, want []string) ([]string, error) {
	have, err := c.Databases(ctx)
	if err != nil {
		return nil, err
	}
	return missing(have, want), nil
}

// Close closes the connection.
func (c *Catalog) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

func missing(have, want []string) []string {
	present := make(map[string]bool, len(have))
	for _, h := range have {
		present[h] = true
	}

	var out []string
	for _, w := range want {
		if !present[w] {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

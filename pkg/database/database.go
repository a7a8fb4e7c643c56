// Package database wraps database/sql with the driver-selection and
// connection-pool configuration pattern used throughout the ambient stack,
// trimmed from the teacher's reader/writer-split Connection down to a single
// pooled handle — the Metadata Store's SQL backend never needs read/write
// separation at this scale.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// Config describes how to open a database/sql connection.
type Config struct {
	Driver          string `yaml:"driver"` // sqlite, postgres, mysql
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

// Connection wraps a single pooled *sql.DB.
type Connection struct {
	db     *sql.DB
	driver string
}

// Open opens and pings a database connection per cfg.
func Open(cfg Config) (*Connection, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("database: driver is required")
	}
	db, err := sql.Open(driverName(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			db.SetConnMaxLifetime(d)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}
	return &Connection{db: db, driver: cfg.Driver}, nil
}

// DB returns the underlying *sql.DB.
func (c *Connection) DB() *sql.DB { return c.db }

// Driver returns the configured driver name (sqlite, postgres, mysql).
func (c *Connection) Driver() string { return c.driver }

// Close closes the underlying connection pool.
func (c *Connection) Close() error { return c.db.Close() }

func driverName(driver string) string {
	switch driver {
	case "postgres", "postgresql":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return driver
	}
}

// Package db opens the relational database and bootstraps its schema. The
// same schema runs on SQLite (default, file based) and PostgreSQL.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect captures what differs between the supported drivers.
type Dialect struct {
	Name string
	// ForUpdate is appended to row reads that precede a write in the same tx.
	ForUpdate string
	schema    []string
	unique    func(error) bool
	numbered  bool
}

var dialects = map[string]*Dialect{}

func register(d *Dialect) { dialects[d.Name] = d }

// DB is a *sql.DB that knows its dialect.
type DB struct {
	*sql.DB
	*Dialect
}

// Open connects, verifies the connection and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// One writer at a time; transactions then serialize instead of
		// failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	for _, stmt := range d.schema {
		if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &DB{DB: sqlDB, Dialect: d}, nil
}

// Rebind rewrites ? placeholders for drivers that use $1, $2, ...
func (d *Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// IsUniqueViolation reports whether err is a primary key or unique constraint failure.
func (d *Dialect) IsUniqueViolation(err error) bool {
	return err != nil && d.unique(err)
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// Dialect captures the differences between the supported SQL servers.
type Dialect struct {
	Name   string
	schema []string
	drop   []string
}

var MySQL = Dialect{
	Name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			plan VARCHAR(16) NOT NULL DEFAULT 'free'
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(16) NOT NULL,
			tenant_id VARCHAR(64) NOT NULL,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			seq BIGINT AUTO_INCREMENT UNIQUE,
			id CHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(64) NOT NULL,
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX notes_tenant_created (tenant_id, created_at),
			FOREIGN KEY (tenant_id) REFERENCES tenants(id)
		)`,
	},
	drop: []string{"DROP TABLE IF EXISTS notes", "DROP TABLE IF EXISTS users", "DROP TABLE IF EXISTS tenants"},
}

var Postgres = Dialect{
	Name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			plan VARCHAR(16) NOT NULL DEFAULT 'free'
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(16) NOT NULL,
			tenant_id VARCHAR(64) NOT NULL REFERENCES tenants(id)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			seq BIGSERIAL UNIQUE,
			id CHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(64) NOT NULL REFERENCES tenants(id),
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS notes_tenant_created ON notes (tenant_id, created_at)`,
	},
	drop: []string{"DROP TABLE IF EXISTS notes", "DROP TABLE IF EXISTS users", "DROP TABLE IF EXISTS tenants"},
}

// DialectFor maps a STORE_DRIVER value to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL, nil
	case "postgres":
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
}

// Rebind rewrites ? placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d.Name != Postgres.Name {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Open connects to the database described by dsn and verifies the
// connection. MySQL connections always parse timestamps as UTC time.Time.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	var conn *sql.DB
	switch d.Name {
	case MySQL.Name:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("mysql connector: %w", err)
		}
		conn = sql.OpenDB(connector)
	case Postgres.Name:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		conn = stdlib.OpenDB(*cfg)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", d.Name)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, conn *sql.DB, d Dialect) error {
	for _, stmt := range d.schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Reset drops every table and recreates the schema. Tests only.
func Reset(ctx context.Context, conn *sql.DB, d Dialect) error {
	for _, stmt := range d.drop {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	return Migrate(ctx, conn, d)
}

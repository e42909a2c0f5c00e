package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Scolaria-io/scolaria/internal/config"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// DB wraps the SQL connection together with the dialect it speaks.
type DB struct {
	conn   *sql.DB
	dbType string
}

// Init opens the database described by cfg, verifies the connection and runs
// all pending migrations.
func Init(cfg *config.Config) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch cfg.DatabaseType {
	case "postgres":
		conn, err = openPostgres(cfg)
	case "sqlite", "":
		conn, err = openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DatabaseType)
	}
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dbType: cfg.DatabaseType}
	if db.dbType == "" {
		db.dbType = "sqlite"
	}

	if err := RunMigrations(conn, db.dbType); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func openPostgres(cfg *config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost,
		cfg.DatabasePort,
		cfg.DatabaseUser,
		cfg.DatabasePassword,
		cfg.DatabaseName,
		cfg.DatabaseSSLMode,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if cfg.DatabaseMaxConns > 0 {
		conn.SetMaxOpenConns(cfg.DatabaseMaxConns)
	}
	if cfg.DatabaseMaxIdle > 0 {
		conn.SetMaxIdleConns(cfg.DatabaseMaxIdle)
	}
	if cfg.DatabaseConnMaxLifetime != "" && cfg.DatabaseConnMaxLifetime != "0" {
		if d, err := time.ParseDuration(cfg.DatabaseConnMaxLifetime); err == nil {
			conn.SetConnMaxLifetime(d)
		}
	}

	return conn, nil
}

func openSQLite(cfg *config.Config) (*sql.DB, error) {
	dataDir := filepath.Dir(cfg.DatabasePath)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on", cfg.DatabasePath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite supports a single writer.
	conn.SetMaxOpenConns(1)

	return conn, nil
}

// Conn exposes the raw SQL handle for collaborators that share the store,
// such as the key-value flag cache.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Type returns the active SQL dialect, "postgres" or "sqlite".
func (d *DB) Type() string {
	return d.dbType
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// bind rewrites `?` placeholders to `$n` when talking to PostgreSQL so every
// query can be written once in SQLite form.
func (d *DB) bind(query string) string {
	return Bind(d.dbType, query)
}

// Bind rewrites `?` placeholders for the given dialect.
func Bind(dbType, query string) string {
	if dbType != "postgres" {
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

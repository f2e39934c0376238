package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSqlite   = "sqlite3"
	DriverMemory   = "memory"
)

// SQLRepository stores documents, chat messages and access entries in a
// database/sql backend. The same queries are used for every driver, so
// placeholders must appear in ascending order for sqlite.
type SQLRepository struct {
	driver string
	conn   *sql.DB
}

func NewSQLRepository(driver, dsn string) (*SQLRepository, error) {
	switch driver {
	case DriverPostgres, DriverPgx, DriverSqlite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSqlite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLRepository{driver: driver, conn: db}, nil
}

func (db *SQLRepository) Driver() string {
	return db.driver
}

func (db *SQLRepository) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *SQLRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("record not found")

type DB struct {
	*sqlx.DB

	// Clock stamps created_at columns. Defaults to time.Now.
	Clock func() time.Time
}

func Init(driver, dsn string) (*DB, error) {
	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite3" {
		// One writer keeps ":memory:" databases shared across statements.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := createTables(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{DB: conn, Clock: time.Now}, nil
}

func (db *DB) now() time.Time {
	if db.Clock == nil {
		return time.Now().UTC()
	}
	return db.Clock().UTC()
}

func createTables(conn *sqlx.DB) error {
	queries, ok := schema[conn.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", conn.DriverName())
	}

	for _, query := range queries {
		if _, err := conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// exec runs a parameterized statement written with ? placeholders.
// Driver errors are logged with the query and returned wrapped.
func (db *DB) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		log.Printf("Database query error: %v Query: %s", err, query)
		return nil, fmt.Errorf("database query: %w", err)
	}
	return res, nil
}

func (db *DB) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := db.GetContext(ctx, dest, db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		log.Printf("Database query error: %v Query: %s", err, query)
		return fmt.Errorf("database query: %w", err)
	}
	return nil
}

func (db *DB) selectRows(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if err := db.SelectContext(ctx, dest, db.Rebind(query), args...); err != nil {
		log.Printf("Database query error: %v Query: %s", err, query)
		return fmt.Errorf("database query: %w", err)
	}
	return nil
}

// insert runs an INSERT and returns the new row id. PostgreSQL does not
// report LastInsertId, so the statement is extended with RETURNING there.
func (db *DB) insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if db.DriverName() == "postgres" {
		var id int64
		if err := db.get(ctx, &id, query+" RETURNING id", args...); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := db.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// affected converts a zero-row update or delete into ErrNotFound.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

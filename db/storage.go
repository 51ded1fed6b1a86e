package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("db: record not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("db: unique constraint violated")
)

// Storage owns the connection pool. All queries live on Queries so the same
// code runs against the pool or inside a transaction.
type Storage struct {
	*Queries
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		Queries: &Queries{q: db, driver: db.DriverName()},
		db:      db,
	}
}

// Open connects and tunes the pool for the driver. sqlite gets a single
// connection so in-memory databases are shared and writers are serialized,
// and always runs with foreign keys enforced so deletes cascade.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" {
		dsn = withForeignKeys(dsn)
	}
	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: connect %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(time.Hour)
	}
	return conn, nil
}

// withForeignKeys adds the go-sqlite3 foreign key flag unless the DSN sets it.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

func (s *Storage) DB() *sqlx.DB {
	return s.db
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn inside one transaction. Any error from fn, or a panic, rolls
// the transaction back; the error from fn is returned unchanged.
func (s *Storage) InTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Queries{q: tx, driver: s.driver}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// Queries runs statements against either *sqlx.DB or *sqlx.Tx.
type Queries struct {
	q      sqlx.ExtContext
	driver string
}

func (q *Queries) Driver() string {
	return q.driver
}

func (q *Queries) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, q.q, dest, q.q.Rebind(query), args...)
	return translate(err)
}

func (q *Queries) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.SelectContext(ctx, q.q, dest, q.q.Rebind(query), args...)
	return translate(err)
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := q.q.ExecContext(ctx, q.q.Rebind(query), args...)
	if err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// insert runs an INSERT ... RETURNING id statement.
func (q *Queries) insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	err := q.q.QueryRowxContext(ctx, q.q.Rebind(query), args...).Scan(&id)
	if err != nil {
		return 0, translate(err)
	}
	return id, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func now() time.Time {
	return time.Now().UTC()
}

// expandIn appends in as the last bind argument and expands its IN (?) clause.
func expandIn(query string, args []interface{}, in interface{}) (string, []interface{}, error) {
	return sqlx.In(query, append(args, in)...)
}

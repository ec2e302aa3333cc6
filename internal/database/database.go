// Package database wraps the embedded sqlite handle behind a small interface
// shared by the three stores. Each store owns one database file with its own
// fixed schema, applied idempotently on connect.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNoResult is returned on successful queries which return no rows.
	ErrNoResult = errors.New("no results found")
	// ErrDuplicate is returned when a duplicate row result is attempted to be inserted.
	ErrDuplicate = errors.New("entity already exists")

	ErrOpenFailed  = errors.New("could not open store database")
	ErrCreateQuery = errors.New("failed to generate query")
)

// Database is the common store backend interface. Driver errors returned to
// callers should be passed through DBErr as they are not automatically wrapped.
type Database interface {
	Connect(ctx context.Context) error
	Close() error
	Builder() sq.StatementBuilderType
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryBuilder(ctx context.Context, builder sq.SelectBuilder) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	QueryRowBuilder(ctx context.Context, builder sq.SelectBuilder) (*sql.Row, error)
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	ExecInsertBuilder(ctx context.Context, builder sq.InsertBuilder) (int64, error)
	ExecUpdateBuilder(ctx context.Context, builder sq.UpdateBuilder) (int64, error)
	ExecDeleteBuilder(ctx context.Context, builder sq.DeleteBuilder) (int64, error)
	GetCount(ctx context.Context, builder sq.SelectBuilder) (int64, error)
}

// Pragmas applied to every connection before the schema. WAL suits the
// write-through cache workload; busy_timeout covers the external CLI opening
// a live store file.
var pragmas = []string{ //nolint:gochecknoglobals
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

type sqliteStore struct {
	conn *sql.DB
	// sqlite uses ? placeholders.
	sb         sq.StatementBuilderType
	path       string
	schema     string
	logQueries bool
}

// New creates an unconnected store backend for the database file at path.
// schema holds the DDL executed on connect; statements must be idempotent.
func New(path string, schema string, logQueries bool) Database {
	return &sqliteStore{
		sb:         sq.StatementBuilder.PlaceholderFormat(sq.Question),
		path:       path,
		schema:     schema,
		logQueries: logQueries,
	}
}

// DBErr is used to wrap common database errors in our own error types.
func DBErr(rootError error) error {
	if rootError == nil {
		return nil
	}

	if errors.Is(rootError, sql.ErrNoRows) {
		return ErrNoResult
	}

	var sqliteErr *sqlite.Error

	if errors.As(rootError, &sqliteErr) {
		if sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return ErrDuplicate
		}

		return rootError
	}

	return rootError
}

// Connect opens the database file and applies pragmas and the schema. The
// handle is held for process lifetime; sqlite has a single writer, so the
// pool is pinned to one connection.
func (db *sqliteStore) Connect(ctx context.Context) error {
	if db.conn != nil {
		return nil
	}

	if errMkdir := os.MkdirAll(filepath.Dir(db.path), 0o755); errMkdir != nil {
		return fmt.Errorf("could not create data dir: %w", errMkdir)
	}

	conn, errOpen := sql.Open("sqlite", db.path)
	if errOpen != nil {
		return errors.Join(errOpen, ErrOpenFailed)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	for _, pragma := range pragmas {
		if _, errPragma := conn.ExecContext(ctx, pragma); errPragma != nil {
			_ = conn.Close()

			return fmt.Errorf("could not apply pragma %s: %w", pragma, errPragma)
		}
	}

	if _, errSchema := conn.ExecContext(ctx, db.schema); errSchema != nil {
		_ = conn.Close()

		return fmt.Errorf("could not apply schema: %w", errSchema)
	}

	db.conn = conn

	return nil
}

// Close will close the underlying database connection if it exists. Safe to
// call more than once.
func (db *sqliteStore) Close() error {
	if db.conn == nil {
		return nil
	}

	errClose := db.conn.Close()
	db.conn = nil

	if errClose != nil {
		return fmt.Errorf("failed to close database: %w", errClose)
	}

	return nil
}

func (db *sqliteStore) Builder() sq.StatementBuilderType {
	return db.sb
}

func (db *sqliteStore) trace(query string, args []any) {
	if db.logQueries {
		slog.Debug("Executing query", slog.String("sql", query), slog.Any("args", args))
	}
}

func (db *sqliteStore) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db.trace(query, args)

	return db.conn.QueryContext(ctx, query, args...) //nolint:wrapcheck
}

func (db *sqliteStore) QueryBuilder(ctx context.Context, builder sq.SelectBuilder) (*sql.Rows, error) {
	query, args, errQuery := builder.ToSql()
	if errQuery != nil {
		return nil, errors.Join(errQuery, ErrCreateQuery)
	}

	return db.Query(ctx, query, args...)
}

func (db *sqliteStore) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	db.trace(query, args)

	return db.conn.QueryRowContext(ctx, query, args...)
}

func (db *sqliteStore) QueryRowBuilder(ctx context.Context, builder sq.SelectBuilder) (*sql.Row, error) {
	query, args, errQuery := builder.ToSql()
	if errQuery != nil {
		return nil, errors.Join(errQuery, ErrCreateQuery)
	}

	return db.QueryRow(ctx, query, args...), nil
}

func (db *sqliteStore) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.trace(query, args)

	return db.conn.ExecContext(ctx, query, args...) //nolint:wrapcheck
}

// ExecInsertBuilder executes the insert and returns the generated row id.
func (db *sqliteStore) ExecInsertBuilder(ctx context.Context, builder sq.InsertBuilder) (int64, error) {
	query, args, errQuery := builder.ToSql()
	if errQuery != nil {
		return 0, errors.Join(errQuery, ErrCreateQuery)
	}

	result, errExec := db.Exec(ctx, query, args...)
	if errExec != nil {
		return 0, errExec
	}

	rowID, errID := result.LastInsertId()
	if errID != nil {
		return 0, errID //nolint:wrapcheck
	}

	return rowID, nil
}

// ExecUpdateBuilder executes the update and returns the number of rows changed.
func (db *sqliteStore) ExecUpdateBuilder(ctx context.Context, builder sq.UpdateBuilder) (int64, error) {
	query, args, errQuery := builder.ToSql()
	if errQuery != nil {
		return 0, errors.Join(errQuery, ErrCreateQuery)
	}

	result, errExec := db.Exec(ctx, query, args...)
	if errExec != nil {
		return 0, errExec
	}

	affected, errAffected := result.RowsAffected()
	if errAffected != nil {
		return 0, errAffected //nolint:wrapcheck
	}

	return affected, nil
}

// ExecDeleteBuilder executes the delete and returns the number of rows removed.
func (db *sqliteStore) ExecDeleteBuilder(ctx context.Context, builder sq.DeleteBuilder) (int64, error) {
	query, args, errQuery := builder.ToSql()
	if errQuery != nil {
		return 0, errors.Join(errQuery, ErrCreateQuery)
	}

	result, errExec := db.Exec(ctx, query, args...)
	if errExec != nil {
		return 0, errExec
	}

	affected, errAffected := result.RowsAffected()
	if errAffected != nil {
		return 0, errAffected //nolint:wrapcheck
	}

	return affected, nil
}

func (db *sqliteStore) GetCount(ctx context.Context, builder sq.SelectBuilder) (int64, error) {
	countQuery, argsCount, errCountQuery := builder.ToSql()
	if errCountQuery != nil {
		return 0, errors.Join(errCountQuery, ErrCreateQuery)
	}

	var count int64
	if errCount := db.
		QueryRow(ctx, countQuery, argsCount...).
		Scan(&count); errCount != nil {
		return 0, errCount //nolint:wrapcheck
	}

	return count, nil
}

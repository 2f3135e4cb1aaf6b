// Package store executes query plans against the SQLite reporting store.
//
// The store never sees rules or prompts; it accepts compiled plans only.
// Errors are reported with a plain message and no automatic retry - the
// caller decides whether to offer a manual one.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MStee09/rocketreport/internal/queryir"
	"github.com/MStee09/rocketreport/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// QueryError is the error shape execution failures surface with.
type QueryError struct {
	Message string `json:"message"`
}

func (e *QueryError) Error() string { return e.Message }

// ResultSet holds the rows a plan produced.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *ResultSet) Len() int { return len(r.Rows) }

// Store wraps the SQLite reporting database.
// Uses WAL mode for concurrent read access.
type Store struct {
	db       *sql.DB
	compiler *querysql.Compiler
}

// Open creates or opens a SQLite database at the given path and applies
// the reporting schema. Idempotent - safe to call on an existing database.
//
// Use ":memory:" for tests and previews.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, compiler: querysql.NewCompiler(querysql.SQLite)}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct access. Prefer Run/Count.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Run compiles and executes a plan, returning all rows.
func (s *Store) Run(ctx context.Context, plan queryir.Select) (*ResultSet, error) {
	sqlStr, params, err := s.compiler.Compile(plan)
	if err != nil {
		return nil, err // compile errors keep their type (capability, validation)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, params...)
	if err != nil {
		return nil, &QueryError{Message: fmt.Sprintf("execute query: %v", err)}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Message: fmt.Sprintf("read columns: %v", err)}
	}

	result := &ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Message: fmt.Sprintf("scan row: %v", err)}
		}
		for i, v := range values {
			// []byte columns come back as raw bytes; report values as text
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Message: fmt.Sprintf("rows iteration: %v", err)}
	}

	return result, nil
}

// Count compiles and executes the row-count form of a plan.
func (s *Store) Count(ctx context.Context, plan queryir.Select) (int64, error) {
	sqlStr, params, err := s.compiler.CompileCount(plan)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlStr, params...).Scan(&count); err != nil {
		return 0, &QueryError{Message: fmt.Sprintf("execute count: %v", err)}
	}
	return count, nil
}

package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"bar-bartender/internal/config"
)

// ErrUnsupported indica que el dialecto no puede expresar la operacion.
var ErrUnsupported = errors.New("operation not supported by dialect")

// Dialect encapsula las diferencias entre backends: placeholders,
// introspeccion de metadatos y clasificacion de errores del driver.
type Dialect interface {
	Name() config.Backend
	// Rebind traduce placeholders "?" al formato del backend.
	Rebind(query string) string
	ListColumns(ctx context.Context, q DBTX, table string) ([]string, error)
	HasUniqueIndex(ctx context.Context, q DBTX, table, name string) (bool, error)
	HasConstraint(ctx context.Context, q DBTX, table, name string) (bool, error)
	DropConstraintSQL(table, name string) (string, error)
	IsUniqueViolation(err error) bool
}

// SQLiteDialect implementa Dialect para el archivo embebido.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() config.Backend { return config.BackendSQLite }

func (SQLiteDialect) Rebind(query string) string { return query }

func (SQLiteDialect) ListColumns(ctx context.Context, q DBTX, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	return scanStrings(rows)
}

func (SQLiteDialect) HasUniqueIndex(ctx context.Context, q DBTX, table, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_index_list(?) WHERE name = ? AND "unique" = 1`,
		table, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup index %s on %s: %w", name, table, err)
	}
	return n > 0, nil
}

// HasConstraint siempre es false: SQLite no guarda restricciones con nombre
// que puedan eliminarse; las reglas de unicidad heredadas viven como indices.
func (SQLiteDialect) HasConstraint(context.Context, DBTX, string, string) (bool, error) {
	return false, nil
}

func (SQLiteDialect) DropConstraintSQL(string, string) (string, error) {
	return "", ErrUnsupported
}

func (SQLiteDialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// PostgresDialect implementa Dialect para el servidor PostgreSQL.
type PostgresDialect struct{}

func (PostgresDialect) Name() config.Backend { return config.BackendPostgres }

func (PostgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			inQuote = !inQuote
		}
		if ch == '?' && !inQuote {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func (PostgresDialect) ListColumns(ctx context.Context, q DBTX, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	return scanStrings(rows)
}

func (PostgresDialect) HasUniqueIndex(ctx context.Context, q DBTX, table, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM pg_indexes
		WHERE schemaname = current_schema() AND tablename = $1 AND indexname = $2
		  AND indexdef LIKE 'CREATE UNIQUE INDEX%'
	`, table, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup index %s on %s: %w", name, table, err)
	}
	return n > 0, nil
}

func (PostgresDialect) HasConstraint(ctx context.Context, q DBTX, table, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.table_constraints
		WHERE table_schema = current_schema() AND table_name = $1
		  AND constraint_name = $2 AND constraint_type = 'UNIQUE'
	`, table, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup constraint %s on %s: %w", name, table, err)
	}
	return n > 0, nil
}

func (PostgresDialect) DropConstraintSQL(table, name string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, name), nil
}

func (PostgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanStrings(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
	Close() error
}) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

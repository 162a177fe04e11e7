package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	d, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSQLiteBaselineColumns(t *testing.T) {
	d := openMemory(t)
	ctx := context.Background()

	cols, err := d.Dialect.ListColumns(ctx, d.SQL, "product")
	require.NoError(t, err)
	require.Contains(t, cols, "unique_item_number")
	require.Contains(t, cols, "barbuddy_code")
	require.NotContains(t, cols, "user_id", "baseline predates tenant scoping")

	cols, err = d.Dialect.ListColumns(ctx, d.SQL, "no_such_table")
	require.NoError(t, err)
	require.Empty(t, cols)
}

func TestSQLiteHasUniqueIndex(t *testing.T) {
	d := openMemory(t)
	ctx := context.Background()

	ok, err := d.Dialect.HasUniqueIndex(ctx, d.SQL, "product", "product_unique_item_number_key")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = d.Dialect.HasUniqueIndex(ctx, d.SQL, "verification_code", "ix_verification_code_email")
	require.NoError(t, err)
	require.False(t, ok, "non-unique index must not count")

	ok, err = d.Dialect.HasConstraint(ctx, d.SQL, "product", "product_unique_item_number_key")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteIsUniqueViolation(t *testing.T) {
	d := openMemory(t)
	ctx := context.Background()

	insert := `INSERT INTO users (username, email, password) VALUES (?, ?, ?)`
	_, err := d.SQL.ExecContext(ctx, insert, "alice", "a@x.com", "hash")
	require.NoError(t, err)

	_, err = d.SQL.ExecContext(ctx, insert, "alice", "other@x.com", "hash")
	require.Error(t, err)
	require.True(t, d.Dialect.IsUniqueViolation(err))
	require.True(t, d.Dialect.IsUniqueViolation(fmt.Errorf("wrapped: %w", err)))
	require.False(t, d.Dialect.IsUniqueViolation(errors.New("disk full")))
	require.False(t, d.Dialect.IsUniqueViolation(nil))
}

func TestSQLiteMigrateIsRepeatable(t *testing.T) {
	d := openMemory(t)
	require.NoError(t, migrate(d.SQL, d.Dialect))
}

func TestPostgresRebind(t *testing.T) {
	p := PostgresDialect{}
	got := p.Rebind(`SELECT * FROM product WHERE user_id = ? AND description = 'what?' AND id = ?`)
	require.Equal(t, `SELECT * FROM product WHERE user_id = $1 AND description = 'what?' AND id = $2`, got)
	require.Equal(t, "SELECT 1", p.Rebind("SELECT 1"))
}

func TestPostgresListColumns(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`(?s)SELECT column_name\s+FROM information_schema.columns`).
		WithArgs("product").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("user_id"))

	cols, err := PostgresDialect{}.ListColumns(context.Background(), sqlDB, "product")
	require.NoError(t, err)
	require.Equal(t, []string{"id", "user_id"}, cols)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHasConstraintAndIndex(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.table_constraints")).
		WithArgs("product", "product_barbuddy_code_key").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_indexes")).
		WithArgs("product", "uq_product_user_barbuddy_code").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	p := PostgresDialect{}
	ok, err := p.HasConstraint(context.Background(), sqlDB, "product", "product_barbuddy_code_key")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.HasUniqueIndex(context.Background(), sqlDB, "product", "uq_product_user_barbuddy_code")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIntrospectionError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("FROM pg_indexes").WillReturnError(errors.New("permission denied"))

	_, err = PostgresDialect{}.HasUniqueIndex(context.Background(), sqlDB, "product", "x")
	require.ErrorContains(t, err, "permission denied")
}

func TestPostgresDropConstraintAndUniqueViolation(t *testing.T) {
	p := PostgresDialect{}
	stmt, err := p.DropConstraintSQL("product", "product_barbuddy_code_key")
	require.NoError(t, err)
	require.Equal(t, "ALTER TABLE product DROP CONSTRAINT product_barbuddy_code_key", stmt)

	require.True(t, p.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	require.False(t, p.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))

	_, err = SQLiteDialect{}.DropConstraintSQL("product", "x")
	require.ErrorIs(t, err, ErrUnsupported)
}

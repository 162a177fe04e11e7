package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func countUsers(t *testing.T, d *DB) int {
	t.Helper()
	var n int
	require.NoError(t, d.SQL.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	d := openMemory(t)

	err := d.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (username, email, password) VALUES ('a', 'a@x.com', 'h')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countUsers(t, d))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	d := openMemory(t)

	err := d.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO users (username, email, password) VALUES ('a', 'a@x.com', 'h')`)
		require.NoError(t, e)
		return errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, 0, countUsers(t, d))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	d := openMemory(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countUsers(t, d))
	}()

	_ = d.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO users (username, email, password) VALUES ('a', 'a@x.com', 'h')`)
		require.NoError(t, e)
		panic("kaput")
	})
}

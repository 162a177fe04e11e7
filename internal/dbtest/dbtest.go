// Package dbtest prepara bases SQLite en memoria ya reconciliadas para tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bar-bartender/internal/db"
	"bar-bartender/internal/schema"
)

// New abre una base en memoria con la migracion base y el reconciliador
// aplicados.
func New(t testing.TB) *db.DB {
	t.Helper()
	store, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, res := range schema.NewReconciler(store, zap.NewNop()).Ensure(context.Background()) {
		require.NotEqual(t, schema.OutcomeFailed, res.Outcome, "%s: %v", res.Step, res.Err)
	}
	return store
}

// CreateUser inserta una cuenta y devuelve su id.
func CreateUser(t testing.TB, store *db.DB, username, email string) int64 {
	t.Helper()
	var id int64
	err := store.SQL.QueryRowContext(context.Background(),
		store.Dialect.Rebind(`INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		username, email, "x", time.Now().UTC(),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

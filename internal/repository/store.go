package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bar-bartender/internal/db"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store agrupa los repositorios sobre un mismo handle, sea la base o una
// transaccion abierta por InTx.
type Store struct {
	db   *db.DB
	q    db.DBTX
	inTx bool
}

func NewStore(d *db.DB) *Store {
	return &Store{db: d, q: d.SQL}
}

// InTx ejecuta fn con repositorios ligados a una transaccion. Si el Store ya
// es transaccional reutiliza la transaccion en curso.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(&Store{db: s.db, q: tx, inTx: true})
	})
}

func (s *Store) Users() UserRepository {
	return &SQLUserRepository{q: s.q, d: s.db.Dialect}
}

func (s *Store) Verifications() VerificationRepository {
	return &SQLVerificationRepository{q: s.q, d: s.db.Dialect}
}

func (s *Store) Products() ProductRepository {
	return &SQLProductRepository{q: s.q, d: s.db.Dialect}
}

func (s *Store) Homemade() HomemadeRepository {
	return &SQLHomemadeRepository{q: s.q, d: s.db.Dialect}
}

func (s *Store) Recipes() RecipeRepository {
	return &SQLRecipeRepository{q: s.q, d: s.db.Dialect}
}

// translate normaliza errores del driver a los sentinelas del paquete.
func translate(d db.Dialect, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case d.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// nullable guarda "" como NULL; los indices de unicidad parciales ignoran NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func insertReturningID(ctx context.Context, q db.DBTX, d db.Dialect, query string, args ...any) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, d.Rebind(query+" RETURNING id"), args...).Scan(&id)
	return id, err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

package repository

import (
	"context"
	"strings"
	"time"

	"bar-bartender/internal/db"
	"bar-bartender/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

// SQLUserRepository implementa UserRepository sobre database/sql.
type SQLUserRepository struct {
	q db.DBTX
	d db.Dialect
}

func (r *SQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO users (username, email, password, created_at)
		VALUES (?, ?, ?, ?)`
	id, err := insertReturningID(ctx, r.q, r.d, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		return translate(r.d, "insert user", err)
	}
	user.ID = id
	return nil
}

func (r *SQLUserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail compara sin distinguir mayusculas.
func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "LOWER(email)", strings.ToLower(email))
}

func (r *SQLUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *SQLUserRepository) getBy(ctx context.Context, column string, value any) (domain.User, error) {
	query := `
		SELECT id, username, email, password, created_at
		FROM users
		WHERE ` + column + ` = ?`
	var u domain.User
	err := r.q.QueryRowContext(ctx, r.d.Rebind(query), value).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, translate(r.d, "select user", err)
	}
	return u, nil
}

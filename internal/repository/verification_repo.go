package repository

import (
	"context"
	"time"

	"bar-bartender/internal/db"
	"bar-bartender/internal/domain"
)

// VerificationRepository persiste los registros de verificacion por email.
type VerificationRepository interface {
	Create(ctx context.Context, v *domain.VerificationCode) error
	// LatestUnverified devuelve el registro no verificado mas reciente.
	LatestUnverified(ctx context.Context, email string) (domain.VerificationCode, error)
	// LatestForEmail ignora el estado verificado.
	LatestForEmail(ctx context.Context, email string) (domain.VerificationCode, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
	DeleteByID(ctx context.Context, id int64) error
	MarkVerified(ctx context.Context, id int64) error
	DeleteVerified(ctx context.Context, email string) (int64, error)
	CountByEmail(ctx context.Context, email string) (int, error)
}

type SQLVerificationRepository struct {
	q db.DBTX
	d db.Dialect
}

func (r *SQLVerificationRepository) Create(ctx context.Context, v *domain.VerificationCode) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO verification_code (email, code, username, password_hash, expires_at, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	id, err := insertReturningID(ctx, r.q, r.d, query,
		v.Email,
		v.Code,
		v.Username,
		v.PasswordHash,
		v.ExpiresAt.UTC(),
		v.Verified,
		v.CreatedAt.UTC(),
	)
	if err != nil {
		return translate(r.d, "insert verification code", err)
	}
	v.ID = id
	return nil
}

const selectVerification = `
	SELECT id, email, code, username, password_hash, expires_at, verified, created_at
	FROM verification_code`

func (r *SQLVerificationRepository) LatestUnverified(ctx context.Context, email string) (domain.VerificationCode, error) {
	query := selectVerification + `
	WHERE email = ? AND verified = ?
	ORDER BY created_at DESC, id DESC
	LIMIT 1`
	return r.scanOne(ctx, query, email, false)
}

func (r *SQLVerificationRepository) LatestForEmail(ctx context.Context, email string) (domain.VerificationCode, error) {
	query := selectVerification + `
	WHERE email = ?
	ORDER BY created_at DESC, id DESC
	LIMIT 1`
	return r.scanOne(ctx, query, email)
}

func (r *SQLVerificationRepository) scanOne(ctx context.Context, query string, args ...any) (domain.VerificationCode, error) {
	var v domain.VerificationCode
	err := r.q.QueryRowContext(ctx, r.d.Rebind(query), args...).Scan(
		&v.ID,
		&v.Email,
		&v.Code,
		&v.Username,
		&v.PasswordHash,
		&v.ExpiresAt,
		&v.Verified,
		&v.CreatedAt,
	)
	if err != nil {
		return domain.VerificationCode{}, translate(r.d, "select verification code", err)
	}
	return v, nil
}

func (r *SQLVerificationRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	return r.exec(ctx, "delete verification codes", `DELETE FROM verification_code WHERE email = ?`, email)
}

func (r *SQLVerificationRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, "delete verification code", `DELETE FROM verification_code WHERE id = ?`, id)
	return err
}

func (r *SQLVerificationRepository) MarkVerified(ctx context.Context, id int64) error {
	n, err := r.exec(ctx, "mark verified", `UPDATE verification_code SET verified = ? WHERE id = ?`, true, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLVerificationRepository) DeleteVerified(ctx context.Context, email string) (int64, error) {
	return r.exec(ctx, "delete verified codes",
		`DELETE FROM verification_code WHERE email = ? AND verified = ?`, email, true)
}

func (r *SQLVerificationRepository) CountByEmail(ctx context.Context, email string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		r.d.Rebind(`SELECT COUNT(*) FROM verification_code WHERE email = ?`), email,
	).Scan(&n)
	if err != nil {
		return 0, translate(r.d, "count verification codes", err)
	}
	return n, nil
}

func (r *SQLVerificationRepository) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return 0, translate(r.d, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translate(r.d, op, err)
	}
	return n, nil
}

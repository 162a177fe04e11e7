package domain

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// VerificationTTL es la vigencia de un codigo de verificacion.
const VerificationTTL = 10 * time.Minute

// VerificationCode representa un intento de registro en curso.
type VerificationCode struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Code         string    `json:"-"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired indica si el codigo ya no puede canjearse en now.
func (v VerificationCode) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

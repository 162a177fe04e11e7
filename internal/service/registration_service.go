package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bar-bartender/internal/domain"
	"bar-bartender/internal/email"
	"bar-bartender/internal/repository"
)

const (
	verificationCodeLength = 6
	minPasswordLength      = 6
	maxUsernameLength      = 150
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrNoPendingSignup    = errors.New("no pending registration")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrCodeInvalid        = errors.New("verification code invalid")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrRateLimited        = errors.New("rate limited")
	ErrTooManyAttempts    = errors.New("too many verification attempts")
	ErrRegistrationFailed = errors.New("registration failed")

	errAccountRace = errors.New("account created concurrently")
)

// RegistrationInput son los datos del formulario de alta.
type RegistrationInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// PendingRegistration describe el registro a la espera del codigo. Nunca
// incluye el codigo.
type PendingRegistration struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegistrationService implementa el alta con verificacion por correo. El
// registro pendiente vive solo en verification_code; el cliente solo
// conserva el email entre pasos.
type RegistrationService struct {
	logger  *zap.Logger
	store   *repository.Store
	sender  email.Sender
	limiter RegistrationLimiter
	now     func() time.Time
	newCode func() (string, error)
}

func NewRegistrationService(logger *zap.Logger, store *repository.Store, sender email.Sender, limiter RegistrationLimiter) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewRegistrationLimiter(RegistrationLimits{Window: domain.VerificationTTL, MaxCodes: 3, MaxAttempts: 5})
	}
	return &RegistrationService{
		logger:  logger,
		store:   store,
		sender:  sender,
		limiter: limiter,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: generateVerificationCode,
	}
}

// Start valida los datos, reemplaza cualquier registro previo del email y
// envia un codigo nuevo.
func (s *RegistrationService) Start(ctx context.Context, in RegistrationInput) (PendingRegistration, error) {
	emailAddr := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if !validEmail(emailAddr) {
		return PendingRegistration{}, ErrInvalidEmail
	}
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return PendingRegistration{}, ErrInvalidUsername
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return PendingRegistration{}, ErrPasswordTooShort
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return PendingRegistration{}, ErrPasswordMismatch
	}

	if err := s.checkAvailable(ctx, s.store.Users(), emailAddr, username); err != nil {
		return PendingRegistration{}, err
	}
	if !s.limiter.AllowCode(emailAddr) {
		return PendingRegistration{}, ErrRateLimited
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return PendingRegistration{}, fmt.Errorf("hash password: %w", err)
	}

	return s.issue(ctx, emailAddr, username, string(hash))
}

// Resend reemplaza el codigo pendiente conservando usuario y hash del
// ultimo registro del email.
func (s *RegistrationService) Resend(ctx context.Context, emailAddr string) (PendingRegistration, error) {
	emailAddr = normalizeEmail(emailAddr)
	if !validEmail(emailAddr) {
		return PendingRegistration{}, ErrInvalidEmail
	}

	latest, err := s.store.Verifications().LatestForEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return PendingRegistration{}, ErrNoPendingSignup
		}
		return PendingRegistration{}, s.storageFailure("load pending registration", emailAddr, err)
	}
	if latest.Verified || latest.Username == "" || latest.PasswordHash == "" {
		return PendingRegistration{}, ErrNoPendingSignup
	}
	if !s.limiter.AllowCode(emailAddr) {
		return PendingRegistration{}, ErrRateLimited
	}

	return s.issue(ctx, emailAddr, latest.Username, latest.PasswordHash)
}

// Verify canjea el codigo. Un codigo vencido se borra; uno incorrecto no
// modifica el registro hasta agotar los intentos, y entonces se borra. El alta de la cuenta y la limpieza de registros ocurren en
// una sola transaccion.
func (s *RegistrationService) Verify(ctx context.Context, emailAddr, code string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if !validEmail(emailAddr) {
		return domain.User{}, ErrInvalidEmail
	}

	pending, err := s.store.Verifications().LatestUnverified(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrNoPendingSignup
		}
		return domain.User{}, s.storageFailure("load verification code", emailAddr, err)
	}

	if pending.Expired(s.now()) {
		if err := s.store.Verifications().DeleteByID(ctx, pending.ID); err != nil {
			s.logger.Warn("delete expired verification code failed", zap.Error(err), zap.String("email", emailAddr))
		}
		return domain.User{}, ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(pending.Code)) != 1 {
		if !s.limiter.FailedAttempt(emailAddr) {
			return domain.User{}, ErrCodeInvalid
		}
		s.logger.Warn("verification attempts exhausted", zap.String("email", emailAddr))
		if _, err := s.store.Verifications().DeleteByEmail(ctx, emailAddr); err != nil {
			s.logger.Error("delete exhausted verification code failed", zap.Error(err), zap.String("email", emailAddr))
		}
		s.limiter.ResetAttempts(emailAddr)
		return domain.User{}, ErrTooManyAttempts
	}

	user := domain.User{
		Username:     pending.Username,
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		CreatedAt:    s.now(),
	}
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := s.checkAvailable(ctx, tx.Users(), user.Email, user.Username); err != nil {
			return err
		}
		if err := tx.Users().Create(ctx, &user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errAccountRace
			}
			return err
		}
		if err := tx.Verifications().MarkVerified(ctx, pending.ID); err != nil {
			return err
		}
		_, err := tx.Verifications().DeleteVerified(ctx, user.Email)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, errAccountRace):
		return domain.User{}, s.accountConflict(ctx, user.Email, user.Username)
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrRegistrationFailed):
		return domain.User{}, err
	default:
		return domain.User{}, s.storageFailure("create account", emailAddr, err)
	}

	s.limiter.ResetAttempts(emailAddr)
	s.logger.Info("account created", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// issue borra lo anterior, persiste el codigo nuevo y lo envia. Si el envio
// falla el codigo recien creado se borra.
func (s *RegistrationService) issue(ctx context.Context, emailAddr, username, passwordHash string) (PendingRegistration, error) {
	code, err := s.newCode()
	if err != nil {
		return PendingRegistration{}, fmt.Errorf("generate code: %w", err)
	}

	now := s.now()
	record := domain.VerificationCode{
		Email:        emailAddr,
		Code:         code,
		Username:     username,
		PasswordHash: passwordHash,
		ExpiresAt:    now.Add(domain.VerificationTTL),
		CreatedAt:    now,
	}
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := tx.Verifications().DeleteByEmail(ctx, emailAddr); err != nil {
			return err
		}
		return tx.Verifications().Create(ctx, &record)
	})
	if err != nil {
		return PendingRegistration{}, s.storageFailure("store verification code", emailAddr, err)
	}

	if s.sender == nil {
		err = errors.New("email sender not configured")
	} else {
		err = s.sender.Send(ctx, email.VerificationMessage(emailAddr, code))
	}
	if err != nil {
		s.logger.Warn("send verification code failed", zap.Error(err), zap.String("email", emailAddr))
		if delErr := s.store.Verifications().DeleteByID(ctx, record.ID); delErr != nil {
			s.logger.Error("delete unsent verification code failed", zap.Error(delErr), zap.String("email", emailAddr))
		}
		return PendingRegistration{}, ErrEmailSendFailure
	}

	s.limiter.ResetAttempts(emailAddr)
	return PendingRegistration{
		Email:     emailAddr,
		Username:  username,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// accountConflict decide que dato tomo la cuenta concurrente. Corre despues
// del rollback, cuando la otra transaccion ya es visible.
func (s *RegistrationService) accountConflict(ctx context.Context, emailAddr, username string) error {
	if err := s.checkAvailable(ctx, s.store.Users(), emailAddr, username); err != nil {
		return err
	}
	return ErrEmailTaken
}

func (s *RegistrationService) checkAvailable(ctx context.Context, users repository.UserRepository, emailAddr, username string) error {
	if _, err := users.GetByEmail(ctx, emailAddr); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return s.storageFailure("lookup email", emailAddr, err)
	}
	if _, err := users.GetByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return s.storageFailure("lookup username", emailAddr, err)
	}
	return nil
}

func (s *RegistrationService) storageFailure(op, emailAddr string, err error) error {
	s.logger.Error(op+" failed", zap.Error(err), zap.String("email", emailAddr))
	return fmt.Errorf("%w: %s", ErrRegistrationFailed, op)
}

// generateVerificationCode sortea cada digito por separado desde crypto/rand.
func generateVerificationCode() (string, error) {
	var b strings.Builder
	b.Grow(verificationCodeLength)
	ten := big.NewInt(10)
	for i := 0; i < verificationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// validEmail exige una arroba y un punto en el dominio.
func validEmail(addr string) bool {
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	if strings.ContainsAny(addr, " \t\r\n") {
		return false
	}
	domainPart := addr[at+1:]
	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}

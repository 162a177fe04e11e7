package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bar-bartender/internal/domain"
	"bar-bartender/internal/repository"
)

type mockUserRepo struct {
	usersByID    map[int64]domain.User
	usersByEmail map[string]int64
	nextID       int64
	err          error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[int64]domain.User),
		usersByEmail: make(map[string]int64),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	m.nextID++
	user.ID = m.nextID
	m.usersByID[user.ID] = *user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	if m.err != nil {
		return domain.User{}, m.err
	}
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if m.err != nil {
		return domain.User{}, m.err
	}
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	for _, u := range m.usersByID {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func seedUser(t *testing.T, repo *mockUserRepo, email, password string) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := domain.User{Username: "alice", Email: email, PasswordHash: string(hash), CreatedAt: time.Now().UTC()}
	if err := repo.Create(context.Background(), &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestUserServiceAuthenticate_Success(t *testing.T) {
	repo := newMockUserRepo()
	seeded := seedUser(t, repo, "a@x.com", "secret1")
	svc := NewUserService(zap.NewNop(), repo)

	user, err := svc.Authenticate(context.Background(), "  A@X.COM ", "secret1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if user.ID != seeded.ID {
		t.Fatalf("expected user %d, got %d", seeded.ID, user.ID)
	}
}

func TestUserServiceAuthenticate_InvalidCredentials(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "a@x.com", "secret1")
	repo.usersByID[99] = domain.User{ID: 99, Email: "nohash@x.com"}
	repo.usersByEmail["nohash@x.com"] = 99
	svc := NewUserService(zap.NewNop(), repo)

	cases := []struct {
		email, password string
	}{
		{"a@x.com", "wrong"},
		{"missing@x.com", "secret1"},
		{"", "secret1"},
		{"a@x.com", ""},
		{"nohash@x.com", "anything"},
	}
	for _, tc := range cases {
		if _, err := svc.Authenticate(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%q/%q: expected ErrInvalidCredentials, got %v", tc.email, tc.password, err)
		}
	}
}

func TestUserServiceAuthenticate_StorageError(t *testing.T) {
	repo := newMockUserRepo()
	repo.err = errors.New("db down")
	svc := NewUserService(zap.NewNop(), repo)

	_, err := svc.Authenticate(context.Background(), "a@x.com", "secret1")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected storage error to surface, got %v", err)
	}
}

func TestUserServiceGet(t *testing.T) {
	repo := newMockUserRepo()
	seeded := seedUser(t, repo, "a@x.com", "secret1")
	svc := NewUserService(zap.NewNop(), repo)

	if _, err := svc.Get(context.Background(), seeded.ID); err != nil {
		t.Fatalf("expected user, got %v", err)
	}
	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

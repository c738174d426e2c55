package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pbessa/diario-turma-api/internal/models"
	appErrors "github.com/pbessa/diario-turma-api/pkg/errors"
)

type fakeUserRepo struct {
	users     map[string]*models.User
	lastLogin time.Time
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	f.lastLogin = ts
	return nil
}

func newTestAuthService(t *testing.T, active bool) (*AuthService, *fakeUserRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "prof@escola.br", Name: "Professora", PasswordHash: string(hash), Active: active},
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "diario-turma",
	})
	return svc, repo
}

func TestLoginSuccess(t *testing.T) {
	svc, repo := newTestAuthService(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@escola.br", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Empty(t, resp.User.PasswordHash)
	assert.False(t, repo.lastLogin.IsZero())

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "prof@escola.br", claims.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@escola.br", Password: "wrong-wrong"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestAuthService(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@escola.br", Password: "correct-horse"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, _ := newTestAuthService(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@escola.br", Password: "correct-horse"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestLoginValidation(t *testing.T) {
	svc, _ := newTestAuthService(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "short"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc, _ := newTestAuthService(t, true)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@escola.br", Password: "correct-horse"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc, _ := newTestAuthService(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@escola.br", Password: "correct-horse"})
	require.NoError(t, err)

	other := NewAuthService(&fakeUserRepo{}, nil, nil, AuthConfig{Secret: "other-secret", Expiration: time.Hour})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

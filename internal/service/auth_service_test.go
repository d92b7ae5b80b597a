package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/grayson-dev/gcis-api/internal/models"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type authRepoStub struct {
	user    *models.User
	tokens  map[string]*models.RefreshToken
	revoked []string
}

func newAuthRepoStub(user *models.User) *authRepoStub {
	return &authRepoStub{user: user, tokens: map[string]*models.RefreshToken{}}
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := s.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string) error {
	s.revoked = append(s.revoked, id)
	for _, t := range s.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	for _, t := range s.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func authTestUser(t *testing.T, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("sw0rdfish"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           1,
		Email:        "grayson@example.edu",
		Username:     "grayson",
		PasswordHash: string(hash),
		Active:       active,
	}
}

func newAuthService(repo *authRepoStub) *AuthService {
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		Secret:        "test-secret",
		AccessExpiry:  time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})
}

func TestLoginIssuesValidAccessToken(t *testing.T) {
	repo := newAuthRepoStub(authTestUser(t, true))
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "grayson@example.edu", Password: "sw0rdfish"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "grayson", claims.Username)
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	svc := newAuthService(newAuthRepoStub(authTestUser(t, true)))

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "grayson@example.edu", Password: "nope"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
}

func TestLoginUnknownEmailMatchesWrongPasswordError(t *testing.T) {
	svc := newAuthService(newAuthRepoStub(authTestUser(t, true)))

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "other@example.edu", Password: "sw0rdfish"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
}

func TestLoginInactiveAccountForbidden(t *testing.T) {
	svc := newAuthService(newAuthRepoStub(authTestUser(t, false)))

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "grayson@example.edu", Password: "sw0rdfish"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ACCOUNT_INACTIVE", appErr.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoStub(authTestUser(t, true))
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "grayson@example.edu", Password: "sw0rdfish"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The consumed token must not be usable again.
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)

	// Replaying a revoked token kills the whole family.
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: refreshed.RefreshToken})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestRefreshExpiredTokenRejected(t *testing.T) {
	repo := newAuthRepoStub(authTestUser(t, true))
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    1,
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	svc := newAuthService(repo)

	_, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "stale"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	repo := newAuthRepoStub(authTestUser(t, true))
	repo.tokens["theirs"] = &models.RefreshToken{
		ID:        "rt-2",
		UserID:    99,
		Token:     "theirs",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := newAuthService(repo)

	err := svc.Logout(context.Background(), "theirs", 1)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Empty(t, repo.revoked)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	repo := newAuthRepoStub(authTestUser(t, true))
	issuer := newAuthService(repo)
	login, err := issuer.Login(context.Background(), models.LoginRequest{Email: "grayson@example.edu", Password: "sw0rdfish"})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{Secret: "different", AccessExpiry: time.Hour, RefreshExpiry: time.Hour})
	_, err = other.ValidateToken(login.AccessToken)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

package usecase

import (
	"context"
	"testing"

	"bookvault/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthFixture(t *testing.T) (AuthService, *fakeUserRepo, *fakeRefreshTokenRepo) {
	t.Helper()
	repo, users, _, _, tokens := newTestRepository()
	svc := NewAuthService(repo, testConfig(), zap.NewNop())
	return svc, users, tokens
}

func TestSignupAndLogin(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	auth, err := svc.Signup(ctx, &request.SignupRequest{
		Email:     "Reader@Example.com",
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "Reader",
	})
	require.NoError(t, err)
	// Email is normalized on the way in
	assert.Equal(t, "reader@example.com", auth.User.Email)
	require.NotNil(t, auth.Tokens)
	assert.NotEmpty(t, auth.Tokens.AccessToken)
	assert.NotEmpty(t, auth.Tokens.RefreshToken)

	_, err = svc.Signup(ctx, &request.SignupRequest{
		Email:     "reader@example.com",
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "Reader",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.Login(ctx, &request.LoginRequest{
		Email:    "reader@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotNil(t, login.Tokens)

	_, err = svc.Login(ctx, &request.LoginRequest{
		Email:    "reader@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email gets the same error as a wrong password
	_, err = svc.Login(ctx, &request.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	auth, err := svc.Signup(ctx, &request.SignupRequest{
		Email:     "reader@example.com",
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "Reader",
	})
	require.NoError(t, err)
	oldRefresh := auth.Tokens.RefreshToken

	refreshed, err := svc.Refresh(ctx, &request.RefreshRequest{RefreshToken: oldRefresh})
	require.NoError(t, err)
	assert.NotEqual(t, oldRefresh, refreshed.Tokens.RefreshToken)

	// The consumed token no longer refreshes
	_, err = svc.Refresh(ctx, &request.RefreshRequest{RefreshToken: oldRefresh})
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	svc, users, tokens := newAuthFixture(t)
	ctx := context.Background()

	auth, err := svc.Signup(ctx, &request.SignupRequest{
		Email:     "reader@example.com",
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "Reader",
	})
	require.NoError(t, err)
	oldRefresh := auth.Tokens.RefreshToken

	refreshed, err := svc.Refresh(ctx, &request.RefreshRequest{RefreshToken: oldRefresh})
	require.NoError(t, err)

	// Replaying the rotated-out token kills the whole family
	_, err = svc.Refresh(ctx, &request.RefreshRequest{RefreshToken: oldRefresh})
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = svc.Refresh(ctx, &request.RefreshRequest{RefreshToken: refreshed.Tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	user, err := users.FindByEmail(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, tokens.activeCount(user.ID))
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	auth, err := svc.Signup(ctx, &request.SignupRequest{
		Email:     "reader@example.com",
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "Reader",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, auth.Tokens.RefreshToken))
	require.NoError(t, svc.Logout(ctx, auth.Tokens.RefreshToken))
	require.NoError(t, svc.Logout(ctx, "never-issued"))

	_, err = svc.Refresh(ctx, &request.RefreshRequest{RefreshToken: auth.Tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestForgotPasswordNeverRevealsAccounts(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, &request.SignupRequest{
		Email:     "reader@example.com",
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "Reader",
	})
	require.NoError(t, err)

	assert.NoError(t, svc.ForgotPassword(ctx, "reader@example.com"))
	assert.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"))
}

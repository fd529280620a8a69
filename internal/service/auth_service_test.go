package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/onboarding"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
)

func newTestAuthService() (*AuthService, *fakeAuthRepo, *recordingNotifier) {
	repo := newFakeAuthRepo(newFakeOnboardingRepo())
	notifier := &recordingNotifier{}
	tokenManager := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	return NewAuthService(repo, tokenManager, notifier), repo, notifier
}

func validRegistration() RegisterInput {
	return RegisterInput{
		FullName:        "Marie Curie",
		Email:           "Marie@Example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	service, repo, notifier := newTestAuthService()
	ctx := context.Background()

	res, err := service.Register(ctx, validRegistration(), SessionMeta{IP: "127.0.0.1"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.User.ID)
	assert.Equal(t, "marie@example.com", res.User.Email)
	assert.Equal(t, onboarding.StageCriteria, res.Onboarding.Stage)
	assert.True(t, res.Onboarding.IsAuthenticated)
	assert.False(t, res.Onboarding.IsProviderConnected)
	require.Len(t, repo.sessions, 1)

	loginRes, err := service.Login(ctx, LoginInput{Email: "marie@example.com", Password: "password123"}, SessionMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, loginRes.TokenPair.AccessToken)
	assert.Len(t, repo.sessions, 2)
	assert.NotNil(t, repo.usersByID[res.User.ID].LastLoginAt)

	assert.Equal(t, []string{"Inscription réussie", "Connexion réussie"}, notifier.titles())
}

func TestAuthService_RegisterRejectsDuplicateEmail(t *testing.T) {
	service, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := service.Register(ctx, validRegistration(), SessionMeta{})
	require.NoError(t, err)

	_, err = service.Register(ctx, validRegistration(), SessionMeta{})
	assert.ErrorIs(t, err, apperror.ErrEmailTaken)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	service, repo, _ := newTestAuthService()

	in := validRegistration()
	in.ConfirmPassword = "different"
	_, err := service.Register(context.Background(), in, SessionMeta{})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, repo.usersByID)
}

func TestAuthService_RegisterNormalizesEmailBeforeValidation(t *testing.T) {
	service, _, _ := newTestAuthService()
	ctx := context.Background()

	in := validRegistration()
	in.Email = "  Marie@Example.com "
	res, err := service.Register(ctx, in, SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, "marie@example.com", res.User.Email)

	_, err = service.Login(ctx, LoginInput{Email: " marie@example.com", Password: "password123"}, SessionMeta{})
	require.NoError(t, err)
}

func TestAuthService_LoginFailures(t *testing.T) {
	service, repo, _ := newTestAuthService()
	ctx := context.Background()

	_, err := service.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"}, SessionMeta{})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	res, err := service.Register(ctx, validRegistration(), SessionMeta{})
	require.NoError(t, err)

	_, err = service.Login(ctx, LoginInput{Email: "marie@example.com", Password: "wrong-password"}, SessionMeta{})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	repo.usersByID[res.User.ID].IsActive = false
	_, err = service.Login(ctx, LoginInput{Email: "marie@example.com", Password: "password123"}, SessionMeta{})
	assert.ErrorIs(t, err, apperror.ErrAccountDisabled)
}

func TestAuthService_Refresh(t *testing.T) {
	service, repo, _ := newTestAuthService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: string(hash),
		IsActive:     true,
	}
	repo.usersByEmail[user.Email] = user
	repo.usersByID[user.ID] = user

	sessionID := uuid.New()
	tokenPair, accessExp, refreshExp, err := service.tokenManager.GeneratePair(user, sessionID)
	require.NoError(t, err)
	assert.True(t, accessExp.Before(refreshExp), "access должен истекать раньше refresh")

	repo.sessions[sessionID] = &models.Session{
		ID:           sessionID,
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}

	newPair, err := service.Refresh(ctx, tokenPair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokenPair.RefreshToken, newPair.RefreshToken)

	ref, err := service.tokenManager.ParseAccess(newPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sessionID, ref.SessionID)
	assert.Equal(t, user.ID, ref.UserID)

	_, err = service.Refresh(ctx, tokenPair.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound, "старый refresh токен больше не действует")
}

func TestAuthService_RefreshRejectsGarbage(t *testing.T) {
	service, _, _ := newTestAuthService()

	_, err := service.Refresh(context.Background(), "not-a-token")
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestAuthService_LogoutRunsHooksAndDropsState(t *testing.T) {
	service, repo, _ := newTestAuthService()
	ctx := context.Background()

	res, err := service.Register(ctx, validRegistration(), SessionMeta{})
	require.NoError(t, err)

	ref, err := service.tokenManager.ParseAccess(res.TokenPair.AccessToken)
	require.NoError(t, err)

	var got []SessionRef
	service.OnLogout(func(r SessionRef) { got = append(got, r) })

	require.NoError(t, service.Logout(ctx, ref))
	assert.Equal(t, []SessionRef{ref}, got)
	assert.Empty(t, repo.sessions)

	_, err = repo.states.Get(ctx, ref.SessionID)
	assert.Error(t, err)

	assert.ErrorIs(t, service.Logout(ctx, ref), apperror.ErrSessionNotFound)
	assert.Len(t, got, 1)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/jobautomate-backend/internal/logger"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/onboarding"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/repository"
	"github.com/ignatzorin/jobautomate-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
	CreateSession(ctx context.Context, session *models.Session, state *models.OnboardingState) error
	GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	RotateSession(ctx context.Context, sessionID uuid.UUID, oldToken, newToken string, expiresAt time.Time) error
	DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error
}

// AuthService инкапсулирует регистрацию, вход и жизненный цикл сессий.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
	notifier     Notifier
	onLogout     []func(SessionRef)
	log          *logrus.Entry
}

// RegisterInput содержит данные формы регистрации.
type RegisterInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// SessionMeta — данные клиента для новой сессии.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// AuthResult возвращает итог регистрации или входа.
type AuthResult struct {
	User       *models.User     `json:"user"`
	TokenPair  *TokenPair       `json:"tokens"`
	Onboarding onboarding.State `json:"onboarding"`
}

// NewAuthService создаёт сервис аутентификации. notifier может быть nil.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager, notifier Notifier) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
		notifier:     notifier,
		log:          logger.WithComponent("auth"),
	}
}

// OnLogout регистрирует обработчик завершения сессии.
func (s *AuthService) OnLogout(fn func(SessionRef)) {
	s.onLogout = append(s.onLogout, fn)
}

// Register создаёт пользователя и открывает сессию на этапе criteria.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta SessionMeta) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	email := in.Email
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	var user *models.User
	orch := onboarding.New(onboarding.AuthenticatorFunc(func(ctx context.Context, email, password string) error {
		passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
		}

		created := &models.User{
			Email:        email,
			FullName:     strings.TrimSpace(in.FullName),
			PasswordHash: string(passHash),
		}
		if err := s.repo.Create(ctx, created); err != nil {
			if errors.Is(err, repository.ErrUserAlreadyExists) {
				return apperror.ErrEmailTaken
			}
			return err
		}
		user = created
		return nil
	}))

	if err := orch.SubmitCredentials(ctx, email, in.Password); err != nil {
		return nil, err
	}

	result, err := s.openSession(ctx, user, orch.State(), meta)
	if err != nil {
		return nil, err
	}

	notify(ctx, s.notifier, user.ID, RegisterNotice(user.Email))
	return result, nil
}

// Login проверяет учётные данные и открывает новую сессию.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta SessionMeta) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	var user *models.User
	orch := onboarding.New(onboarding.AuthenticatorFunc(func(ctx context.Context, email, password string) error {
		found, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return apperror.ErrInvalidCredentials
			}
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)); err != nil {
			return apperror.ErrInvalidCredentials
		}
		if !found.IsActive {
			return apperror.ErrAccountDisabled
		}
		user = found
		return nil
	}))

	if err := orch.SubmitCredentials(ctx, email, in.Password); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("не удалось обновить last_login_at")
	}

	result, err := s.openSession(ctx, user, orch.State(), meta)
	if err != nil {
		return nil, err
	}

	notify(ctx, s.notifier, user.ID, LoginNotice(user.Email))
	return result, nil
}

// Refresh выпускает новую пару токенов для той же сессии.
func (s *AuthService) Refresh(ctx context.Context, oldToken string) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	session, err := s.repo.GetSessionByRefreshToken(ctx, oldToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.ErrSessionNotFound
		}
		return nil, err
	}
	if session.ID.String() != claims.SessionID || session.UserID.String() != claims.Subject {
		return nil, apperror.ErrSessionNotFound
	}

	user, err := s.repo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountDisabled
	}

	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user, session.ID)
	if err != nil {
		return nil, fmt.Errorf("auth service: generate tokens %w", err)
	}

	if err := s.repo.RotateSession(ctx, session.ID, oldToken, tokenPair.RefreshToken, refreshExp); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.ErrSessionNotFound
		}
		return nil, err
	}

	return tokenPair, nil
}

// Logout завершает сессию. Состояние онбординга удаляется вместе с ней,
// следующий вход начинается с начального состояния.
func (s *AuthService) Logout(ctx context.Context, ref SessionRef) error {
	if err := s.repo.DeleteSessionByID(ctx, ref.SessionID, ref.UserID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return apperror.ErrSessionNotFound
		}
		return err
	}

	for _, fn := range s.onLogout {
		fn(ref)
	}
	return nil
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, state onboarding.State, meta SessionMeta) (*AuthResult, error) {
	sessionID := uuid.New()
	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user, sessionID)
	if err != nil {
		return nil, fmt.Errorf("auth service: generate tokens %w", err)
	}

	session := &models.Session{
		ID:           sessionID,
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		session.UserAgent = &ua
	}
	if meta.IP != "" {
		ip := meta.IP
		session.IPAddress = &ip
	}

	if err := s.repo.CreateSession(ctx, session, stateToModel(state)); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:       user,
		TokenPair:  tokenPair,
		Onboarding: state,
	}, nil
}

func validateRegistration(in RegisterInput) error {
	checks := []error{
		validation.ValidateFullName(in.FullName),
		validation.ValidateEmail(in.Email),
		validation.ValidatePassword(in.Password),
		validation.ValidatePasswordConfirmation(in.Password, in.ConfirmPassword),
	}
	for _, err := range checks {
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func stateToModel(state onboarding.State) *models.OnboardingState {
	return &models.OnboardingState{
		Stage:               string(state.Stage),
		IsAuthenticated:     state.IsAuthenticated,
		IsProviderConnected: state.IsProviderConnected,
		CriteriaCompleted:   state.CriteriaCompleted,
	}
}

func stateFromModel(m *models.OnboardingState) onboarding.State {
	return onboarding.State{
		Stage:               onboarding.Stage(m.Stage),
		IsAuthenticated:     m.IsAuthenticated,
		IsProviderConnected: m.IsProviderConnected,
		CriteriaCompleted:   m.CriteriaCompleted,
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/repository/common"
)

var (
	// ErrUserNotFound возвращается, когда запись пользователя не найдена.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists возвращается при повторной регистрации email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrSessionNotFound возвращается, когда сессия не найдена или refresh токен уже заменён.
	ErrSessionNotFound = errors.New("session not found")
)

// UserRepository отвечает за работу с таблицами users, user_sessions и onboarding_states.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, full_name, password_hash, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, is_active, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Email, user.FullName, user.PasswordHash,
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, ErrUserNotFound)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// UpdateLastLoginAt обновляет время последнего входа пользователя.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("user repository: update last login at %w", err)
	}

	return nil
}

// CreateSession сохраняет сессию и её состояние онбординга в одной транзакции.
// session.ID должен быть задан заранее: он попадает в access токен.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session, state *models.OnboardingState) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO user_sessions (id, user_id, refresh_token, user_agent, ip_address, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`
		if err := tx.QueryRowxContext(
			ctx,
			query,
			session.ID,
			session.UserID,
			session.RefreshToken,
			session.UserAgent,
			session.IPAddress,
			session.ExpiresAt,
		).Scan(&session.CreatedAt); err != nil {
			return fmt.Errorf("user repository: create session %w", err)
		}

		state.SessionID = session.ID
		state.UserID = session.UserID
		if err := upsertOnboardingState(ctx, tx, state); err != nil {
			return fmt.Errorf("user repository: create session state %w", err)
		}

		return nil
	})
}

// GetSessionByRefreshToken возвращает действующую сессию по refresh токену.
func (r *UserRepository) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	query := `
		SELECT id, user_id, refresh_token, user_agent, ip_address, expires_at, created_at
		FROM user_sessions
		WHERE refresh_token = $1 AND expires_at > NOW()
	`
	if err := r.db.GetContext(ctx, &session, query, refreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("user repository: get session %w", err)
	}

	return &session, nil
}

// SessionExists проверяет, что сессия ещё действует.
func (r *UserRepository) SessionExists(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM user_sessions WHERE id = $1 AND expires_at > NOW())`
	if err := r.db.GetContext(ctx, &exists, query, sessionID); err != nil {
		return false, fmt.Errorf("user repository: session exists %w", err)
	}

	return exists, nil
}

// RotateSession заменяет refresh токен, сохраняя идентификатор сессии и её состояние.
func (r *UserRepository) RotateSession(ctx context.Context, sessionID uuid.UUID, oldToken, newToken string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE user_sessions SET refresh_token = $1, expires_at = $2 WHERE id = $3 AND refresh_token = $4`,
		newToken, expiresAt, sessionID, oldToken,
	)
	if err != nil {
		return fmt.Errorf("user repository: rotate session %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository: rotate session rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteSessionByID удаляет сессию; состояние онбординга удаляется каскадно.
func (r *UserRepository) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete session by id %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository: delete session by id rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteExpiredSessions удаляет истёкшие сессии и возвращает их количество.
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("user repository: delete expired sessions %w", err)
	}

	return result.RowsAffected()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobautomate-backend/internal/models"
)

// ErrOnboardingStateNotFound возвращается, когда для сессии нет состояния.
var ErrOnboardingStateNotFound = errors.New("onboarding state not found")

// OnboardingRepository хранит состояние онбординга по сессиям.
type OnboardingRepository struct {
	db *sqlx.DB
}

// NewOnboardingRepository создаёт экземпляр репозитория.
func NewOnboardingRepository(db *sqlx.DB) *OnboardingRepository {
	return &OnboardingRepository{db: db}
}

// Get возвращает состояние сессии.
func (r *OnboardingRepository) Get(ctx context.Context, sessionID uuid.UUID) (*models.OnboardingState, error) {
	var state models.OnboardingState
	query := `
		SELECT session_id, user_id, stage, is_authenticated, is_provider_connected, criteria_completed, updated_at
		FROM onboarding_states
		WHERE session_id = $1
	`
	if err := r.db.GetContext(ctx, &state, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOnboardingStateNotFound
		}
		return nil, fmt.Errorf("onboarding repository: get %w", err)
	}

	return &state, nil
}

// Save создаёт или обновляет состояние сессии.
func (r *OnboardingRepository) Save(ctx context.Context, state *models.OnboardingState) error {
	if err := upsertOnboardingState(ctx, r.db, state); err != nil {
		return fmt.Errorf("onboarding repository: save %w", err)
	}

	return nil
}

func upsertOnboardingState(ctx context.Context, q sqlx.QueryerContext, state *models.OnboardingState) error {
	query := `
		INSERT INTO onboarding_states (session_id, user_id, stage, is_authenticated, is_provider_connected, criteria_completed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (session_id) DO UPDATE
		SET stage = EXCLUDED.stage,
			is_authenticated = EXCLUDED.is_authenticated,
			is_provider_connected = EXCLUDED.is_provider_connected,
			criteria_completed = EXCLUDED.criteria_completed,
			updated_at = NOW()
		RETURNING updated_at
	`

	return q.QueryRowxContext(
		ctx,
		query,
		state.SessionID,
		state.UserID,
		state.Stage,
		state.IsAuthenticated,
		state.IsProviderConnected,
		state.CriteriaCompleted,
	).Scan(&state.UpdatedAt)
}

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
)

// AutomationRepository хранит настройки автоматических откликов.
type AutomationRepository struct {
	db *sqlx.DB
}

// NewAutomationRepository создаёт экземпляр репозитория.
func NewAutomationRepository(db *sqlx.DB) *AutomationRepository {
	return &AutomationRepository{db: db}
}

// Get возвращает настройки пользователя или значения по умолчанию.
func (r *AutomationRepository) Get(ctx context.Context, userID uuid.UUID) (*models.AutomationSettings, error) {
	var settings models.AutomationSettings
	if err := r.db.GetContext(ctx, &settings,
		`SELECT * FROM automation_settings WHERE user_id = $1`, userID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultAutomationSettings(userID), nil
		}
		return nil, fmt.Errorf("automation repository: get %w", err)
	}

	return &settings, nil
}

// Upsert сохраняет настройки; last_run_at не меняется.
func (r *AutomationRepository) Upsert(ctx context.Context, settings *models.AutomationSettings) error {
	query := `
		INSERT INTO automation_settings (user_id, enabled, frequency, max_applications_per_day, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
			frequency = EXCLUDED.frequency,
			max_applications_per_day = EXCLUDED.max_applications_per_day,
			updated_at = NOW()
		RETURNING last_run_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		settings.UserID,
		settings.Enabled,
		settings.Frequency,
		settings.MaxApplicationsPerDay,
	).Scan(&settings.LastRunAt, &settings.UpdatedAt); err != nil {
		return fmt.Errorf("automation repository: upsert %w", err)
	}

	return nil
}

// ListEnabled возвращает включённые настройки.
func (r *AutomationRepository) ListEnabled(ctx context.Context) ([]models.AutomationSettings, error) {
	var list []models.AutomationSettings
	if err := r.db.SelectContext(ctx, &list,
		`SELECT * FROM automation_settings WHERE enabled = TRUE ORDER BY user_id`,
	); err != nil {
		return nil, fmt.Errorf("automation repository: list enabled %w", err)
	}

	return list, nil
}

// MarkRun фиксирует время запуска.
func (r *AutomationRepository) MarkRun(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE automation_settings SET last_run_at = $1 WHERE user_id = $2`, at, userID,
	); err != nil {
		return fmt.Errorf("automation repository: mark run %w", err)
	}

	return nil
}

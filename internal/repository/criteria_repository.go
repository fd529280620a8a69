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

// ErrCriteriaNotFound возвращается, когда пользователь ещё не завершил мастер.
var ErrCriteriaNotFound = errors.New("search criteria not found")

// CriteriaRepository хранит последние критерии поиска пользователя.
type CriteriaRepository struct {
	db *sqlx.DB
}

// NewCriteriaRepository создаёт экземпляр репозитория.
func NewCriteriaRepository(db *sqlx.DB) *CriteriaRepository {
	return &CriteriaRepository{db: db}
}

// Get возвращает критерии пользователя.
func (r *CriteriaRepository) Get(ctx context.Context, userID uuid.UUID) (*models.SearchCriteria, error) {
	var criteria models.SearchCriteria
	query := `
		SELECT user_id, job_type, location, distance, contract_type, work_schedule, experience, keywords, remote_work, updated_at
		FROM search_criteria
		WHERE user_id = $1
	`
	if err := r.db.GetContext(ctx, &criteria, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCriteriaNotFound
		}
		return nil, fmt.Errorf("criteria repository: get %w", err)
	}

	return &criteria, nil
}

// Upsert заменяет критерии пользователя.
func (r *CriteriaRepository) Upsert(ctx context.Context, criteria *models.SearchCriteria) error {
	query := `
		INSERT INTO search_criteria (user_id, job_type, location, distance, contract_type, work_schedule, experience, keywords, remote_work, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET job_type = EXCLUDED.job_type,
			location = EXCLUDED.location,
			distance = EXCLUDED.distance,
			contract_type = EXCLUDED.contract_type,
			work_schedule = EXCLUDED.work_schedule,
			experience = EXCLUDED.experience,
			keywords = EXCLUDED.keywords,
			remote_work = EXCLUDED.remote_work,
			updated_at = NOW()
		RETURNING updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		criteria.UserID,
		criteria.JobType,
		criteria.Location,
		criteria.Distance,
		criteria.ContractType,
		criteria.WorkSchedule,
		criteria.Experience,
		criteria.Keywords,
		criteria.RemoteWork,
	).Scan(&criteria.UpdatedAt); err != nil {
		return fmt.Errorf("criteria repository: upsert %w", err)
	}

	return nil
}

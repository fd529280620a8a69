package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/repository/common"
)

var (
	// ErrApplicationNotFound возвращается, когда отклик не найден.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrApplicationExists возвращается, когда отклик на оффер уже записан.
	ErrApplicationExists = errors.New("application already exists")
)

// ApplicationRepository отвечает за таблицу applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository создаёт экземпляр репозитория.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create записывает отклик в статусе pending.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (user_id, offer_id, company_name, position, location, contract_type, status, match_percentage, idempotency_key, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		app.UserID,
		app.OfferID,
		app.CompanyName,
		app.Position,
		app.Location,
		app.ContractType,
		app.Status,
		app.MatchPercentage,
		app.IdempotencyKey,
		app.Source,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err) {
			return ErrApplicationExists
		}
		return fmt.Errorf("application repository: create %w", err)
	}

	return nil
}

// UpdateResult фиксирует итог отправки.
func (r *ApplicationRepository) UpdateResult(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`,
		status, errorMessage, id,
	)
	if err != nil {
		return fmt.Errorf("application repository: update result %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("application repository: update result rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrApplicationNotFound
	}

	return nil
}

// MarkRetry переводит неудачный отклик обратно в pending перед повторной отправкой.
// Ключ идемпотентности не меняется.
func (r *ApplicationRepository) MarkRetry(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = 'pending', error_message = NULL, updated_at = NOW() WHERE id = $1 AND status = 'failure'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("application repository: mark retry %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("application repository: mark retry rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrApplicationNotFound
	}

	return nil
}

// GetByOffer возвращает отклик пользователя на оффер.
func (r *ApplicationRepository) GetByOffer(ctx context.Context, userID uuid.UUID, offerID string) (*models.Application, error) {
	var app models.Application
	if err := r.db.GetContext(ctx, &app,
		`SELECT * FROM applications WHERE user_id = $1 AND offer_id = $2`, userID, offerID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("application repository: get by offer %w", err)
	}

	return &app, nil
}

// AppliedOfferIDs возвращает идентификаторы офферов, на которые пользователь уже откликался.
func (r *ApplicationRepository) AppliedOfferIDs(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT offer_id FROM applications WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("application repository: applied offer ids %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// List возвращает отклики по фильтру, новые сначала.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{filter.UserID}
	argIndex := 2

	if filter.MatchLevel != models.MatchLevelAll {
		min, max := filter.MatchLevel.Bounds()
		where = append(where, fmt.Sprintf("match_percentage BETWEEN $%d AND $%d", argIndex, argIndex+1))
		args = append(args, min, max)
		argIndex += 2
	}

	if filter.ContractType != "" {
		where = append(where, fmt.Sprintf("LOWER(contract_type) = LOWER($%d)", argIndex))
		args = append(args, filter.ContractType)
		argIndex++
	}

	if filter.Location != "" {
		where = append(where, fmt.Sprintf("location ILIKE $%d", argIndex))
		args = append(args, "%"+escapeLike(filter.Location)+"%")
		argIndex++
	}

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	query := "SELECT * FROM applications WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, fmt.Errorf("application repository: list %w", err)
	}

	return apps, nil
}

// Stats возвращает агрегаты откликов пользователя.
func (r *ApplicationRepository) Stats(ctx context.Context, userID uuid.UUID) (models.ApplicationStats, error) {
	var row struct {
		Total      int `db:"total"`
		Successful int `db:"successful"`
		Pending    int `db:"pending"`
		Failed     int `db:"failed"`
	}
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'success') AS successful,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'failure') AS failed
		FROM applications
		WHERE user_id = $1
	`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return models.ApplicationStats{}, fmt.Errorf("application repository: stats %w", err)
	}

	return models.NewApplicationStats(row.Total, row.Successful, row.Pending, row.Failed), nil
}

// CountSince считает отклики пользователя с указанного момента.
func (r *ApplicationRepository) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM applications WHERE user_id = $1 AND created_at >= $2`, userID, since,
	); err != nil {
		return 0, fmt.Errorf("application repository: count since %w", err)
	}

	return count, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

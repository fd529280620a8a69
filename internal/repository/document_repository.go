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

// ErrDocumentNotFound возвращается, когда документ не найден.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository управляет метаданными загруженных документов.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository создаёт репозиторий.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert сохраняет документ. Повторная загрузка того же типа заменяет запись;
// previousPath возвращает путь прежнего файла для удаления.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *models.Document) (previousPath string, err error) {
	var prev sql.NullString
	if err := r.db.GetContext(ctx, &prev,
		`SELECT file_path FROM documents WHERE user_id = $1 AND kind = $2`, doc.UserID, doc.Kind,
	); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("document repository: get previous %w", err)
	}

	query := `
		INSERT INTO documents (user_id, kind, original_name, file_path, mime_type, file_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, kind) DO UPDATE
		SET original_name = EXCLUDED.original_name,
			file_path = EXCLUDED.file_path,
			mime_type = EXCLUDED.mime_type,
			file_size = EXCLUDED.file_size,
			created_at = NOW()
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		doc.UserID,
		doc.Kind,
		doc.OriginalName,
		doc.FilePath,
		doc.MimeType,
		doc.FileSize,
	).Scan(&doc.ID, &doc.CreatedAt); err != nil {
		return "", fmt.Errorf("document repository: upsert %w", err)
	}

	if prev.Valid && prev.String != doc.FilePath {
		return prev.String, nil
	}
	return "", nil
}

// GetByKind возвращает документ пользователя указанного типа.
func (r *DocumentRepository) GetByKind(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) (*models.Document, error) {
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc,
		`SELECT * FROM documents WHERE user_id = $1 AND kind = $2`, userID, kind,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("document repository: get by kind %w", err)
	}

	return &doc, nil
}

// ListByUser возвращает документы пользователя.
func (r *DocumentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs,
		`SELECT * FROM documents WHERE user_id = $1 ORDER BY kind`, userID,
	); err != nil {
		return nil, fmt.Errorf("document repository: list %w", err)
	}

	return docs, nil
}

// DeleteByKind удаляет запись и возвращает путь удалённого файла.
func (r *DocumentRepository) DeleteByKind(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) (string, error) {
	var path string
	if err := r.db.GetContext(ctx, &path,
		`DELETE FROM documents WHERE user_id = $1 AND kind = $2 RETURNING file_path`, userID, kind,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrDocumentNotFound
		}
		return "", fmt.Errorf("document repository: delete %w", err)
	}

	return path, nil
}

package service

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobautomate-backend/internal/logger"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/repository"
	"github.com/ignatzorin/jobautomate-backend/internal/storage"
)

// DocumentRepository хранит метаданные загруженных документов.
type DocumentRepository interface {
	Upsert(ctx context.Context, doc *models.Document) (string, error)
	GetByKind(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) (*models.Document, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error)
	DeleteByKind(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) (string, error)
}

// FileStorage хранит содержимое документов.
type FileStorage interface {
	Save(ctx context.Context, userID uuid.UUID, kind, originalName string, r io.Reader) (string, int64, error)
	Open(ctx context.Context, relativePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, relativePath string) error
}

// DocumentService управляет CV и мотивационным письмом пользователя.
type DocumentService struct {
	repo     DocumentRepository
	files    FileStorage
	notifier Notifier
	cache    *CacheService
	log      *logrus.Entry
}

// NewDocumentService создаёт сервис документов.
func NewDocumentService(repo DocumentRepository, files FileStorage, notifier Notifier, cache *CacheService) *DocumentService {
	return &DocumentService{
		repo:     repo,
		files:    files,
		notifier: notifier,
		cache:    cache,
		log:      logger.WithComponent("documents"),
	}
}

// Upload сохраняет документ, заменяя предыдущий того же типа.
func (s *DocumentService) Upload(ctx context.Context, userID uuid.UUID, kind models.DocumentKind, filename string, r io.Reader) (*models.Document, error) {
	if !kind.Valid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тип документа")
	}

	head := make([]byte, storage.HeaderSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "не удалось прочитать файл")
	}
	head = head[:n]
	if n == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "файл пуст")
	}

	mime, err := storage.DetectDocumentType(head, filename)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "поддерживаются только файлы PDF, DOCX и RTF")
	}

	path, size, err := s.files.Save(ctx, userID, string(kind), filename, io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "файл слишком большой")
		}
		return nil, err
	}

	doc := &models.Document{
		UserID:       userID,
		Kind:         kind,
		OriginalName: filename,
		FilePath:     path,
		MimeType:     mime,
		FileSize:     size,
	}

	previous, err := s.repo.Upsert(ctx, doc)
	if err != nil {
		s.removeFile(ctx, path)
		return nil, err
	}
	if previous != "" && previous != path {
		s.removeFile(ctx, previous)
	}

	s.invalidate(userID)
	notify(ctx, s.notifier, userID, DocumentUploadedNotice(kind, filename))
	return doc, nil
}

// List возвращает документы пользователя.
func (s *DocumentService) List(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get возвращает документ указанного типа.
func (s *DocumentService) Get(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) (*models.Document, error) {
	doc, err := s.repo.GetByKind(ctx, userID, kind)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, apperror.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Open открывает содержимое документа. Вызывающий закрывает reader.
func (s *DocumentService) Open(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) (*models.Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, userID, kind)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, doc.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

// Delete удаляет документ и его файл.
func (s *DocumentService) Delete(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) error {
	if !kind.Valid() {
		return apperror.New(apperror.ErrCodeValidation, "неизвестный тип документа")
	}

	path, err := s.repo.DeleteByKind(ctx, userID, kind)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return apperror.ErrDocumentNotFound
		}
		return err
	}

	s.removeFile(ctx, path)
	s.invalidate(userID)
	notify(ctx, s.notifier, userID, DocumentDeletedNotice(kind))
	return nil
}

func (s *DocumentService) removeFile(ctx context.Context, path string) {
	if err := s.files.Delete(ctx, path); err != nil {
		s.log.WithFields(logrus.Fields{
			"path":  path,
			"error": err.Error(),
		}).Warn("не удалось удалить файл документа")
	}
}

func (s *DocumentService) invalidate(userID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateUserCache(userID)
	}
}

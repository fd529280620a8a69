package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/logger"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/repository"
	"github.com/ignatzorin/jobautomate-backend/internal/validation"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// ApplicationRepository хранит историю откликов.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	UpdateResult(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
	MarkRetry(ctx context.Context, id uuid.UUID) error
	GetByOffer(ctx context.Context, userID uuid.UUID, offerID string) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	Stats(ctx context.Context, userID uuid.UUID) (models.ApplicationStats, error)
}

// ApplicationSubmitter — операции France Travail для отклика.
type ApplicationSubmitter interface {
	GetOfferDetails(ctx context.Context, offerID string) (*francetravail.JobOffer, error)
	SubmitApplication(ctx context.Context, params francetravail.ApplicationParams) (*francetravail.ApplicationResult, error)
}

// DocumentOpener открывает документы пользователя для вложения.
type DocumentOpener interface {
	Open(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) (*models.Document, io.ReadCloser, error)
}

// ApplyInput — данные отклика.
type ApplyInput struct {
	OfferID     string
	CoverLetter string
}

// ApplicationService отправляет отклики и ведёт их историю.
type ApplicationService struct {
	repo      ApplicationRepository
	board     ApplicationSubmitter
	documents DocumentOpener
	criteria  CriteriaSource
	notifier  Notifier
	cache     *CacheService
	log       *logrus.Entry
}

// NewApplicationService создаёт сервис откликов.
func NewApplicationService(
	repo ApplicationRepository,
	board ApplicationSubmitter,
	documents DocumentOpener,
	criteria CriteriaSource,
	notifier Notifier,
	cache *CacheService,
) *ApplicationService {
	return &ApplicationService{
		repo:      repo,
		board:     board,
		documents: documents,
		criteria:  criteria,
		notifier:  notifier,
		cache:     cache,
		log:       logger.WithComponent("applications"),
	}
}

// Apply откликается на оффер вручную.
func (s *ApplicationService) Apply(ctx context.Context, userID uuid.UUID, in ApplyInput) (*models.Application, error) {
	if err := validation.ValidateCoverLetter(in.CoverLetter); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	criteria, err := s.criteria.Criteria(ctx, userID)
	if err != nil {
		return nil, err
	}
	base := wizard.DefaultCriteria()
	if criteria != nil {
		base = *criteria
	}

	return s.applyToOffer(ctx, userID, base, in, models.ApplicationSourceManual)
}

// applyToOffer отправляет отклик не более одного раза на оффер.
// Ожидающий или успешный отклик возвращается как есть, неудачный повторяется с тем же ключом.
func (s *ApplicationService) applyToOffer(ctx context.Context, userID uuid.UUID, criteria wizard.Criteria, in ApplyInput, source string) (*models.Application, error) {
	if in.OfferID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "идентификатор оффера обязателен")
	}

	app, err := s.repo.GetByOffer(ctx, userID, in.OfferID)
	switch {
	case err == nil:
		if app.Status != models.ApplicationStatusFailure {
			return app, nil
		}
		if err := s.repo.MarkRetry(ctx, app.ID); err != nil {
			if errors.Is(err, repository.ErrApplicationNotFound) {
				// повтор уже перехвачен параллельным запросом
				return s.repo.GetByOffer(ctx, userID, in.OfferID)
			}
			return nil, err
		}
		app.Status = models.ApplicationStatusPending
		app.ErrorMessage = nil
	case errors.Is(err, repository.ErrApplicationNotFound):
		var created bool
		app, created, err = s.createPending(ctx, userID, criteria, in.OfferID, source)
		if err != nil {
			return nil, err
		}
		if !created {
			return app, nil
		}
	default:
		return nil, err
	}

	return s.submit(ctx, app, in.CoverLetter)
}

// createPending записывает ожидающий отклик. created == false, если запись
// уже создал параллельный запрос: отправлять его должен только создатель.
func (s *ApplicationService) createPending(ctx context.Context, userID uuid.UUID, criteria wizard.Criteria, offerID, source string) (*models.Application, bool, error) {
	offer, err := s.board.GetOfferDetails(ctx, offerID)
	if err != nil {
		notify(ctx, s.notifier, userID, ProviderErrorNotice(err))
		return nil, false, upstreamError(err)
	}

	score := MatchScore(criteria, *offer)
	app := &models.Application{
		UserID:          userID,
		OfferID:         offerID,
		CompanyName:     offer.CompanyName(),
		Position:        offer.Title,
		Location:        offer.Workplace.Label,
		ContractType:    offer.ContractType,
		Status:          models.ApplicationStatusPending,
		MatchPercentage: &score,
		IdempotencyKey:  uuid.NewString(),
		Source:          source,
	}

	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrApplicationExists) {
			existing, err := s.repo.GetByOffer(ctx, userID, offerID)
			return existing, false, err
		}
		return nil, false, err
	}
	return app, true, nil
}

func (s *ApplicationService) submit(ctx context.Context, app *models.Application, coverLetter string) (*models.Application, error) {
	params := francetravail.ApplicationParams{
		OfferID:        app.OfferID,
		CandidateID:    app.UserID.String(),
		CoverLetter:    coverLetter,
		IdempotencyKey: app.IdempotencyKey,
	}

	if s.documents != nil {
		doc, rc, err := s.documents.Open(ctx, app.UserID, models.DocumentKindCV)
		switch {
		case err == nil:
			defer rc.Close()
			params.CV = &francetravail.Attachment{FileName: doc.OriginalName, Content: rc}
		case errors.Is(err, apperror.ErrDocumentNotFound):
		default:
			return nil, err
		}
	}

	_, submitErr := s.board.SubmitApplication(ctx, params)

	status := models.ApplicationStatusSuccess
	var errMsg *string
	if submitErr != nil {
		status = models.ApplicationStatusFailure
		msg := submitErr.Error()
		errMsg = &msg
	}

	if err := s.repo.UpdateResult(ctx, app.ID, status, errMsg); err != nil {
		return nil, fmt.Errorf("application service: update result %w", err)
	}
	app.Status = status
	app.ErrorMessage = errMsg

	if s.cache != nil {
		s.cache.InvalidateUserCache(app.UserID)
	}

	if submitErr != nil {
		s.log.WithFields(logrus.Fields{
			"user_id":  app.UserID,
			"offer_id": app.OfferID,
			"error":    submitErr.Error(),
		}).Warn("отклик не отправлен")
		notify(ctx, s.notifier, app.UserID, ProviderErrorNotice(submitErr))
		return app, upstreamError(submitErr)
	}

	if app.Source == models.ApplicationSourceManual {
		notify(ctx, s.notifier, app.UserID, ApplicationSentNotice(app.Position))
	}
	return app, nil
}

// List возвращает историю откликов с фильтрами.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	if !filter.MatchLevel.Valid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный уровень совпадения")
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Stats возвращает агрегаты откликов пользователя.
func (s *ApplicationService) Stats(ctx context.Context, userID uuid.UUID) (models.ApplicationStats, error) {
	return s.repo.Stats(ctx, userID)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/logger"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/repository"
)

// NotificationEvent — имя события WebSocket для уведомлений.
const NotificationEvent = "notification"

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Pusher доставляет события в WebSocket соединения пользователя.
type Pusher interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// Notice — содержимое уведомления.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

// Notifier используется сервисами для уведомления пользователя.
type Notifier interface {
	// Notify сохраняет уведомление и отправляет его в WebSocket.
	Notify(ctx context.Context, userID uuid.UUID, notice Notice) (*models.Notification, error)
	// Push только отправляет уведомление в WebSocket, без сохранения.
	Push(userID uuid.UUID, notice Notice)
}

// NotificationService содержит бизнес-логику работы с уведомлениями.
type NotificationService struct {
	repo   NotificationRepository
	pusher Pusher
	log    *logrus.Entry
}

// NewNotificationService создаёт новый сервис уведомлений. pusher может быть nil.
func NewNotificationService(repo NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{
		repo:   repo,
		pusher: pusher,
		log:    logger.WithComponent("notifications"),
	}
}

// Notify сохраняет уведомление и отправляет его пользователю.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, notice Notice) (*models.Notification, error) {
	if notice.Variant == "" {
		notice.Variant = models.NotificationVariantDefault
	}

	notification := &models.Notification{
		UserID:      userID,
		Title:       notice.Title,
		Description: notice.Description,
		Variant:     notice.Variant,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("notification service: create %w", err)
	}

	s.send(userID, notification)
	return notification, nil
}

// Push отправляет уведомление без сохранения.
func (s *NotificationService) Push(userID uuid.UUID, notice Notice) {
	if notice.Variant == "" {
		notice.Variant = models.NotificationVariantDefault
	}
	s.send(userID, notice)
}

func (s *NotificationService) send(userID uuid.UUID, data any) {
	if s.pusher == nil {
		return
	}
	if err := s.pusher.BroadcastToUser(userID, NotificationEvent, data); err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("не удалось отправить уведомление в WebSocket")
	}
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return mapNotificationErr(s.repo.MarkAsRead(ctx, userID, id))
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// DeleteNotification удаляет уведомление.
func (s *NotificationService) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	return mapNotificationErr(s.repo.Delete(ctx, userID, id))
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func mapNotificationErr(err error) error {
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return apperror.ErrNotificationNotFound
	}
	return err
}

// notify отправляет уведомление и только логирует сбой: уведомления не должны
// ломать основную операцию.
func notify(ctx context.Context, n Notifier, userID uuid.UUID, notice Notice) {
	if n == nil {
		return
	}
	if _, err := n.Notify(ctx, userID, notice); err != nil {
		logger.WithComponent("notifications").WithFields(logrus.Fields{
			"user_id": userID,
			"title":   notice.Title,
			"error":   err.Error(),
		}).Warn("не удалось сохранить уведомление")
	}
}

// Шаблоны уведомлений.

func LoginNotice(email string) Notice {
	return Notice{Title: "Connexion réussie", Description: "Bienvenue " + email}
}

func RegisterNotice(email string) Notice {
	return Notice{Title: "Inscription réussie", Description: "Compte créé pour " + email}
}

func ProviderConnectedNotice() Notice {
	return Notice{Title: "Authentification réussie", Description: "Connexion à France Travail établie"}
}

func SearchSucceededNotice() Notice {
	return Notice{Title: "Recherche réussie", Description: "Offres d'emploi récupérées avec succès"}
}

func DetailsFetchedNotice() Notice {
	return Notice{Title: "Détails récupérés", Description: "Détails de l'offre d'emploi récupérés avec succès"}
}

func ApplicationSentNotice(position string) Notice {
	desc := "Votre candidature a été soumise avec succès"
	if position != "" {
		desc = fmt.Sprintf("Votre candidature pour « %s » a été soumise avec succès", position)
	}
	return Notice{Title: "Candidature envoyée", Description: desc}
}

func DocumentUploadedNotice(kind models.DocumentKind, name string) Notice {
	if kind == models.DocumentKindCoverLetter {
		return Notice{Title: "Lettre de motivation téléchargée", Description: name + " a été ajoutée à votre profil"}
	}
	return Notice{Title: "CV téléchargé avec succès", Description: name + " a été ajouté à votre profil"}
}

func DocumentDeletedNotice(kind models.DocumentKind) Notice {
	if kind == models.DocumentKindCoverLetter {
		return Notice{Title: "Lettre de motivation supprimée", Description: "Votre lettre de motivation a été supprimée de votre profil"}
	}
	return Notice{Title: "CV supprimé", Description: "Votre CV a été supprimé de votre profil"}
}

func AutomationRunNotice(sent, failed int) Notice {
	notice := Notice{
		Title:       "Candidatures automatiques",
		Description: fmt.Sprintf("%d candidature(s) envoyée(s), %d échec(s)", sent, failed),
	}
	if sent == 0 && failed > 0 {
		notice.Variant = models.NotificationVariantDestructive
	}
	return notice
}

// ProviderErrorNotice формирует уведомление об ошибке France Travail по фазе запроса.
func ProviderErrorNotice(err error) Notice {
	var (
		authErr   *francetravail.AuthError
		searchErr *francetravail.SearchError
		fetchErr  *francetravail.FetchError
		submitErr *francetravail.SubmissionError
	)

	title := "Erreur France Travail"
	switch {
	case errors.As(err, &authErr):
		title = "Erreur d'authentification"
	case errors.As(err, &searchErr):
		title = "Erreur de recherche"
	case errors.As(err, &submitErr):
		title = "Erreur de candidature"
	case errors.As(err, &fetchErr):
		title = "Erreur de récupération"
	}

	return Notice{
		Title:       title,
		Description: err.Error(),
		Variant:     models.NotificationVariantDestructive,
	}
}

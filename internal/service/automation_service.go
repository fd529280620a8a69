package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobautomate-backend/internal/goroutine"
	"github.com/ignatzorin/jobautomate-backend/internal/logger"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
)

// AutomationSearchRange — сколько офферов просматривается за запуск.
const AutomationSearchRange = "0-49"

// AutomationStore — операции хранилища, нужные планировщику.
type AutomationStore interface {
	ListEnabled(ctx context.Context) ([]models.AutomationSettings, error)
	MarkRun(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// ApplicationHistory — история откликов для лимитов и пропуска повторов.
type ApplicationHistory interface {
	AppliedOfferIDs(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error)
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// RunReport — итог одного прохода автоматизации.
type RunReport struct {
	Users   int `json:"users"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// AutomationService периодически откликается на подходящие офферы за пользователей с включённой автоматизацией.
type AutomationService struct {
	store        AutomationStore
	history      ApplicationHistory
	criteria     CriteriaSource
	documents    DocumentLister
	search       *SearchService
	applications *ApplicationService
	notifier     Notifier
	now          func() time.Time
	log          *logrus.Entry

	mu      sync.Mutex
	cron    *cron.Cron
	running sync.Mutex
}

// NewAutomationService создаёт сервис автоматизации.
func NewAutomationService(
	store AutomationStore,
	history ApplicationHistory,
	criteria CriteriaSource,
	documents DocumentLister,
	search *SearchService,
	applications *ApplicationService,
	notifier Notifier,
) *AutomationService {
	return &AutomationService{
		store:        store,
		history:      history,
		criteria:     criteria,
		documents:    documents,
		search:       search,
		applications: applications,
		notifier:     notifier,
		now:          time.Now,
		log:          logger.WithComponent("automation"),
	}
}

// Start запускает планировщик по cron-расписанию и сразу выполняет первый проход.
func (s *AutomationService) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	cronLog := cron.PrintfLogger(s.log)
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(schedule, func() { s.runLogged(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	c.Start()
	s.cron = c

	goroutine.SafeGo(func() { s.runLogged(ctx) })

	s.log.WithField("schedule", schedule).Info("планировщик автоматизации запущен")
	return nil
}

// Stop останавливает планировщик и ждёт завершения текущего прохода.
func (s *AutomationService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.log.Info("планировщик автоматизации остановлен")
}

func (s *AutomationService) runLogged(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	entry := s.log.WithFields(logrus.Fields{
		"users":   report.Users,
		"sent":    report.Sent,
		"failed":  report.Failed,
		"skipped": report.Skipped,
	})
	if err != nil {
		entry.WithError(err).Error("проход автоматизации завершился ошибкой")
		return
	}
	entry.Info("проход автоматизации завершён")
}

// RunOnce выполняет один проход по пользователям, для которых подошло время запуска.
// Параллельные вызовы выполняются последовательно.
func (s *AutomationService) RunOnce(ctx context.Context) (RunReport, error) {
	s.running.Lock()
	defer s.running.Unlock()

	var report RunReport

	settings, err := s.store.ListEnabled(ctx)
	if err != nil {
		return report, err
	}

	now := s.now()
	for i := range settings {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		st := settings[i]
		if !st.Due(now) {
			continue
		}

		sent, failed, err := s.runForUser(ctx, &st, now)
		if err != nil {
			report.Skipped++
			s.log.WithFields(logrus.Fields{
				"user_id": st.UserID,
				"error":   err.Error(),
			}).Warn("автоматизация пользователя пропущена")
			continue
		}

		report.Users++
		report.Sent += sent
		report.Failed += failed
	}
	return report, nil
}

var (
	errNoCriteria = errors.New("критерии поиска не заданы")
	errNoCV       = errors.New("CV не загружено")
)

func (s *AutomationService) runForUser(ctx context.Context, st *models.AutomationSettings, now time.Time) (sent, failed int, err error) {
	criteria, err := s.criteria.Criteria(ctx, st.UserID)
	if err != nil {
		return 0, 0, err
	}
	if criteria == nil {
		return 0, 0, errNoCriteria
	}

	docs, err := s.documents.List(ctx, st.UserID)
	if err != nil {
		return 0, 0, err
	}
	if !hasCV(docs) {
		return 0, 0, errNoCV
	}

	used, err := s.history.CountSince(ctx, st.UserID, now.Add(-24*time.Hour))
	if err != nil {
		return 0, 0, err
	}
	budget := st.MaxApplicationsPerDay - used

	if budget > 0 {
		result, err := s.search.SearchWithCriteria(ctx, st.UserID, *criteria, SearchOverrides{Range: AutomationSearchRange})
		if err != nil {
			return 0, 0, err
		}

		applied, err := s.history.AppliedOfferIDs(ctx, st.UserID)
		if err != nil {
			return 0, 0, err
		}

		for _, offer := range result.Offers {
			if sent+failed >= budget {
				break
			}
			if _, ok := applied[offer.ID]; ok || offer.ID == "" {
				continue
			}

			_, err := s.applications.applyToOffer(ctx, st.UserID, *criteria, ApplyInput{OfferID: offer.ID}, models.ApplicationSourceAutomation)
			if err != nil {
				if _, ok := apperror.As(err); !ok && !isJobBoardError(err) {
					return sent, failed, err
				}
				failed++
				continue
			}
			sent++
		}
	}

	if err := s.store.MarkRun(ctx, st.UserID, now); err != nil {
		return sent, failed, err
	}
	if sent+failed > 0 {
		notify(ctx, s.notifier, st.UserID, AutomationRunNotice(sent, failed))
	}
	return sent, failed, nil
}

func hasCV(docs []models.Document) bool {
	for _, d := range docs {
		if d.Kind == models.DocumentKindCV {
			return true
		}
	}
	return false
}

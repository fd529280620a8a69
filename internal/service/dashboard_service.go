package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/validation"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// DashboardCacheTTL — время жизни сводки дашборда в кэше.
const DashboardCacheTTL = time.Minute

const recentApplicationsLimit = 5

// AutomationRepository хранит настройки автоматических откликов.
type AutomationRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.AutomationSettings, error)
	Upsert(ctx context.Context, settings *models.AutomationSettings) error
}

// DocumentLister возвращает документы пользователя.
type DocumentLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Document, error)
}

// Dashboard — сводка для главного экрана.
type Dashboard struct {
	Stats              models.ApplicationStats    `json:"stats"`
	Criteria           *wizard.Criteria           `json:"criteria"`
	Automation         *models.AutomationSettings `json:"automation"`
	RecentApplications []models.Application       `json:"recentApplications"`
	Documents          []models.Document          `json:"documents"`
}

// DashboardService собирает сводку дашборда и управляет настройками автоматизации.
type DashboardService struct {
	applications ApplicationRepository
	automation   AutomationRepository
	criteria     CriteriaSource
	documents    DocumentLister
	cache        *CacheService
	cacheTTL     time.Duration
}

// NewDashboardService создаёт сервис дашборда.
func NewDashboardService(
	applications ApplicationRepository,
	automation AutomationRepository,
	criteria CriteriaSource,
	documents DocumentLister,
	cache *CacheService,
) *DashboardService {
	return &DashboardService{
		applications: applications,
		automation:   automation,
		criteria:     criteria,
		documents:    documents,
		cache:        cache,
		cacheTTL:     DashboardCacheTTL,
	}
}

// SetCacheTTL меняет время жизни сводки в кэше; d <= 0 игнорируется.
func (s *DashboardService) SetCacheTTL(d time.Duration) {
	if d > 0 {
		s.cacheTTL = d
	}
}

// Get возвращает сводку дашборда, используя кэш.
func (s *DashboardService) Get(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	if s.cache == nil {
		return s.build(ctx, userID)
	}

	v, err := s.cache.GetOrSet(ctx, DashboardCacheKey(userID), s.cacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.build(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dashboard), nil
}

func (s *DashboardService) build(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	d := &Dashboard{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := s.applications.Stats(ctx, userID)
		d.Stats = stats
		return err
	})
	g.Go(func() error {
		c, err := s.criteria.Criteria(ctx, userID)
		d.Criteria = c
		return err
	})
	g.Go(func() error {
		a, err := s.automation.Get(ctx, userID)
		d.Automation = a
		return err
	})
	g.Go(func() error {
		apps, err := s.applications.List(ctx, models.ApplicationFilter{UserID: userID, Limit: recentApplicationsLimit})
		d.RecentApplications = apps
		return err
	})
	g.Go(func() error {
		docs, err := s.documents.List(ctx, userID)
		d.Documents = docs
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if d.RecentApplications == nil {
		d.RecentApplications = []models.Application{}
	}
	if d.Documents == nil {
		d.Documents = []models.Document{}
	}
	return d, nil
}

// AutomationInput — изменения настроек автоматизации.
type AutomationInput struct {
	Enabled               bool
	Frequency             string
	MaxApplicationsPerDay int
}

// UpdateAutomation сохраняет настройки автоматических откликов.
// Включить автоматизацию можно только после настройки критериев.
func (s *DashboardService) UpdateAutomation(ctx context.Context, userID uuid.UUID, in AutomationInput) (*models.AutomationSettings, error) {
	if err := validation.ValidateAutomationSettings(in.Frequency, in.MaxApplicationsPerDay); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if in.Enabled {
		c, err := s.criteria.Criteria(ctx, userID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, apperror.ErrCriteriaNotConfigured
		}
	}

	settings, err := s.automation.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings.Enabled = in.Enabled
	settings.Frequency = in.Frequency
	settings.MaxApplicationsPerDay = in.MaxApplicationsPerDay

	if err := s.automation.Upsert(ctx, settings); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateUserCache(userID)
	}
	return settings, nil
}

// Automation возвращает настройки автоматизации пользователя.
func (s *DashboardService) Automation(ctx context.Context, userID uuid.UUID) (*models.AutomationSettings, error) {
	return s.automation.Get(ctx, userID)
}

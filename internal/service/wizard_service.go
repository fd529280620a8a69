package service

import (
	"context"
	"time"

	"github.com/ignatzorin/jobautomate-backend/internal/onboarding"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// DefaultWizardTTL — время жизни незавершённого мастера.
const DefaultWizardTTL = 2 * time.Hour

// WizardResult — ответ на переход по шагам мастера.
type WizardResult struct {
	Completed  bool              `json:"completed"`
	Wizard     *wizard.Snapshot  `json:"wizard,omitempty"`
	Onboarding *onboarding.State `json:"onboarding,omitempty"`
}

// WizardService держит по одному мастеру критериев на сессию.
type WizardService struct {
	cache      *CacheService
	ttl        time.Duration
	onboarding *OnboardingService
}

// NewWizardService создаёт сервис мастера.
func NewWizardService(cache *CacheService, onboardingService *OnboardingService, ttl time.Duration) *WizardService {
	if ttl <= 0 {
		ttl = DefaultWizardTTL
	}
	return &WizardService{cache: cache, ttl: ttl, onboarding: onboardingService}
}

// Start создаёт новый мастер, заполненный сохранёнными критериями пользователя.
func (s *WizardService) Start(ctx context.Context, ref SessionRef) (wizard.Snapshot, error) {
	state, err := s.onboarding.State(ctx, ref)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	if !state.IsAuthenticated {
		return wizard.Snapshot{}, apperror.ErrUnauthorized
	}

	saved, err := s.onboarding.Criteria(ctx, ref.UserID)
	if err != nil {
		return wizard.Snapshot{}, err
	}

	w, err := wizard.New(saved, func(ctx context.Context, c wizard.Criteria) error {
		_, err := s.onboarding.CompleteCriteria(ctx, ref, c)
		return err
	})
	if err != nil {
		// Сохранённые критерии вне допустимых значений: начинаем с нуля.
		w, _ = wizard.New(nil, func(ctx context.Context, c wizard.Criteria) error {
			_, err := s.onboarding.CompleteCriteria(ctx, ref, c)
			return err
		})
	}

	s.cache.Set(WizardCacheKey(ref.SessionID), w, s.ttl)
	return w.Snapshot(), nil
}

// Get возвращает состояние мастера.
func (s *WizardService) Get(ref SessionRef) (wizard.Snapshot, error) {
	w, err := s.wizard(ref)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	return w.Snapshot(), nil
}

// Update применяет изменения полей.
func (s *WizardService) Update(ref SessionRef, patch wizard.Patch) (wizard.Snapshot, error) {
	w, err := s.wizard(ref)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	if err := w.Apply(patch); err != nil {
		return wizard.Snapshot{}, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	s.touch(ref, w)
	return w.Snapshot(), nil
}

// AddKeyword добавляет ключевое слово.
func (s *WizardService) AddKeyword(ref SessionRef, keyword string) (wizard.Snapshot, error) {
	w, err := s.wizard(ref)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	w.AddKeyword(keyword)
	s.touch(ref, w)
	return w.Snapshot(), nil
}

// RemoveKeyword удаляет ключевое слово.
func (s *WizardService) RemoveKeyword(ref SessionRef, keyword string) (wizard.Snapshot, error) {
	w, err := s.wizard(ref)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	w.RemoveKeyword(keyword)
	s.touch(ref, w)
	return w.Snapshot(), nil
}

// Next переходит к следующему шагу или завершает мастер.
func (s *WizardService) Next(ctx context.Context, ref SessionRef) (*WizardResult, error) {
	w, err := s.wizard(ref)
	if err != nil {
		return nil, err
	}

	completed, err := w.Next(ctx)
	if err != nil {
		return nil, err
	}

	if !completed {
		s.touch(ref, w)
		snap := w.Snapshot()
		return &WizardResult{Wizard: &snap}, nil
	}

	s.Discard(ref)
	state, err := s.onboarding.State(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &WizardResult{Completed: true, Onboarding: &state}, nil
}

// Back возвращается на шаг назад.
func (s *WizardService) Back(ref SessionRef) (wizard.Snapshot, error) {
	w, err := s.wizard(ref)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	w.Back()
	s.touch(ref, w)
	return w.Snapshot(), nil
}

// Discard удаляет мастер сессии.
func (s *WizardService) Discard(ref SessionRef) {
	s.cache.Delete(WizardCacheKey(ref.SessionID))
}

func (s *WizardService) wizard(ref SessionRef) (*wizard.Wizard, error) {
	v, ok := s.cache.Get(WizardCacheKey(ref.SessionID))
	if !ok {
		return nil, apperror.ErrWizardNotStarted
	}
	w, ok := v.(*wizard.Wizard)
	if !ok {
		return nil, apperror.ErrWizardNotStarted
	}
	return w, nil
}

func (s *WizardService) touch(ref SessionRef, w *wizard.Wizard) {
	s.cache.Set(WizardCacheKey(ref.SessionID), w, s.ttl)
}

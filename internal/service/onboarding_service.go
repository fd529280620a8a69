package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/onboarding"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/repository"
	"github.com/ignatzorin/jobautomate-backend/internal/validation"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// OnboardingRepository хранит состояние онбординга по сессиям.
type OnboardingRepository interface {
	Get(ctx context.Context, sessionID uuid.UUID) (*models.OnboardingState, error)
	Save(ctx context.Context, state *models.OnboardingState) error
}

// CriteriaRepository хранит последние критерии поиска пользователя.
type CriteriaRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.SearchCriteria, error)
	Upsert(ctx context.Context, criteria *models.SearchCriteria) error
}

// TokenAcquirer проверяет доступность France Travail получением токена.
type TokenAcquirer interface {
	AcquireToken(ctx context.Context) (*francetravail.AccessToken, error)
}

// OnboardingService переносит машину состояний онбординга на сохранённые сессии.
type OnboardingService struct {
	states   OnboardingRepository
	criteria CriteriaRepository
	board    TokenAcquirer
	notifier Notifier
	cache    *CacheService
}

// NewOnboardingService создаёт сервис. notifier и cache могут быть nil.
func NewOnboardingService(states OnboardingRepository, criteria CriteriaRepository, board TokenAcquirer, notifier Notifier, cache *CacheService) *OnboardingService {
	return &OnboardingService{
		states:   states,
		criteria: criteria,
		board:    board,
		notifier: notifier,
		cache:    cache,
	}
}

// State возвращает состояние онбординга сессии.
func (s *OnboardingService) State(ctx context.Context, ref SessionRef) (onboarding.State, error) {
	m, err := s.states.Get(ctx, ref.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrOnboardingStateNotFound) {
			return onboarding.State{}, apperror.ErrSessionNotFound
		}
		return onboarding.State{}, err
	}
	if m.UserID != ref.UserID {
		return onboarding.State{}, apperror.ErrSessionNotFound
	}
	return stateFromModel(m), nil
}

// CurrentStage возвращает этап сессии.
func (s *OnboardingService) CurrentStage(ctx context.Context, ref SessionRef) (onboarding.Stage, error) {
	state, err := s.State(ctx, ref)
	if err != nil {
		return "", err
	}
	return state.Stage, nil
}

// ConnectProvider проверяет доступ к France Travail и открывает шлюз isProviderConnected.
func (s *OnboardingService) ConnectProvider(ctx context.Context, ref SessionRef) (onboarding.State, error) {
	orch, err := s.restore(ctx, ref)
	if err != nil {
		return onboarding.State{}, err
	}
	if !orch.State().IsAuthenticated {
		return onboarding.State{}, apperror.ErrUnauthorized
	}

	if _, err := s.board.AcquireToken(ctx); err != nil {
		notify(ctx, s.notifier, ref.UserID, ProviderErrorNotice(err))
		return onboarding.State{}, upstreamError(err)
	}

	if err := orch.ConnectProvider(); err != nil {
		return onboarding.State{}, mapOnboardingErr(err)
	}

	state := orch.State()
	if err := s.save(ctx, ref, state); err != nil {
		return onboarding.State{}, err
	}

	notify(ctx, s.notifier, ref.UserID, ProviderConnectedNotice())
	return state, nil
}

// CompleteCriteria сохраняет критерии и переводит сессию на dashboard.
func (s *OnboardingService) CompleteCriteria(ctx context.Context, ref SessionRef, criteria wizard.Criteria) (onboarding.State, error) {
	if err := validation.ValidateCriteria(criteria); err != nil {
		return onboarding.State{}, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	orch, err := s.restore(ctx, ref)
	if err != nil {
		return onboarding.State{}, err
	}

	if err := orch.CompleteCriteria(criteria); err != nil {
		return onboarding.State{}, mapOnboardingErr(err)
	}

	if err := s.criteria.Upsert(ctx, models.NewSearchCriteria(ref.UserID, criteria)); err != nil {
		return onboarding.State{}, err
	}

	state := orch.State()
	if err := s.save(ctx, ref, state); err != nil {
		return onboarding.State{}, err
	}

	if s.cache != nil {
		s.cache.InvalidateUserCache(ref.UserID)
	}
	return state, nil
}

// Criteria возвращает сохранённые критерии пользователя или nil.
func (s *OnboardingService) Criteria(ctx context.Context, userID uuid.UUID) (*wizard.Criteria, error) {
	row, err := s.criteria.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCriteriaNotFound) {
			return nil, nil
		}
		return nil, err
	}
	c := row.Criteria()
	return &c, nil
}

func (s *OnboardingService) restore(ctx context.Context, ref SessionRef) (*onboarding.Orchestrator, error) {
	state, err := s.State(ctx, ref)
	if err != nil {
		return nil, err
	}

	orch, err := onboarding.Restore(nil, state, nil)
	if err != nil {
		return nil, fmt.Errorf("onboarding service: restore %w", err)
	}
	return orch, nil
}

func (s *OnboardingService) save(ctx context.Context, ref SessionRef, state onboarding.State) error {
	m := stateToModel(state)
	m.SessionID = ref.SessionID
	m.UserID = ref.UserID
	return s.states.Save(ctx, m)
}

func mapOnboardingErr(err error) error {
	switch {
	case errors.Is(err, onboarding.ErrNotAuthenticated):
		return apperror.ErrUnauthorized
	case errors.Is(err, onboarding.ErrProviderNotConnected):
		return apperror.ErrProviderNotConnected
	}
	return err
}

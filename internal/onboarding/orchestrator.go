// Package onboarding описывает машину состояний онбординга:
// auth → criteria → dashboard с возвратом в auth через Logout.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// Stage — этап онбординга.
type Stage string

const (
	StageAuth      Stage = "auth"
	StageCriteria  Stage = "criteria"
	StageDashboard Stage = "dashboard"
)

// Valid сообщает, известен ли этап.
func (s Stage) Valid() bool {
	switch s {
	case StageAuth, StageCriteria, StageDashboard:
		return true
	}
	return false
}

var (
	ErrNotAuthenticated     = errors.New("onboarding: пользователь не аутентифицирован")
	ErrProviderNotConnected = errors.New("onboarding: France Travail не подключён")
	ErrInvalidState         = errors.New("onboarding: недопустимое состояние")
)

// State — состояние сессии.
type State struct {
	Stage               Stage `json:"stage"`
	IsAuthenticated     bool  `json:"isAuthenticated"`
	IsProviderConnected bool  `json:"isProviderConnected"`
	CriteriaCompleted   bool  `json:"criteriaCompleted"`
}

// InitialState возвращает состояние после создания или Logout.
func InitialState() State {
	return State{Stage: StageAuth}
}

// Validate проверяет инварианты состояния.
func (s State) Validate() error {
	if !s.Stage.Valid() {
		return fmt.Errorf("%w: этап %q", ErrInvalidState, s.Stage)
	}
	if s.CriteriaCompleted && !s.IsAuthenticated {
		return fmt.Errorf("%w: критерии без аутентификации", ErrInvalidState)
	}
	if s.Stage == StageCriteria && !s.IsAuthenticated {
		return fmt.Errorf("%w: этап criteria без аутентификации", ErrInvalidState)
	}
	if s.Stage == StageDashboard && !s.CriteriaCompleted {
		return fmt.Errorf("%w: этап dashboard без критериев", ErrInvalidState)
	}
	if s.Stage == StageAuth && s.IsAuthenticated {
		return fmt.Errorf("%w: этап auth после аутентификации", ErrInvalidState)
	}
	return nil
}

// Authenticator проверяет учётные данные.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) error
}

// AuthenticatorFunc адаптирует функцию к Authenticator.
type AuthenticatorFunc func(ctx context.Context, email, password string) error

func (f AuthenticatorFunc) Authenticate(ctx context.Context, email, password string) error {
	return f(ctx, email, password)
}

// Orchestrator — машина состояний одной сессии. Безопасен для конкурентного использования.
type Orchestrator struct {
	mu       sync.Mutex
	auth     Authenticator
	state    State
	criteria *wizard.Criteria
}

// New создаёт оркестратор в начальном состоянии.
func New(auth Authenticator) *Orchestrator {
	return &Orchestrator{auth: auth, state: InitialState()}
}

// Restore создаёт оркестратор из сохранённого состояния.
func Restore(auth Authenticator, state State, criteria *wizard.Criteria) (*Orchestrator, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{auth: auth, state: state}
	if criteria != nil {
		c := criteria.Clone()
		o.criteria = &c
	}
	return o, nil
}

// SubmitCredentials аутентифицирует пользователя и переводит сессию на этап criteria.
// При ошибке состояние не меняется. Повторный вызов после успеха ничего не делает.
func (o *Orchestrator) SubmitCredentials(ctx context.Context, email, password string) error {
	o.mu.Lock()
	if o.state.IsAuthenticated {
		o.mu.Unlock()
		return nil
	}
	auth := o.auth
	o.mu.Unlock()

	if auth == nil {
		return ErrNotAuthenticated
	}
	if err := auth.Authenticate(ctx, email, password); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.IsAuthenticated {
		o.state.IsAuthenticated = true
		o.state.Stage = StageCriteria
	}
	return nil
}

// ConnectProvider отмечает подключение France Travail. Идемпотентен.
func (o *Orchestrator) ConnectProvider() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.IsAuthenticated {
		return ErrNotAuthenticated
	}
	o.state.IsProviderConnected = true
	return nil
}

// CompleteCriteria сохраняет снимок критериев и переводит сессию на dashboard.
// На этапе dashboard заменяет сохранённые критерии.
func (o *Orchestrator) CompleteCriteria(criteria wizard.Criteria) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.IsAuthenticated {
		return ErrNotAuthenticated
	}
	if !o.state.IsProviderConnected {
		return ErrProviderNotConnected
	}

	c := criteria.Clone()
	o.criteria = &c
	o.state.CriteriaCompleted = true
	o.state.Stage = StageDashboard
	return nil
}

// Logout атомарно возвращает сессию в начальное состояние.
func (o *Orchestrator) Logout() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = InitialState()
	o.criteria = nil
}

// State возвращает копию состояния.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// Criteria возвращает копию сохранённых критериев или nil.
func (o *Orchestrator) Criteria() *wizard.Criteria {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.criteria == nil {
		return nil
	}
	c := o.criteria.Clone()
	return &c
}

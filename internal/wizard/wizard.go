// Package wizard реализует четырёхшаговый мастер критериев поиска.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrDistanceOutOfRange  = errors.New("wizard: радиус должен быть от 0 до 100 км")
	ErrUnknownContractType = errors.New("wizard: неизвестный тип договора")
	ErrUnknownWorkSchedule = errors.New("wizard: неизвестный график работы")
	ErrUnknownExperience   = errors.New("wizard: неизвестный уровень опыта")
)

// Step описывает шаг мастера.
type Step struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Steps — шаги в порядке прохождения.
var Steps = []Step{
	{Index: 0, Title: "Type de métier", Description: "Sélectionnez votre domaine professionnel"},
	{Index: 1, Title: "Localisation", Description: "Où souhaitez-vous travailler?"},
	{Index: 2, Title: "Type de contrat", Description: "Quel type de contrat recherchez-vous?"},
	{Index: 3, Title: "Autres préférences", Description: "Affinez votre recherche"},
}

// TotalSteps — количество шагов.
var TotalSteps = len(Steps)

// CompleteFunc получает снимок критериев при завершении мастера.
type CompleteFunc func(ctx context.Context, criteria Criteria) error

// Wizard хранит текущий шаг и накопленные критерии. Безопасен для конкурентного использования.
type Wizard struct {
	mu         sync.Mutex
	step       int
	criteria   Criteria
	onComplete CompleteFunc
}

// New создаёт мастер на первом шаге. initial == nil означает значения по умолчанию.
func New(initial *Criteria, onComplete CompleteFunc) (*Wizard, error) {
	criteria := DefaultCriteria()
	if initial != nil {
		if err := initial.Validate(); err != nil {
			return nil, err
		}
		criteria = initial.Clone()
	}
	return &Wizard{criteria: criteria, onComplete: onComplete}, nil
}

// Next переходит на следующий шаг. На последнем шаге вызывает onComplete
// ровно один раз и не меняет шаг; completed == true.
func (w *Wizard) Next(ctx context.Context) (completed bool, err error) {
	w.mu.Lock()
	if w.step < TotalSteps-1 {
		w.step++
		w.mu.Unlock()
		return false, nil
	}
	snapshot := w.criteria.Clone()
	onComplete := w.onComplete
	w.mu.Unlock()

	if onComplete != nil {
		if err := onComplete(ctx, snapshot); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Back возвращается на предыдущий шаг; на первом шаге ничего не делает.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step > 0 {
		w.step--
	}
}

// AddKeyword добавляет непустое слово, если его ещё нет (с учётом регистра).
func (w *Wizard) AddKeyword(keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, k := range w.criteria.Keywords {
		if k == keyword {
			return false
		}
	}
	w.criteria.Keywords = append(w.criteria.Keywords, keyword)
	return true
}

// RemoveKeyword удаляет точное совпадение; отсутствие слова не ошибка.
func (w *Wizard) RemoveKeyword(keyword string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, k := range w.criteria.Keywords {
		if k == keyword {
			w.criteria.Keywords = append(w.criteria.Keywords[:i:i], w.criteria.Keywords[i+1:]...)
			return true
		}
	}
	return false
}

// Progress = (шаг+1)/всего шагов.
func (w *Wizard) Progress() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return progress(w.step)
}

// CurrentStep возвращает индекс текущего шага.
func (w *Wizard) CurrentStep() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.step
}

// Criteria возвращает копию накопленных критериев.
func (w *Wizard) Criteria() Criteria {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.criteria.Clone()
}

func (w *Wizard) SetJobType(v string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.criteria.JobType = strings.TrimSpace(v)
}

func (w *Wizard) SetLocation(v string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.criteria.Location = strings.TrimSpace(v)
}

func (w *Wizard) SetDistance(km int) error {
	if km < 0 || km > MaxDistance {
		return fmt.Errorf("%w: %d", ErrDistanceOutOfRange, km)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.criteria.Distance = km
	return nil
}

func (w *Wizard) SetContractType(v ContractType) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownContractType, v)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.criteria.ContractType = v
	return nil
}

func (w *Wizard) SetWorkSchedule(v WorkSchedule) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownWorkSchedule, v)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.criteria.WorkSchedule = v
	return nil
}

func (w *Wizard) SetExperience(v ExperienceLevel) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownExperience, v)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.criteria.Experience = v
	return nil
}

func (w *Wizard) SetRemoteWork(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.criteria.RemoteWork = v
}

// Patch — частичное обновление скалярных полей. nil поля не меняются.
type Patch struct {
	JobType      *string          `json:"jobType"`
	Location     *string          `json:"location"`
	Distance     *int             `json:"distance"`
	ContractType *ContractType    `json:"contractType"`
	WorkSchedule *WorkSchedule    `json:"workSchedule"`
	Experience   *ExperienceLevel `json:"experience"`
	RemoteWork   *bool            `json:"remoteWork"`
}

// Apply применяет patch целиком или не применяет ничего.
func (w *Wizard) Apply(p Patch) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.criteria
	if p.JobType != nil {
		next.JobType = strings.TrimSpace(*p.JobType)
	}
	if p.Location != nil {
		next.Location = strings.TrimSpace(*p.Location)
	}
	if p.Distance != nil {
		next.Distance = *p.Distance
	}
	if p.ContractType != nil {
		next.ContractType = *p.ContractType
	}
	if p.WorkSchedule != nil {
		next.WorkSchedule = *p.WorkSchedule
	}
	if p.Experience != nil {
		next.Experience = *p.Experience
	}
	if p.RemoteWork != nil {
		next.RemoteWork = *p.RemoteWork
	}

	if err := next.Validate(); err != nil {
		return err
	}
	w.criteria = next
	return nil
}

// Snapshot — состояние мастера для API.
type Snapshot struct {
	CurrentStep int      `json:"currentStep"`
	TotalSteps  int      `json:"totalSteps"`
	Progress    float64  `json:"progress"`
	Step        Step     `json:"step"`
	IsLastStep  bool     `json:"isLastStep"`
	Criteria    Criteria `json:"criteria"`
}

// Snapshot возвращает согласованный снимок состояния.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Snapshot{
		CurrentStep: w.step,
		TotalSteps:  TotalSteps,
		Progress:    progress(w.step),
		Step:        Steps[w.step],
		IsLastStep:  w.step == TotalSteps-1,
		Criteria:    w.criteria.Clone(),
	}
}

func progress(step int) float64 {
	return float64(step+1) / float64(TotalSteps)
}

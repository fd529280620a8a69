package wizard

import (
	"fmt"
)

// DefaultDistance — радиус поиска по умолчанию, км.
const DefaultDistance = 10

// MaxDistance — максимальный радиус поиска, км.
const MaxDistance = 100

// ContractType — тип договора.
type ContractType string

const (
	ContractAny           ContractType = ""
	ContractCDI           ContractType = "cdi"
	ContractCDD           ContractType = "cdd"
	ContractInterim       ContractType = "interim"
	ContractFreelance     ContractType = "freelance"
	ContractApprentissage ContractType = "apprentissage"
	ContractStage         ContractType = "stage"
)

// WorkSchedule — график работы.
type WorkSchedule string

const (
	ScheduleUnset    WorkSchedule = ""
	ScheduleFullTime WorkSchedule = "fulltime"
	SchedulePartTime WorkSchedule = "parttime"
	ScheduleFlexible WorkSchedule = "flexible"
	ScheduleAny      WorkSchedule = "any"
)

// ExperienceLevel — требуемый опыт.
type ExperienceLevel string

const (
	ExperienceUnset        ExperienceLevel = ""
	ExperienceDebutant     ExperienceLevel = "debutant"
	ExperienceJunior       ExperienceLevel = "junior"
	ExperienceIntermediate ExperienceLevel = "intermediaire"
	ExperienceSenior       ExperienceLevel = "senior"
	ExperienceExpert       ExperienceLevel = "expert"
	ExperienceAny          ExperienceLevel = "any"
)

// ContractTypes перечисляет допустимые непустые значения.
var ContractTypes = []ContractType{ContractCDI, ContractCDD, ContractInterim, ContractFreelance, ContractApprentissage, ContractStage}

// WorkSchedules перечисляет допустимые непустые значения.
var WorkSchedules = []WorkSchedule{ScheduleFullTime, SchedulePartTime, ScheduleFlexible, ScheduleAny}

// ExperienceLevels перечисляет допустимые непустые значения.
var ExperienceLevels = []ExperienceLevel{ExperienceDebutant, ExperienceJunior, ExperienceIntermediate, ExperienceSenior, ExperienceExpert, ExperienceAny}

func (c ContractType) Valid() bool {
	if c == ContractAny {
		return true
	}
	for _, v := range ContractTypes {
		if v == c {
			return true
		}
	}
	return false
}

func (s WorkSchedule) Valid() bool {
	if s == ScheduleUnset {
		return true
	}
	for _, v := range WorkSchedules {
		if v == s {
			return true
		}
	}
	return false
}

func (e ExperienceLevel) Valid() bool {
	if e == ExperienceUnset {
		return true
	}
	for _, v := range ExperienceLevels {
		if v == e {
			return true
		}
	}
	return false
}

// Criteria — критерии поиска, которые собирает мастер.
type Criteria struct {
	JobType      string          `json:"jobType"`
	Location     string          `json:"location"`
	Distance     int             `json:"distance"`
	ContractType ContractType    `json:"contractType"`
	WorkSchedule WorkSchedule    `json:"workSchedule"`
	Experience   ExperienceLevel `json:"experience"`
	Keywords     []string        `json:"keywords"`
	RemoteWork   bool            `json:"remoteWork"`
}

// DefaultCriteria возвращает начальные значения мастера.
func DefaultCriteria() Criteria {
	return Criteria{
		Distance: DefaultDistance,
		Keywords: []string{},
	}
}

// Clone возвращает копию с независимым срезом ключевых слов.
func (c Criteria) Clone() Criteria {
	out := c
	out.Keywords = make([]string, len(c.Keywords))
	copy(out.Keywords, c.Keywords)
	return out
}

// Validate проверяет домены полей.
func (c Criteria) Validate() error {
	if c.Distance < 0 || c.Distance > MaxDistance {
		return fmt.Errorf("%w: %d", ErrDistanceOutOfRange, c.Distance)
	}
	if !c.ContractType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownContractType, c.ContractType)
	}
	if !c.WorkSchedule.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownWorkSchedule, c.WorkSchedule)
	}
	if !c.Experience.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownExperience, c.Experience)
	}
	return nil
}

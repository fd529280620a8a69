package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// SearchCriteria — последние завершённые критерии поиска пользователя.
type SearchCriteria struct {
	UserID       uuid.UUID      `db:"user_id" json:"-"`
	JobType      string         `db:"job_type" json:"jobType"`
	Location     string         `db:"location" json:"location"`
	Distance     int            `db:"distance" json:"distance"`
	ContractType string         `db:"contract_type" json:"contractType"`
	WorkSchedule string         `db:"work_schedule" json:"workSchedule"`
	Experience   string         `db:"experience" json:"experience"`
	Keywords     pq.StringArray `db:"keywords" json:"keywords"`
	RemoteWork   bool           `db:"remote_work" json:"remoteWork"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// NewSearchCriteria строит запись из критериев мастера.
func NewSearchCriteria(userID uuid.UUID, c wizard.Criteria) *SearchCriteria {
	keywords := make(pq.StringArray, len(c.Keywords))
	copy(keywords, c.Keywords)
	return &SearchCriteria{
		UserID:       userID,
		JobType:      c.JobType,
		Location:     c.Location,
		Distance:     c.Distance,
		ContractType: string(c.ContractType),
		WorkSchedule: string(c.WorkSchedule),
		Experience:   string(c.Experience),
		Keywords:     keywords,
		RemoteWork:   c.RemoteWork,
	}
}

// Criteria возвращает значение для мастера и поиска.
func (s *SearchCriteria) Criteria() wizard.Criteria {
	keywords := make([]string, len(s.Keywords))
	copy(keywords, s.Keywords)
	return wizard.Criteria{
		JobType:      s.JobType,
		Location:     s.Location,
		Distance:     s.Distance,
		ContractType: wizard.ContractType(s.ContractType),
		WorkSchedule: wizard.WorkSchedule(s.WorkSchedule),
		Experience:   wizard.ExperienceLevel(s.Experience),
		Keywords:     keywords,
		RemoteWork:   s.RemoteWork,
	}
}

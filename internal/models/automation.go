package models

import (
	"time"

	"github.com/google/uuid"
)

// Частота запуска автоматизации.
const (
	AutomationFrequencyDaily  = "daily"
	AutomationFrequencyWeekly = "weekly"
)

// DefaultMaxApplicationsPerDay — дневной лимит по умолчанию.
const DefaultMaxApplicationsPerDay = 10

// AutomationSettings — настройки автоматических откликов пользователя.
type AutomationSettings struct {
	UserID                uuid.UUID  `db:"user_id" json:"-"`
	Enabled               bool       `db:"enabled" json:"enabled"`
	Frequency             string     `db:"frequency" json:"frequency"`
	MaxApplicationsPerDay int        `db:"max_applications_per_day" json:"maxApplicationsPerDay"`
	LastRunAt             *time.Time `db:"last_run_at" json:"lastRunAt,omitempty"`
	UpdatedAt             time.Time  `db:"updated_at" json:"-"`
}

// DefaultAutomationSettings возвращает настройки для пользователя без сохранённой записи.
func DefaultAutomationSettings(userID uuid.UUID) *AutomationSettings {
	return &AutomationSettings{
		UserID:                userID,
		Frequency:             AutomationFrequencyDaily,
		MaxApplicationsPerDay: DefaultMaxApplicationsPerDay,
	}
}

// Due сообщает, пора ли запускать автоматизацию.
func (s *AutomationSettings) Due(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.LastRunAt == nil {
		return true
	}
	period := 24 * time.Hour
	if s.Frequency == AutomationFrequencyWeekly {
		period = 7 * 24 * time.Hour
	}
	return !now.Before(s.LastRunAt.Add(period))
}

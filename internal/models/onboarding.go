package models

import (
	"time"

	"github.com/google/uuid"
)

// OnboardingState — сохранённое состояние онбординга одной сессии.
type OnboardingState struct {
	SessionID           uuid.UUID `db:"session_id" json:"-"`
	UserID              uuid.UUID `db:"user_id" json:"-"`
	Stage               string    `db:"stage" json:"stage"`
	IsAuthenticated     bool      `db:"is_authenticated" json:"isAuthenticated"`
	IsProviderConnected bool      `db:"is_provider_connected" json:"isProviderConnected"`
	CriteriaCompleted   bool      `db:"criteria_completed" json:"criteriaCompleted"`
	UpdatedAt           time.Time `db:"updated_at" json:"-"`
}

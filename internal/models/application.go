package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus — статус отклика.
const (
	ApplicationStatusPending = "pending"
	ApplicationStatusSuccess = "success"
	ApplicationStatusFailure = "failure"
)

// ApplicationSource — кто отправил отклик.
const (
	ApplicationSourceManual     = "manual"
	ApplicationSourceAutomation = "automation"
)

// MatchLevel — группа процента совпадения для фильтра списка откликов.
type MatchLevel string

const (
	MatchLevelAll    MatchLevel = ""
	MatchLevelHigh   MatchLevel = "high"
	MatchLevelMedium MatchLevel = "medium"
	MatchLevelLow    MatchLevel = "low"
)

// Valid сообщает, известен ли уровень.
func (l MatchLevel) Valid() bool {
	switch l {
	case MatchLevelAll, MatchLevelHigh, MatchLevelMedium, MatchLevelLow:
		return true
	}
	return false
}

// Bounds возвращает границы процента [min, max] для уровня.
func (l MatchLevel) Bounds() (int, int) {
	switch l {
	case MatchLevelHigh:
		return 80, 100
	case MatchLevelMedium:
		return 60, 79
	case MatchLevelLow:
		return 0, 59
	}
	return 0, 100
}

// Application описывает отклик на оффер France Travail.
type Application struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          uuid.UUID `db:"user_id" json:"-"`
	OfferID         string    `db:"offer_id" json:"offer_id"`
	CompanyName     string    `db:"company_name" json:"company"`
	Position        string    `db:"position" json:"position"`
	Location        string    `db:"location" json:"location"`
	ContractType    string    `db:"contract_type" json:"contract_type"`
	Status          string    `db:"status" json:"status"`
	MatchPercentage *int      `db:"match_percentage" json:"match_percentage,omitempty"`
	IdempotencyKey  string    `db:"idempotency_key" json:"-"`
	Source          string    `db:"source" json:"source"`
	ErrorMessage    *string   `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ApplicationFilter — фильтры списка откликов.
type ApplicationFilter struct {
	UserID       uuid.UUID
	MatchLevel   MatchLevel
	ContractType string
	Location     string
	Status       string
	Limit        int
	Offset       int
}

// ApplicationStats — агрегаты для дашборда.
type ApplicationStats struct {
	Total       int `db:"total" json:"total"`
	Successful  int `db:"successful" json:"successful"`
	Pending     int `db:"pending" json:"pending"`
	Failed      int `db:"failed" json:"failed"`
	SuccessRate int `db:"-" json:"successRate"`
}

// NewApplicationStats считает процент успешных откликов с округлением; 0 без откликов.
func NewApplicationStats(total, successful, pending, failed int) ApplicationStats {
	stats := ApplicationStats{Total: total, Successful: successful, Pending: pending, Failed: failed}
	if total > 0 {
		stats.SuccessRate = int(math.Round(float64(successful) * 100 / float64(total)))
	}
	return stats
}

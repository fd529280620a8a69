package dto

import "github.com/ignatzorin/jobautomate-backend/internal/wizard"

// RegisterRequest represents the registration form
type RegisterRequest struct {
	FullName        string `json:"fullName" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// LoginRequest represents the login form
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// CriteriaRequest represents a complete set of search criteria
type CriteriaRequest struct {
	JobType      string   `json:"jobType"`
	Location     string   `json:"location"`
	Distance     *int     `json:"distance"`
	ContractType string   `json:"contractType"`
	WorkSchedule string   `json:"workSchedule"`
	Experience   string   `json:"experience"`
	Keywords     []string `json:"keywords"`
	RemoteWork   bool     `json:"remoteWork"`
}

// ToCriteria converts the request, applying defaults for omitted fields
func (r CriteriaRequest) ToCriteria() wizard.Criteria {
	c := wizard.DefaultCriteria()
	c.JobType = r.JobType
	c.Location = r.Location
	if r.Distance != nil {
		c.Distance = *r.Distance
	}
	c.ContractType = wizard.ContractType(r.ContractType)
	c.WorkSchedule = wizard.WorkSchedule(r.WorkSchedule)
	c.Experience = wizard.ExperienceLevel(r.Experience)
	if r.Keywords != nil {
		c.Keywords = append([]string{}, r.Keywords...)
	}
	c.RemoteWork = r.RemoteWork
	return c
}

// KeywordRequest adds or removes a wizard keyword
type KeywordRequest struct {
	Keyword string `json:"keyword" binding:"required"`
}

// ApplyRequest represents an application to an offer
type ApplyRequest struct {
	OfferID     string `json:"offerId" binding:"required"`
	CoverLetter string `json:"coverLetter"`
}

// AutomationRequest updates automation settings
type AutomationRequest struct {
	Enabled               bool   `json:"enabled"`
	Frequency             string `json:"frequency" binding:"required"`
	MaxApplicationsPerDay int    `json:"maxApplicationsPerDay" binding:"required"`
}

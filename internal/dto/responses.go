package dto

import (
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/onboarding"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps a page of items
type ListResponse struct {
	Items  interface{} `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// SessionResponse describes the current session for the client
type SessionResponse struct {
	Onboarding onboarding.State `json:"onboarding"`
	User       *models.User     `json:"user,omitempty"`
}

// UnreadCountResponse carries the number of unread notifications
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// DocumentsResponse lists uploaded documents
type DocumentsResponse struct {
	Documents []models.Document `json:"documents"`
}

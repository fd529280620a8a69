package models

import (
	"time"

	"github.com/google/uuid"
)

// Варианты отображения уведомления.
const (
	NotificationVariantDefault     = "default"
	NotificationVariantDestructive = "destructive"
)

// Notification описывает уведомление пользователя.
type Notification struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Variant     string    `db:"variant" json:"variant"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

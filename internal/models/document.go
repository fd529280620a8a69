package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentKind — тип загруженного документа.
type DocumentKind string

const (
	DocumentKindCV          DocumentKind = "cv"
	DocumentKindCoverLetter DocumentKind = "cover_letter"
)

// Valid сообщает, поддерживается ли тип.
func (k DocumentKind) Valid() bool {
	return k == DocumentKindCV || k == DocumentKindCoverLetter
}

// Document описывает загруженный CV или мотивационное письмо.
type Document struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	UserID       uuid.UUID    `db:"user_id" json:"-"`
	Kind         DocumentKind `db:"kind" json:"kind"`
	OriginalName string       `db:"original_name" json:"name"`
	FilePath     string       `db:"file_path" json:"-"`
	MimeType     string       `db:"mime_type" json:"mime_type"`
	FileSize     int64        `db:"file_size" json:"size"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

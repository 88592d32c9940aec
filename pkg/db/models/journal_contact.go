package models

import (
	"time"

	"github.com/google/uuid"
)

// JournalContact is the membership of a contact in a journal. Decisions and
// stage events hang off it.
type JournalContact struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JournalID uuid.UUID `gorm:"column:journal_id;type:uuid;not null"`
	ContactID uuid.UUID `gorm:"column:contact_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (JournalContact) TableName() string { return "journal_contacts" }

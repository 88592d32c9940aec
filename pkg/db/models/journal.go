package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Journal is a fundraising campaign with a goal amount.
type Journal struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID     uuid.UUID       `gorm:"column:owner_id;type:uuid;not null"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	GoalAmount  decimal.Decimal `gorm:"column:goal_amount;type:numeric(10,2);not null"`
	Deadline    *time.Time      `gorm:"column:deadline;type:date"`
	IsArchived  bool            `gorm:"column:is_archived;not null;default:false"`
	ArchivedAt  *time.Time      `gorm:"column:archived_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Journal) TableName() string { return "journals" }

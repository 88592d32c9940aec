package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

// Decision is the current pledge for one journal contact. Version backs the
// optimistic concurrency check on update.
type Decision struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JournalContactID uuid.UUID             `gorm:"column:journal_contact_id;type:uuid;not null;uniqueIndex:ux_journal_decisions_journal_contact"`
	Amount           decimal.Decimal       `gorm:"column:amount;type:numeric(10,2);not null"`
	Cadence          enums.DecisionCadence `gorm:"column:cadence;type:decision_cadence;not null"`
	Status           enums.DecisionStatus  `gorm:"column:status;type:decision_status;not null"`
	Version          int                   `gorm:"column:version;not null;default:1"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (Decision) TableName() string { return "journal_decisions" }

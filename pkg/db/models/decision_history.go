package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DecisionHistory holds the values of the fields a single update overwrote.
type DecisionHistory struct {
	ID            uuid.UUID                             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Seq           int64                                 `gorm:"column:seq;->"`
	DecisionID    uuid.UUID                             `gorm:"column:decision_id;type:uuid;not null"`
	ChangedFields datatypes.JSONType[map[string]string] `gorm:"column:changed_fields;type:jsonb;not null"`
	ChangedBy     *uuid.UUID                            `gorm:"column:changed_by;type:uuid"`
	CreatedAt     time.Time                             `gorm:"column:created_at;autoCreateTime"`
}

func (DecisionHistory) TableName() string { return "journal_decision_history" }

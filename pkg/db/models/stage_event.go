package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

// StageEvent is an immutable pipeline interaction.
type StageEvent struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Seq              int64                `gorm:"column:seq;->"`
	JournalContactID uuid.UUID            `gorm:"column:journal_contact_id;type:uuid;not null"`
	Stage            enums.PipelineStage  `gorm:"column:stage;type:pipeline_stage;not null"`
	EventType        enums.StageEventType `gorm:"column:event_type;type:stage_event_type;not null"`
	Notes            string               `gorm:"column:notes;not null;default:''"`
	Metadata         datatypes.JSONMap    `gorm:"column:metadata;type:jsonb;not null"`
	TriggeredBy      *uuid.UUID           `gorm:"column:triggered_by;type:uuid"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (StageEvent) TableName() string { return "journal_stage_events" }

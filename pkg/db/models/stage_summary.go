package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

// StageSummary is the write-time projection of stage events per
// (journal contact, stage). It is upserted in the same transaction as the event.
type StageSummary struct {
	JournalContactID uuid.UUID            `gorm:"column:journal_contact_id;type:uuid;primaryKey"`
	Stage            enums.PipelineStage  `gorm:"column:stage;type:pipeline_stage;primaryKey"`
	EventCount       int                  `gorm:"column:event_count;not null;default:0"`
	LastEventID      uuid.UUID            `gorm:"column:last_event_id;type:uuid;not null"`
	LastEventAt      time.Time            `gorm:"column:last_event_at;not null"`
	LastEventType    enums.StageEventType `gorm:"column:last_event_type;type:stage_event_type;not null"`
	LastEventNotes   string               `gorm:"column:last_event_notes;not null;default:''"`
}

func (StageSummary) TableName() string { return "journal_stage_summaries" }

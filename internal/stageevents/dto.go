package stageevents

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/donorjournal-backend/internal/pipeline"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

// StageEventDTO is the transport shape for a stage event.
type StageEventDTO struct {
	ID           uuid.UUID            `json:"id"`
	MembershipID uuid.UUID            `json:"journal_contact_id"`
	Stage        enums.PipelineStage  `json:"stage"`
	EventType    enums.StageEventType `json:"event_type"`
	Notes        string               `json:"notes"`
	Metadata     map[string]any       `json:"metadata"`
	TriggeredBy  *uuid.UUID           `json:"triggered_by,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// AppendResult carries the new event and the advisory transition it made.
type AppendResult struct {
	Event        StageEventDTO        `json:"event"`
	Transition   pipeline.Transition  `json:"transition"`
	CurrentStage *enums.PipelineStage `json:"current_stage"`
}

// StageSummaryDTO describes one stage for one membership.
type StageSummaryDTO struct {
	Stage          enums.PipelineStage   `json:"stage"`
	HasEvents      bool                  `json:"has_events"`
	EventCount     int                   `json:"event_count"`
	LastEventAt    *time.Time            `json:"last_event_timestamp"`
	LastEventType  *enums.StageEventType `json:"last_event_type"`
	LastEventNotes string                `json:"last_event_notes"`
	Freshness      enums.FreshnessBand   `json:"freshness"`
}

// MembershipSummary is the full pipeline picture for one membership.
type MembershipSummary struct {
	MembershipID uuid.UUID                               `json:"journal_contact_id"`
	CurrentStage *enums.PipelineStage                    `json:"current_stage"`
	Stages       map[enums.PipelineStage]StageSummaryDTO `json:"stages"`
}

// EventList is one newest-first page of stage events.
type EventList struct {
	Events     []StageEventDTO `json:"events"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// StageCount is one bucket of the pipeline breakdown.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// Breakdown counts a journal's memberships by current stage. Memberships
// without events land in the "none" bucket.
type Breakdown struct {
	JournalID uuid.UUID    `json:"journal_id"`
	Total     int          `json:"total"`
	Stages    []StageCount `json:"stages"`
}

// MonthActivity counts one month's stage events. Every stage is present,
// zero when nothing was recorded for it.
type MonthActivity struct {
	Month  string                      `json:"month"`
	Total  int                         `json:"total"`
	Stages map[enums.PipelineStage]int `json:"stages"`
}

// StageActivity is a journal's stage event volume per month, oldest first.
type StageActivity struct {
	JournalID uuid.UUID       `json:"journal_id"`
	Months    []MonthActivity `json:"months"`
}

// NoStageBucket labels memberships that have no stage events yet.
const NoStageBucket = "none"

func eventToDTO(m *models.StageEvent) StageEventDTO {
	metadata := map[string]any(m.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	var triggeredBy *uuid.UUID
	if m.TriggeredBy != nil {
		id := *m.TriggeredBy
		triggeredBy = &id
	}
	return StageEventDTO{
		ID:           m.ID,
		MembershipID: m.JournalContactID,
		Stage:        m.Stage,
		EventType:    m.EventType,
		Notes:        m.Notes,
		Metadata:     metadata,
		TriggeredBy:  triggeredBy,
		CreatedAt:    m.CreatedAt,
	}
}

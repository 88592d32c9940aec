package payloads

import (
	"time"

	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
	"github.com/google/uuid"
)

// DecisionCreatedEvent is emitted when the first decision for a journal contact is recorded.
type DecisionCreatedEvent struct {
	DecisionID        uuid.UUID             `json:"decision_id"`
	JournalContactID  uuid.UUID             `json:"journal_contact_id"`
	Amount            string                `json:"amount"`
	Cadence           enums.DecisionCadence `json:"cadence"`
	Status            enums.DecisionStatus  `json:"status"`
	MonthlyEquivalent string                `json:"monthly_equivalent"`
}

// DecisionUpdatedEvent carries the previous values of every changed field.
type DecisionUpdatedEvent struct {
	DecisionID       uuid.UUID             `json:"decision_id"`
	JournalContactID uuid.UUID             `json:"journal_contact_id"`
	HistoryID        uuid.UUID             `json:"history_id"`
	ChangedFields    map[string]string     `json:"changed_fields"`
	Amount           string                `json:"amount"`
	Cadence          enums.DecisionCadence `json:"cadence"`
	Status           enums.DecisionStatus  `json:"status"`
	Version          int                   `json:"version"`
}

// StageEventRecordedEvent mirrors an appended stage event.
type StageEventRecordedEvent struct {
	StageEventID     uuid.UUID            `json:"stage_event_id"`
	JournalContactID uuid.UUID            `json:"journal_contact_id"`
	Stage            enums.PipelineStage  `json:"stage"`
	EventType        enums.StageEventType `json:"event_type"`
	RecordedAt       time.Time            `json:"recorded_at"`
}

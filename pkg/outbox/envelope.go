package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is bumped when the envelope shape changes incompatibly.
const EnvelopeVersion = 1

// ActorRef is the user an activity event is attributed to. UserID is nil for
// writes without an authenticated actor.
type ActorRef struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
}

// PayloadEnvelope is stored in outbox_events.payload and published verbatim.
// Data holds the typed event from pkg/outbox/payloads.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	Source     string          `json:"source,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

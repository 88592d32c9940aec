package enums

import "slices"

// StageEventType maps to the stage_event_type enum in Postgres.
type StageEventType string

const (
	StageEventCallLogged        StageEventType = "call_logged"
	StageEventEmailSent         StageEventType = "email_sent"
	StageEventTextSent          StageEventType = "text_sent"
	StageEventLetterSent        StageEventType = "letter_sent"
	StageEventMeetingScheduled  StageEventType = "meeting_scheduled"
	StageEventMeetingCompleted  StageEventType = "meeting_completed"
	StageEventAskMade           StageEventType = "ask_made"
	StageEventFollowUpScheduled StageEventType = "follow_up_scheduled"
	StageEventFollowUpCompleted StageEventType = "follow_up_completed"
	StageEventDecisionReceived  StageEventType = "decision_received"
	StageEventThankYouSent      StageEventType = "thank_you_sent"
	StageEventNextStepCreated   StageEventType = "next_step_created"
	StageEventNoteAdded         StageEventType = "note_added"
	StageEventOther             StageEventType = "other"
)

var validStageEventTypes = []StageEventType{
	StageEventCallLogged,
	StageEventEmailSent,
	StageEventTextSent,
	StageEventLetterSent,
	StageEventMeetingScheduled,
	StageEventMeetingCompleted,
	StageEventAskMade,
	StageEventFollowUpScheduled,
	StageEventFollowUpCompleted,
	StageEventDecisionReceived,
	StageEventThankYouSent,
	StageEventNextStepCreated,
	StageEventNoteAdded,
	StageEventOther,
}

// String implements fmt.Stringer.
func (t StageEventType) String() string {
	return string(t)
}

// IsValid reports whether the value matches a known StageEventType.
func (t StageEventType) IsValid() bool {
	return slices.Contains(validStageEventTypes, t)
}

// UnmarshalText rejects unknown event types while decoding.
func (t *StageEventType) UnmarshalText(text []byte) error {
	return decodeText(t, validStageEventTypes, text, "stage event type")
}

// ParseStageEventType converts raw input into a StageEventType.
func ParseStageEventType(value string) (StageEventType, error) {
	return parse(validStageEventTypes, value, "stage event type")
}

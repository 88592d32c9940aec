package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateDecision   OutboxAggregateType = "decision"
	AggregateStageEvent OutboxAggregateType = "stage_event"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateDecision,
	AggregateStageEvent,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventDecisionCreated    OutboxEventType = "decision_created"
	EventDecisionUpdated    OutboxEventType = "decision_updated"
	EventStageEventRecorded OutboxEventType = "stage_event_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventDecisionCreated,
	EventDecisionUpdated,
	EventStageEventRecorded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}

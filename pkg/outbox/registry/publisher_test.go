package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/donorjournal-backend/pkg/config"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
	"github.com/angelmondragon/donorjournal-backend/pkg/outbox"
	"github.com/angelmondragon/donorjournal-backend/pkg/outbox/payloads"
)

const testTopic = "journal-activity"

func TestResolveDecisionUpdated(t *testing.T) {
	decisionID := uuid.New()
	row := outboxRow(enums.EventDecisionUpdated, enums.AggregateDecision, decisionID,
		envelopeWith(t, outbox.EnvelopeVersion, payloads.DecisionUpdatedEvent{
			DecisionID:    decisionID,
			ChangedFields: map[string]string{"amount": "100.00"},
			Amount:        "150.00",
			Cadence:       enums.CadenceMonthly,
			Status:        enums.DecisionStatusActive,
			Version:       2,
		}))

	resolved, err := testRegistry(t).Resolve(row)
	require.NoError(t, err)

	assert.Equal(t, testTopic, resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())
	require.IsType(t, &payloads.DecisionUpdatedEvent{}, resolved.Payload)
	payload := resolved.Payload.(*payloads.DecisionUpdatedEvent)
	assert.Equal(t, decisionID, payload.DecisionID)
	assert.Equal(t, "100.00", payload.ChangedFields["amount"])
	assert.Equal(t, 2, payload.Version)
}

func TestResolveStageEventRecorded(t *testing.T) {
	row := outboxRow(enums.EventStageEventRecorded, enums.AggregateStageEvent, uuid.New(),
		envelopeWith(t, outbox.EnvelopeVersion, payloads.StageEventRecordedEvent{
			Stage:     enums.StageMeet,
			EventType: enums.StageEventMeetingCompleted,
		}))

	resolved, err := testRegistry(t).Resolve(row)
	require.NoError(t, err)
	payload, ok := resolved.Payload.(*payloads.StageEventRecordedEvent)
	require.True(t, ok)
	assert.Equal(t, enums.StageMeet, payload.Stage)
	assert.Equal(t, enums.StageEventMeetingCompleted, payload.EventType)
}

func TestResolveParksUnusableRows(t *testing.T) {
	cases := map[string]models.OutboxEvent{
		"unknown event type": outboxRow("journal_archived", enums.AggregateDecision, uuid.New(),
			envelopeWith(t, outbox.EnvelopeVersion, map[string]string{"reason": "none"})),
		"aggregate mismatch": outboxRow(enums.EventDecisionCreated, enums.AggregateStageEvent, uuid.New(),
			envelopeWith(t, outbox.EnvelopeVersion, map[string]string{})),
		"missing aggregate id": outboxRow(enums.EventDecisionCreated, enums.AggregateDecision, uuid.Nil,
			envelopeWith(t, outbox.EnvelopeVersion, map[string]string{})),
		"null payload": outboxRow(enums.EventDecisionCreated, enums.AggregateDecision, uuid.New(),
			envelopeWith(t, outbox.EnvelopeVersion, nil)),
		"newer envelope": outboxRow(enums.EventDecisionCreated, enums.AggregateDecision, uuid.New(),
			envelopeWith(t, outbox.EnvelopeVersion+1, map[string]string{})),
		"corrupt envelope": outboxRow(enums.EventDecisionCreated, enums.AggregateDecision, uuid.New(),
			json.RawMessage(`{"version":`)),
		"payload of wrong shape": outboxRow(enums.EventDecisionCreated, enums.AggregateDecision, uuid.New(),
			envelopeWith(t, outbox.EnvelopeVersion, []string{"not", "an", "object"})),
	}

	reg := testRegistry(t)
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			require.Error(t, err)
			assert.ErrorAs(t, err, new(NonRetryableError))
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	assert.EqualError(t, err, "activity topic is required")
}

func TestNonRetryableErrorMessage(t *testing.T) {
	assert.Equal(t, "non-retryable error", NonRetryableError{}.Error())
	assert.Equal(t, "missing aggregate_id", nonRetryable("missing aggregate_id").Error())
}

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{ActivityTopic: testTopic})
	require.NoError(t, err)
	return reg
}

func outboxRow(eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, id uuid.UUID, payload json.RawMessage) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   id,
		Payload:       payload,
	}
}

func envelopeWith(t *testing.T, version int, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return env
}

package stageevents

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/donorjournal-backend/internal/memberships"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/dbtest"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
	"github.com/angelmondragon/donorjournal-backend/pkg/logger"
	"github.com/angelmondragon/donorjournal-backend/pkg/outbox"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingSummaryRepo struct {
	Repository
}

func (f *failingSummaryRepo) WithTx(tx *gorm.DB) Repository {
	return &failingSummaryRepo{Repository: f.Repository.WithTx(tx)}
}

func (f *failingSummaryRepo) UpsertSummary(context.Context, *models.StageSummary) error {
	return errors.New("database is locked")
}

type fixture struct {
	conn       *gorm.DB
	svc        Service
	clock      *manualClock
	journal    models.Journal
	membership models.JournalContact
}

func newFixture(t *testing.T, wrap func(Repository) Repository) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)

	repo := NewRepository(conn)
	if wrap != nil {
		repo = wrap(repo)
	}
	clock := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Repo:        repo,
		DB:          client,
		Outbox:      outbox.NewService(outbox.NewRepository(conn), nil),
		Memberships: memberships.NewRepository(conn),
		Logger:      logger.New(logger.Options{ServiceName: "stageevents-test", Output: io.Discard}),
		Now:         clock.Now,
	})
	require.NoError(t, err)

	journal := dbtest.SeedJournal(t, conn, "10000.00")
	return &fixture{
		conn:       conn,
		svc:        svc,
		clock:      clock,
		journal:    journal,
		membership: dbtest.SeedMembership(t, conn, journal.ID),
	}
}

func (f *fixture) append(t *testing.T, membershipID uuid.UUID, stage enums.PipelineStage, eventType enums.StageEventType) *AppendResult {
	t.Helper()
	f.clock.Advance(time.Minute)
	result, err := f.svc.Append(context.Background(), AppendInput{
		MembershipID: membershipID,
		Stage:        stage,
		EventType:    eventType,
	})
	require.NoError(t, err)
	return result
}

func TestCurrentStageFollowsAppends(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	current, err := f.svc.CurrentStage(ctx, f.membership.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	f.append(t, f.membership.ID, enums.StageContact, enums.StageEventCallLogged)
	current, err = f.svc.CurrentStage(ctx, f.membership.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, enums.StageContact, *current)

	summary, err := f.svc.Summarize(ctx, f.membership.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Stages[enums.StageContact].EventCount)

	f.append(t, f.membership.ID, enums.StageMeet, enums.StageEventMeetingCompleted)
	current, err = f.svc.CurrentStage(ctx, f.membership.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, enums.StageMeet, *current)

	summary, err = f.svc.Summarize(ctx, f.membership.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Stages[enums.StageContact].EventCount)
	assert.Equal(t, 1, summary.Stages[enums.StageMeet].EventCount)
	require.NotNil(t, summary.CurrentStage)
	assert.Equal(t, enums.StageMeet, *summary.CurrentStage)
}

func TestCurrentStageIsHighestStageWithEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.append(t, f.membership.ID, enums.StageNextSteps, enums.StageEventNextStepCreated)
	f.append(t, f.membership.ID, enums.StageClose, enums.StageEventAskMade)

	current, err := f.svc.CurrentStage(context.Background(), f.membership.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, enums.StageNextSteps, *current)
}

func TestAppendReportsAdvisoryTransition(t *testing.T) {
	f := newFixture(t, nil)

	first := f.append(t, f.membership.ID, enums.StageContact, enums.StageEventCallLogged)
	assert.Equal(t, enums.TransitionSequential, first.Transition.Kind)
	assert.Nil(t, first.Transition.From)

	skipped := f.append(t, f.membership.ID, enums.StageDecision, enums.StageEventDecisionReceived)
	assert.Equal(t, enums.TransitionSkipping, skipped.Transition.Kind)
	assert.Equal(t, []enums.PipelineStage{enums.StageMeet, enums.StageClose}, skipped.Transition.SkippedStages)
	require.NotNil(t, skipped.CurrentStage)
	assert.Equal(t, enums.StageDecision, *skipped.CurrentStage)

	back := f.append(t, f.membership.ID, enums.StageMeet, enums.StageEventMeetingScheduled)
	assert.Equal(t, enums.TransitionRevisiting, back.Transition.Kind)
	require.NotNil(t, back.CurrentStage)
	assert.Equal(t, enums.StageDecision, *back.CurrentStage)

	advice, err := f.svc.AdviseTransition(context.Background(), f.membership.ID, enums.StageThank)
	require.NoError(t, err)
	assert.Equal(t, enums.TransitionSequential, advice.Kind)

	_, err = f.svc.AdviseTransition(context.Background(), f.membership.ID, "limbo")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSummarizeFillsEveryStage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.clock.Advance(time.Minute)
	long := strings.Repeat("é", 150)
	_, err := f.svc.Append(ctx, AppendInput{
		MembershipID: f.membership.ID,
		Stage:        enums.StageContact,
		EventType:    enums.StageEventEmailSent,
		Notes:        long,
		Metadata:     map[string]any{"channel": "email"},
	})
	require.NoError(t, err)
	f.append(t, f.membership.ID, enums.StageContact, enums.StageEventCallLogged)
	f.clock.Advance(8 * 24 * time.Hour)

	summary, err := f.svc.Summarize(ctx, f.membership.ID)
	require.NoError(t, err)
	require.Len(t, summary.Stages, 6)

	contact := summary.Stages[enums.StageContact]
	assert.True(t, contact.HasEvents)
	assert.Equal(t, 2, contact.EventCount)
	require.NotNil(t, contact.LastEventType)
	assert.Equal(t, enums.StageEventCallLogged, *contact.LastEventType)
	assert.Equal(t, "", contact.LastEventNotes)
	assert.Equal(t, enums.FreshnessAging, contact.Freshness)

	for _, stage := range enums.PipelineStages()[1:] {
		empty := summary.Stages[stage]
		assert.False(t, empty.HasEvents, stage)
		assert.Zero(t, empty.EventCount, stage)
		assert.Nil(t, empty.LastEventAt, stage)
		assert.Equal(t, enums.FreshnessNone, empty.Freshness, stage)
	}

	var stored models.StageSummary
	require.NoError(t, f.conn.Where("journal_contact_id = ? AND stage = ?", f.membership.ID, enums.StageContact).First(&stored).Error)
	assert.Equal(t, 2, stored.EventCount)

	var events []models.StageEvent
	require.NoError(t, f.conn.Where("journal_contact_id = ?", f.membership.ID).Order("seq").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, long, events[0].Notes)
	assert.Equal(t, "email", events[0].Metadata["channel"])
	assert.Less(t, events[0].Seq, events[1].Seq)
}

func TestSummaryNotesAreTruncated(t *testing.T) {
	f := newFixture(t, nil)
	long := strings.Repeat("ü", 150)
	_, err := f.svc.Append(context.Background(), AppendInput{
		MembershipID: f.membership.ID,
		Stage:        enums.StageThank,
		EventType:    enums.StageEventThankYouSent,
		Notes:        long,
	})
	require.NoError(t, err)

	summary, err := f.svc.Summarize(context.Background(), f.membership.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ü", 100), summary.Stages[enums.StageThank].LastEventNotes)
}

func TestAppendValidation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		input AppendInput
		code  pkgerrors.Code
	}{
		{name: "missing membership", input: AppendInput{Stage: enums.StageContact, EventType: enums.StageEventOther}, code: pkgerrors.CodeValidation},
		{name: "unknown stage", input: AppendInput{MembershipID: f.membership.ID, Stage: "limbo", EventType: enums.StageEventOther}, code: pkgerrors.CodeValidation},
		{name: "unknown event type", input: AppendInput{MembershipID: f.membership.ID, Stage: enums.StageContact, EventType: "smoke_signal"}, code: pkgerrors.CodeValidation},
		{name: "unknown membership", input: AppendInput{MembershipID: uuid.New(), Stage: enums.StageContact, EventType: enums.StageEventOther}, code: pkgerrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Append(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, pkgerrors.CodeOf(err))
		})
	}

	_, err := f.svc.Summarize(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestAppendIsAtomic(t *testing.T) {
	f := newFixture(t, func(repo Repository) Repository {
		return &failingSummaryRepo{Repository: repo}
	})

	_, err := f.svc.Append(context.Background(), AppendInput{
		MembershipID: f.membership.ID,
		Stage:        enums.StageContact,
		EventType:    enums.StageEventCallLogged,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.IsRetryable(err))

	var events, outboxRows int64
	require.NoError(t, f.conn.Model(&models.StageEvent{}).Count(&events).Error)
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Count(&outboxRows).Error)
	assert.Zero(t, events)
	assert.Zero(t, outboxRows)
}

func TestAppendQueuesActivityEvent(t *testing.T) {
	f := newFixture(t, nil)
	result := f.append(t, f.membership.ID, enums.StageContact, enums.StageEventCallLogged)

	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventStageEventRecorded, rows[0].EventType)
	assert.Equal(t, result.Event.ID, rows[0].AggregateID)
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, f.append(t, f.membership.ID, enums.StageContact, enums.StageEventNoteAdded).Event.ID)
	}
	// same timestamp: insertion order decides
	tied, err := f.svc.Append(ctx, AppendInput{MembershipID: f.membership.ID, Stage: enums.StageMeet, EventType: enums.StageEventMeetingScheduled})
	require.NoError(t, err)
	ids = append(ids, tied.Event.ID)

	first, err := f.svc.List(ctx, ListParams{MembershipID: f.membership.ID, Limit: 4})
	require.NoError(t, err)
	require.Len(t, first.Events, 4)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, ids[5], first.Events[0].ID)
	assert.Equal(t, ids[4], first.Events[1].ID)
	assert.Equal(t, ids[2], first.Events[3].ID)

	second, err := f.svc.List(ctx, ListParams{MembershipID: f.membership.ID, Limit: 4, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Events, 2)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, ids[1], second.Events[0].ID)
	assert.Equal(t, ids[0], second.Events[1].ID)

	meet := enums.StageMeet
	filtered, err := f.svc.List(ctx, ListParams{MembershipID: f.membership.ID, Stage: &meet})
	require.NoError(t, err)
	require.Len(t, filtered.Events, 1)
	assert.Equal(t, ids[5], filtered.Events[0].ID)

	_, err = f.svc.List(ctx, ListParams{MembershipID: f.membership.ID, Cursor: "%%%"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestPipelineBreakdown(t *testing.T) {
	f := newFixture(t, nil)
	second := dbtest.SeedMembership(t, f.conn, f.journal.ID)
	third := dbtest.SeedMembership(t, f.conn, f.journal.ID)
	dbtest.SeedMembership(t, f.conn, f.journal.ID)

	f.append(t, f.membership.ID, enums.StageContact, enums.StageEventCallLogged)
	f.append(t, f.membership.ID, enums.StageMeet, enums.StageEventMeetingCompleted)
	f.append(t, second.ID, enums.StageMeet, enums.StageEventMeetingScheduled)
	f.append(t, third.ID, enums.StageThank, enums.StageEventThankYouSent)
	f.append(t, third.ID, enums.StageContact, enums.StageEventNoteAdded)

	other := dbtest.SeedJournal(t, f.conn, "10.00")
	stranger := dbtest.SeedMembership(t, f.conn, other.ID)
	f.append(t, stranger.ID, enums.StageClose, enums.StageEventAskMade)

	breakdown, err := f.svc.PipelineBreakdown(context.Background(), f.journal.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, breakdown.Total)
	assert.Equal(t, []StageCount{
		{Stage: NoStageBucket, Count: 1},
		{Stage: "contact", Count: 0},
		{Stage: "meet", Count: 2},
		{Stage: "close", Count: 0},
		{Stage: "decision", Count: 0},
		{Stage: "thank", Count: 1},
		{Stage: "next_steps", Count: 0},
	}, breakdown.Stages)
}

func TestStageActivityPivotsMonths(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	second := dbtest.SeedMembership(t, f.conn, f.journal.ID)

	f.append(t, f.membership.ID, enums.StageContact, enums.StageEventCallLogged)
	f.append(t, second.ID, enums.StageContact, enums.StageEventEmailSent)
	f.append(t, f.membership.ID, enums.StageMeet, enums.StageEventMeetingCompleted)
	f.clock.Advance(31 * 24 * time.Hour)
	f.append(t, second.ID, enums.StageClose, enums.StageEventAskMade)

	other := dbtest.SeedJournal(t, f.conn, "10.00")
	stranger := dbtest.SeedMembership(t, f.conn, other.ID)
	f.append(t, stranger.ID, enums.StageThank, enums.StageEventThankYouSent)

	activity, err := f.svc.StageActivity(ctx, f.journal.ID)
	require.NoError(t, err)
	require.Len(t, activity.Months, 2)

	march := activity.Months[0]
	assert.Equal(t, "2026-03", march.Month)
	assert.Equal(t, 3, march.Total)
	assert.Len(t, march.Stages, len(enums.PipelineStages()))
	assert.Equal(t, 2, march.Stages[enums.StageContact])
	assert.Equal(t, 1, march.Stages[enums.StageMeet])
	assert.Zero(t, march.Stages[enums.StageClose])
	assert.Zero(t, march.Stages[enums.StageThank])

	april := activity.Months[1]
	assert.Equal(t, "2026-04", april.Month)
	assert.Equal(t, 1, april.Total)
	assert.Equal(t, 1, april.Stages[enums.StageClose])
	assert.Zero(t, april.Stages[enums.StageContact])
}

func TestStageActivityForQuietJournal(t *testing.T) {
	f := newFixture(t, nil)

	activity, err := f.svc.StageActivity(context.Background(), f.journal.ID)
	require.NoError(t, err)
	assert.Empty(t, activity.Months)
	assert.NotNil(t, activity.Months)

	_, err = f.svc.StageActivity(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

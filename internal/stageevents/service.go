package stageevents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/donorjournal-backend/internal/pipeline"
	"github.com/angelmondragon/donorjournal-backend/pkg/db"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
	"github.com/angelmondragon/donorjournal-backend/pkg/logger"
	"github.com/angelmondragon/donorjournal-backend/pkg/metrics"
	"github.com/angelmondragon/donorjournal-backend/pkg/outbox"
	"github.com/angelmondragon/donorjournal-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/donorjournal-backend/pkg/pagination"
)

// summaryNotesLimit caps last_event_notes, in runes.
const summaryNotesLimit = 100

// Service records pipeline activity and answers where a membership stands.
type Service interface {
	Append(ctx context.Context, input AppendInput) (*AppendResult, error)
	Summarize(ctx context.Context, membershipID uuid.UUID) (*MembershipSummary, error)
	CurrentStage(ctx context.Context, membershipID uuid.UUID) (*enums.PipelineStage, error)
	AdviseTransition(ctx context.Context, membershipID uuid.UUID, to enums.PipelineStage) (*pipeline.Transition, error)
	List(ctx context.Context, params ListParams) (*EventList, error)
	PipelineBreakdown(ctx context.Context, journalID uuid.UUID) (*Breakdown, error)
	StageActivity(ctx context.Context, journalID uuid.UUID) (*StageActivity, error)
}

// AppendInput is a single interaction to record.
type AppendInput struct {
	MembershipID uuid.UUID
	Stage        enums.PipelineStage
	EventType    enums.StageEventType
	Notes        string
	Metadata     map[string]any
	ActorID      *uuid.UUID
}

// ListParams pages through a membership's events, newest first.
type ListParams struct {
	MembershipID uuid.UUID
	Stage        *enums.PipelineStage
	Limit        int
	Cursor       string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type membershipChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type eventRecorder interface {
	ObserveStageEvent(stage string, duration time.Duration)
}

// ServiceParams wires the stage event service.
type ServiceParams struct {
	Repo        Repository
	DB          txRunner
	Outbox      outboxPublisher
	Memberships membershipChecker
	Logger      *logger.Logger
	Metrics     eventRecorder
	Now         func() time.Time
}

type service struct {
	repo        Repository
	db          txRunner
	outbox      outboxPublisher
	memberships membershipChecker
	logg        *logger.Logger
	metrics     eventRecorder
	now         func() time.Time
}

// NewService builds the stage event service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("stage events repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Memberships == nil {
		return nil, fmt.Errorf("membership checker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	recorder := params.Metrics
	if recorder == nil {
		recorder = metrics.NewJournalMetrics(nil)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		db:          params.DB,
		outbox:      params.Outbox,
		memberships: params.Memberships,
		logg:        params.Logger,
		metrics:     recorder,
		now:         now,
	}, nil
}

// Append stores the event, folds it into the stage projection and queues
// the activity event, all in one transaction. Out-of-order stages are
// accepted; the returned transition only describes the move.
func (s *service) Append(ctx context.Context, input AppendInput) (*AppendResult, error) {
	if input.MembershipID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "journal contact id required")
	}
	if !input.Stage.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stage %q", input.Stage)).
			WithDetails(map[string]any{"field": "stage"})
	}
	if !input.EventType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid event type %q", input.EventType)).
			WithDetails(map[string]any{"field": "event_type"})
	}
	if err := s.requireMembership(ctx, input.MembershipID); err != nil {
		return nil, err
	}

	started := time.Now()
	now := s.now().UTC()
	metadata := datatypes.JSONMap(input.Metadata)
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}
	event := &models.StageEvent{
		ID:               uuid.New(),
		JournalContactID: input.MembershipID,
		Stage:            input.Stage,
		EventType:        input.EventType,
		Notes:            input.Notes,
		Metadata:         metadata,
		TriggeredBy:      input.ActorID,
		CreatedAt:        now,
	}

	var (
		transition pipeline.Transition
		current    *enums.PipelineStage
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		summaries, err := repo.ListSummaries(ctx, input.MembershipID)
		if err != nil {
			return db.WrapStoreError(err, "load stage summaries")
		}
		previous := currentStageOf(summaries)
		transition, err = pipeline.ClassifyTransition(previous, input.Stage)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "classify transition")
		}
		current = higherStage(previous, input.Stage)

		if err := repo.Insert(ctx, event); err != nil {
			return db.WrapStoreError(err, "insert stage event")
		}
		if err := repo.UpsertSummary(ctx, &models.StageSummary{
			JournalContactID: event.JournalContactID,
			Stage:            event.Stage,
			EventCount:       1,
			LastEventID:      event.ID,
			LastEventAt:      event.CreatedAt,
			LastEventType:    event.EventType,
			LastEventNotes:   truncateRunes(event.Notes, summaryNotesLimit),
		}); err != nil {
			return db.WrapStoreError(err, "update stage summary")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStageEventRecorded,
			AggregateType: enums.AggregateStageEvent,
			AggregateID:   event.ID,
			Actor:         buildActor(input.ActorID),
			OccurredAt:    now,
			Data: payloads.StageEventRecordedEvent{
				StageEventID:     event.ID,
				JournalContactID: event.JournalContactID,
				Stage:            event.Stage,
				EventType:        event.EventType,
				RecordedAt:       event.CreatedAt,
			},
		})
	})
	if err != nil {
		return nil, db.WrapStoreError(err, "append stage event")
	}
	s.metrics.ObserveStageEvent(event.Stage.String(), time.Since(started))

	logCtx := s.logg.WithMembershipID(ctx, event.JournalContactID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"stage_event_id":  event.ID.String(),
		"stage":           event.Stage,
		"event_type":      event.EventType,
		"transition_kind": transition.Kind,
	})
	if transition.IsWarning() {
		s.logg.Warn(logCtx, "stage_event.appended_out_of_order")
	} else {
		s.logg.Info(logCtx, "stage_event.appended")
	}

	return &AppendResult{
		Event:        eventToDTO(event),
		Transition:   transition,
		CurrentStage: current,
	}, nil
}

// Summarize reads the stage projection in one query and fills in the stages
// that have no events. Freshness is computed against the service clock.
func (s *service) Summarize(ctx context.Context, membershipID uuid.UUID) (*MembershipSummary, error) {
	if err := s.requireMembership(ctx, membershipID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSummaries(ctx, membershipID)
	if err != nil {
		return nil, db.WrapStoreError(err, "load stage summaries")
	}

	now := s.now().UTC()
	byStage := make(map[enums.PipelineStage]models.StageSummary, len(rows))
	for _, row := range rows {
		byStage[row.Stage] = row
	}

	stages := make(map[enums.PipelineStage]StageSummaryDTO, len(enums.PipelineStages()))
	for _, stage := range enums.PipelineStages() {
		row, ok := byStage[stage]
		if !ok || row.EventCount == 0 {
			stages[stage] = StageSummaryDTO{Stage: stage, Freshness: enums.FreshnessNone}
			continue
		}
		lastAt := row.LastEventAt
		lastType := row.LastEventType
		stages[stage] = StageSummaryDTO{
			Stage:          stage,
			HasEvents:      true,
			EventCount:     row.EventCount,
			LastEventAt:    &lastAt,
			LastEventType:  &lastType,
			LastEventNotes: row.LastEventNotes,
			Freshness:      pipeline.FreshnessSince(&lastAt, now),
		}
	}

	return &MembershipSummary{
		MembershipID: membershipID,
		CurrentStage: currentStageOf(rows),
		Stages:       stages,
	}, nil
}

func (s *service) CurrentStage(ctx context.Context, membershipID uuid.UUID) (*enums.PipelineStage, error) {
	if err := s.requireMembership(ctx, membershipID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSummaries(ctx, membershipID)
	if err != nil {
		return nil, db.WrapStoreError(err, "load stage summaries")
	}
	return currentStageOf(rows), nil
}

// AdviseTransition classifies a prospective move from the membership's
// current stage without recording anything.
func (s *service) AdviseTransition(ctx context.Context, membershipID uuid.UUID, to enums.PipelineStage) (*pipeline.Transition, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stage %q", to)).
			WithDetails(map[string]any{"field": "to"})
	}
	current, err := s.CurrentStage(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	transition, err := pipeline.ClassifyTransition(current, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "classify transition")
	}
	return &transition, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*EventList, error) {
	if params.Stage != nil && !params.Stage.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stage %q", *params.Stage)).
			WithDetails(map[string]any{"field": "stage"})
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}
	if err := s.requireMembership(ctx, params.MembershipID); err != nil {
		return nil, err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, ListFilter{
		MembershipID: params.MembershipID,
		Stage:        params.Stage,
		Cursor:       cursor,
		Limit:        pagination.LimitWithBuffer(params.Limit),
	})
	if err != nil {
		return nil, db.WrapStoreError(err, "list stage events")
	}

	result := &EventList{Events: make([]StageEventDTO, 0, limit)}
	if len(rows) > limit {
		last := rows[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			Seq:       last.Seq,
		})
		rows = rows[:limit]
	}
	for i := range rows {
		result.Events = append(result.Events, eventToDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) PipelineBreakdown(ctx context.Context, journalID uuid.UUID) (*Breakdown, error) {
	if journalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "journal id required")
	}
	ranks, err := s.repo.StageRanks(ctx, journalID)
	if err != nil {
		return nil, db.WrapStoreError(err, "load pipeline breakdown")
	}

	stages := enums.PipelineStages()
	counts := make([]int, len(stages)+1)
	for _, row := range ranks {
		if row.StageRank == nil || *row.StageRank < 1 || *row.StageRank > len(stages) {
			counts[0]++
			continue
		}
		counts[*row.StageRank]++
	}

	breakdown := &Breakdown{
		JournalID: journalID,
		Total:     len(ranks),
		Stages:    make([]StageCount, 0, len(counts)),
	}
	breakdown.Stages = append(breakdown.Stages, StageCount{Stage: NoStageBucket, Count: counts[0]})
	for i, stage := range stages {
		breakdown.Stages = append(breakdown.Stages, StageCount{Stage: stage.String(), Count: counts[i+1]})
	}
	return breakdown, nil
}

// StageActivity pivots the monthly per-stage counts into one row per month.
// Months without any events are omitted.
func (s *service) StageActivity(ctx context.Context, journalID uuid.UUID) (*StageActivity, error) {
	if journalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "journal id required")
	}
	rows, err := s.repo.MonthlyStageCounts(ctx, journalID)
	if err != nil {
		return nil, db.WrapStoreError(err, "load stage activity")
	}

	activity := &StageActivity{JournalID: journalID, Months: []MonthActivity{}}
	for _, row := range rows {
		stage, err := enums.ParsePipelineStage(row.Stage)
		if err != nil {
			continue
		}
		n := len(activity.Months)
		if n == 0 || activity.Months[n-1].Month != row.Month {
			activity.Months = append(activity.Months, emptyMonth(row.Month))
			n++
		}
		month := &activity.Months[n-1]
		month.Stages[stage] += row.Count
		month.Total += row.Count
	}
	return activity, nil
}

func emptyMonth(month string) MonthActivity {
	stages := make(map[enums.PipelineStage]int, len(enums.PipelineStages()))
	for _, stage := range enums.PipelineStages() {
		stages[stage] = 0
	}
	return MonthActivity{Month: month, Stages: stages}
}

func (s *service) requireMembership(ctx context.Context, membershipID uuid.UUID) error {
	if membershipID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "journal contact id required")
	}
	exists, err := s.memberships.Exists(ctx, membershipID)
	if err != nil {
		return db.WrapStoreError(err, "load journal contact")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "journal contact not found")
	}
	return nil
}

// currentStageOf picks the highest ordered stage that has events. Earlier
// stages without events do not hold it back.
func currentStageOf(rows []models.StageSummary) *enums.PipelineStage {
	var current *enums.PipelineStage
	for _, row := range rows {
		if row.EventCount == 0 || !row.Stage.IsValid() {
			continue
		}
		current = higherStage(current, row.Stage)
	}
	return current
}

func higherStage(current *enums.PipelineStage, candidate enums.PipelineStage) *enums.PipelineStage {
	if current != nil && current.Order() >= candidate.Order() {
		return current
	}
	stage := candidate
	return &stage
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func buildActor(userID *uuid.UUID) *outbox.ActorRef {
	if userID == nil || *userID == uuid.Nil {
		return nil
	}
	id := *userID
	return &outbox.ActorRef{UserID: &id}
}

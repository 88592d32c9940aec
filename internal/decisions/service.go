package decisions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

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

const (
	fieldAmount  = "amount"
	fieldCadence = "cadence"
	fieldStatus  = "status"
)

// numeric(10,2) holds at most eight integer digits.
var maxAmount = decimal.New(1, 8)

// Service orchestrates decision writes and their history.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*DecisionDTO, error)
	Update(ctx context.Context, input UpdateInput) (*DecisionDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*DecisionDTO, error)
	ListByJournal(ctx context.Context, journalID uuid.UUID) ([]DecisionDTO, error)
	ListHistory(ctx context.Context, decisionID uuid.UUID, page, pageSize int) (*HistoryPage, error)
	DecisionTrends(ctx context.Context, journalID uuid.UUID) (*DecisionTrends, error)
}

// CreateInput records the first decision for a journal contact. An empty
// status defaults to pending.
type CreateInput struct {
	MembershipID uuid.UUID
	Amount       decimal.Decimal
	Cadence      enums.DecisionCadence
	Status       enums.DecisionStatus
	ActorID      *uuid.UUID
}

// UpdateInput is a partial patch; nil fields are left alone.
type UpdateInput struct {
	DecisionID uuid.UUID
	Amount     *decimal.Decimal
	Cadence    *enums.DecisionCadence
	Status     *enums.DecisionStatus
	ActorID    *uuid.UUID
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

type writeRecorder interface {
	ObserveDecisionWrite(op, outcome string, duration time.Duration)
}

// ServiceParams wires the decision service.
type ServiceParams struct {
	Repo            Repository
	DB              txRunner
	Outbox          outboxPublisher
	Memberships     membershipChecker
	Logger          *logger.Logger
	Metrics         writeRecorder
	HistoryPageSize int
	HistoryMaxSize  int
	Now             func() time.Time
}

type service struct {
	repo        Repository
	db          txRunner
	outbox      outboxPublisher
	memberships membershipChecker
	logg        *logger.Logger
	metrics     writeRecorder
	pageSize    int
	maxPageSize int
	now         func() time.Time
}

// NewService builds the decision service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("decisions repository required")
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
		pageSize:    params.HistoryPageSize,
		maxPageSize: params.HistoryMaxSize,
		now:         now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*DecisionDTO, error) {
	started := time.Now()
	decision, err := s.create(ctx, input)
	s.metrics.ObserveDecisionWrite("create", outcomeFor(err), time.Since(started))
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithDecisionID(ctx, decision.ID.String())
	logCtx = s.logg.WithMembershipID(logCtx, decision.JournalContactID.String())
	s.logg.Info(logCtx, "decision.created")
	return ToDTO(decision), nil
}

func (s *service) create(ctx context.Context, input CreateInput) (*models.Decision, error) {
	if input.MembershipID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "journal contact id required")
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if !input.Cadence.IsValid() {
		return nil, invalidEnum(fieldCadence, string(input.Cadence))
	}
	status := input.Status
	if status == "" {
		status = enums.DecisionStatusPending
	}
	if !status.IsValid() {
		return nil, invalidEnum(fieldStatus, string(status))
	}

	exists, err := s.memberships.Exists(ctx, input.MembershipID)
	if err != nil {
		return nil, db.WrapStoreError(err, "load journal contact")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "journal contact not found")
	}

	now := s.now().UTC()
	decision := &models.Decision{
		ID:               uuid.New(),
		JournalContactID: input.MembershipID,
		Amount:           input.Amount,
		Cadence:          input.Cadence,
		Status:           status,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var insertErr error
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, decision); err != nil {
			insertErr = err
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDecisionCreated,
			AggregateType: enums.AggregateDecision,
			AggregateID:   decision.ID,
			Actor:         buildActor(input.ActorID),
			OccurredAt:    now,
			Data: payloads.DecisionCreatedEvent{
				DecisionID:        decision.ID,
				JournalContactID:  decision.JournalContactID,
				Amount:            decision.Amount.StringFixed(2),
				Cadence:           decision.Cadence,
				Status:            decision.Status,
				MonthlyEquivalent: MonthlyEquivalent(decision.Amount, decision.Cadence).StringFixed(2),
			},
		})
	})
	if err != nil {
		if insertErr != nil && db.IsUniqueViolation(insertErr, UniqueMembershipConstraint) {
			return nil, s.uniqueViolation(ctx, input.MembershipID, insertErr)
		}
		return nil, db.WrapStoreError(err, "create decision")
	}
	return decision, nil
}

// uniqueViolation maps a rejected insert to DUPLICATE_DECISION only when the
// journal contact really holds a decision. Translated driver errors do not say
// which unique index fired, and the aborted transaction is gone by now.
func (s *service) uniqueViolation(ctx context.Context, membershipID uuid.UUID, cause error) error {
	exists, err := s.repo.ExistsForMembership(ctx, membershipID)
	if err != nil {
		return db.WrapStoreError(err, "check existing decision")
	}
	if !exists {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, "decision could not be stored")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDuplicateDecision, cause, "a decision already exists for this contact").
		WithDetails(map[string]any{"journal_contact_id": membershipID.String()})
}

// Update applies the patch and records the replaced values in one
// transaction. A patch that changes nothing writes nothing: no history entry
// and updated_at stays put.
func (s *service) Update(ctx context.Context, input UpdateInput) (*DecisionDTO, error) {
	started := time.Now()
	decision, changed, err := s.update(ctx, input)
	outcome := outcomeFor(err)
	if err == nil && len(changed) == 0 {
		outcome = metrics.OutcomeNoop
	}
	s.metrics.ObserveDecisionWrite("update", outcome, time.Since(started))
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeConcurrencyConflict) {
			s.logg.Warn(s.logg.WithDecisionID(ctx, input.DecisionID.String()), "decision.update_conflict")
		}
		return nil, err
	}

	logCtx := s.logg.WithDecisionID(ctx, decision.ID.String())
	logCtx = s.logg.WithMembershipID(logCtx, decision.JournalContactID.String())
	if len(changed) == 0 {
		s.logg.Info(logCtx, "decision.update_noop")
	} else {
		s.logg.Info(s.logg.WithField(logCtx, "changed_fields", changedKeys(changed)), "decision.updated")
	}
	return ToDTO(decision), nil
}

func (s *service) update(ctx context.Context, input UpdateInput) (*models.Decision, map[string]string, error) {
	if input.DecisionID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "decision id required")
	}
	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, nil, err
		}
	}
	if input.Cadence != nil && !input.Cadence.IsValid() {
		return nil, nil, invalidEnum(fieldCadence, string(*input.Cadence))
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, nil, invalidEnum(fieldStatus, string(*input.Status))
	}

	var (
		decision *models.Decision
		changed  map[string]string
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByID(ctx, input.DecisionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "decision not found")
			}
			return db.WrapStoreError(err, "load decision")
		}

		changed = diffDecision(current, input)
		if len(changed) == 0 {
			decision = current
			return nil
		}

		now := s.now().UTC()
		entry := &models.DecisionHistory{
			ID:            uuid.New(),
			DecisionID:    current.ID,
			ChangedFields: datatypes.NewJSONType(changed),
			ChangedBy:     copyUUIDPointer(input.ActorID),
			CreatedAt:     now,
		}
		if err := repo.InsertHistory(ctx, entry); err != nil {
			return db.WrapStoreError(err, "insert decision history")
		}

		expectedVersion := current.Version
		applyPatch(current, input)
		current.UpdatedAt = now
		updated, err := repo.UpdateVersioned(ctx, current, expectedVersion)
		if err != nil {
			return db.WrapStoreError(err, "update decision")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "decision was modified concurrently").
				WithDetails(map[string]any{
					"decision_id": current.ID.String(),
					"version":     expectedVersion,
				})
		}
		current.Version = expectedVersion + 1
		decision = current

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDecisionUpdated,
			AggregateType: enums.AggregateDecision,
			AggregateID:   current.ID,
			Actor:         buildActor(input.ActorID),
			Version:       current.Version,
			OccurredAt:    now,
			Data: payloads.DecisionUpdatedEvent{
				DecisionID:       current.ID,
				JournalContactID: current.JournalContactID,
				HistoryID:        entry.ID,
				ChangedFields:    changed,
				Amount:           current.Amount.StringFixed(2),
				Cadence:          current.Cadence,
				Status:           current.Status,
				Version:          current.Version,
			},
		})
	})
	if err != nil {
		return nil, nil, db.WrapStoreError(err, "update decision")
	}
	return decision, changed, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*DecisionDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision id required")
	}
	decision, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "decision not found")
		}
		return nil, db.WrapStoreError(err, "load decision")
	}
	return ToDTO(decision), nil
}

func (s *service) ListByJournal(ctx context.Context, journalID uuid.UUID) ([]DecisionDTO, error) {
	if journalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "journal id required")
	}
	rows, err := s.repo.ListByJournal(ctx, journalID)
	if err != nil {
		return nil, db.WrapStoreError(err, "list decisions")
	}
	out := make([]DecisionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *ToDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) DecisionTrends(ctx context.Context, journalID uuid.UUID) (*DecisionTrends, error) {
	if journalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "journal id required")
	}
	rows, err := s.repo.MonthlyCounts(ctx, journalID)
	if err != nil {
		return nil, db.WrapStoreError(err, "load decision trends")
	}
	trends := &DecisionTrends{JournalID: journalID, Months: make([]MonthlyCount, 0, len(rows))}
	for _, row := range rows {
		trends.Total += row.Count
		trends.Months = append(trends.Months, row)
	}
	return trends, nil
}

func (s *service) ListHistory(ctx context.Context, decisionID uuid.UUID, page, pageSize int) (*HistoryPage, error) {
	if decisionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision id required")
	}
	if _, err := s.repo.FindByID(ctx, decisionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "decision not found")
		}
		return nil, db.WrapStoreError(err, "load decision")
	}

	req := pagination.NormalizePage(page, pageSize, s.pageSize, s.maxPageSize)
	total, err := s.repo.CountHistory(ctx, decisionID)
	if err != nil {
		return nil, db.WrapStoreError(err, "count decision history")
	}
	rows, err := s.repo.ListHistory(ctx, decisionID, req.Offset(), req.Size)
	if err != nil {
		return nil, db.WrapStoreError(err, "list decision history")
	}

	entries := make([]HistoryEntryDTO, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, historyEntryToDTO(row))
	}
	totalPages := pagination.TotalPages(total, req.Size)
	return &HistoryPage{
		Entries:    entries,
		Page:       req.Number,
		PageSize:   req.Size,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Number < totalPages,
	}, nil
}

// diffDecision maps every field the patch actually changes to its previous
// value. Amounts compare as decimals so 100 and 100.00 are equal.
func diffDecision(current *models.Decision, input UpdateInput) map[string]string {
	changed := make(map[string]string)
	if input.Amount != nil && !input.Amount.Equal(current.Amount) {
		changed[fieldAmount] = current.Amount.StringFixed(2)
	}
	if input.Cadence != nil && *input.Cadence != current.Cadence {
		changed[fieldCadence] = current.Cadence.String()
	}
	if input.Status != nil && *input.Status != current.Status {
		changed[fieldStatus] = current.Status.String()
	}
	return changed
}

func applyPatch(decision *models.Decision, input UpdateInput) {
	if input.Amount != nil {
		decision.Amount = *input.Amount
	}
	if input.Cadence != nil {
		decision.Cadence = *input.Cadence
	}
	if input.Status != nil {
		decision.Status = *input.Status
	}
}

func validateAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero").
			WithDetails(map[string]any{"field": fieldAmount})
	case !amount.Equal(amount.Round(2)):
		return pkgerrors.New(pkgerrors.CodeValidation, "amount supports at most two decimal places").
			WithDetails(map[string]any{"field": fieldAmount})
	case amount.GreaterThanOrEqual(maxAmount):
		return pkgerrors.New(pkgerrors.CodeValidation, "amount is too large").
			WithDetails(map[string]any{"field": fieldAmount})
	}
	return nil
}

func invalidEnum(field, value string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s %q", field, value)).
		WithDetails(map[string]any{"field": field})
}

func changedKeys(changed map[string]string) []string {
	keys := make([]string, 0, len(changed))
	for _, field := range []string{fieldAmount, fieldCadence, fieldStatus} {
		if _, ok := changed[field]; ok {
			keys = append(keys, field)
		}
	}
	return keys
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeValidation:
		return metrics.OutcomeInvalid
	case pkgerrors.CodeNotFound:
		return metrics.OutcomeNotFound
	case pkgerrors.CodeDuplicateDecision:
		return metrics.OutcomeDuplicate
	case pkgerrors.CodeConcurrencyConflict:
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

func buildActor(userID *uuid.UUID) *outbox.ActorRef {
	if userID == nil || *userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: copyUUIDPointer(userID)}
}

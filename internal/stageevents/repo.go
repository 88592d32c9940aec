package stageevents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/donorjournal-backend/internal/repo"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
	"github.com/angelmondragon/donorjournal-backend/pkg/pagination"
)

// Repository persists stage events and their per-stage projection.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, event *models.StageEvent) error
	UpsertSummary(ctx context.Context, summary *models.StageSummary) error
	ListSummaries(ctx context.Context, membershipID uuid.UUID) ([]models.StageSummary, error)
	List(ctx context.Context, filter ListFilter) ([]models.StageEvent, error)
	StageRanks(ctx context.Context, journalID uuid.UUID) ([]MembershipRank, error)
	MonthlyStageCounts(ctx context.Context, journalID uuid.UUID) ([]MonthlyStageCount, error)
}

// ListFilter selects one newest-first page of a membership's events.
type ListFilter struct {
	MembershipID uuid.UUID
	Stage        *enums.PipelineStage
	Cursor       *pagination.Cursor
	Limit        int
}

// MembershipRank is the 1-based order of a membership's highest stage with
// events. A nil rank means the membership has no events.
type MembershipRank struct {
	JournalContactID uuid.UUID `gorm:"column:journal_contact_id"`
	StageRank        *int      `gorm:"column:stage_rank"`
}

// MonthlyStageCount is the number of events recorded for one stage in one
// UTC month (YYYY-MM).
type MonthlyStageCount struct {
	Month string `gorm:"column:month"`
	Stage string `gorm:"column:stage"`
	Count int    `gorm:"column:event_count"`
}

type repository struct {
	repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Insert(ctx context.Context, event *models.StageEvent) error {
	return r.DB(ctx).Create(event).Error
}

// UpsertSummary adds one event to the (membership, stage) projection row,
// creating it on first use and overwriting the last_* columns.
func (r *repository) UpsertSummary(ctx context.Context, summary *models.StageSummary) error {
	updates := clause.AssignmentColumns([]string{
		"last_event_id",
		"last_event_at",
		"last_event_type",
		"last_event_notes",
	})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "event_count"},
		Value:  gorm.Expr("journal_stage_summaries.event_count + 1"),
	})
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "journal_contact_id"}, {Name: "stage"}},
			DoUpdates: updates,
		}).
		Create(summary).Error
}

func (r *repository) ListSummaries(ctx context.Context, membershipID uuid.UUID) ([]models.StageSummary, error) {
	var rows []models.StageSummary
	err := r.DB(ctx).
		Where("journal_contact_id = ?", membershipID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.StageEvent, error) {
	query := r.DB(ctx).
		Where("journal_contact_id = ?", filter.MembershipID)
	if filter.Stage != nil {
		query = query.Where("stage = ?", *filter.Stage)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND seq < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.Seq,
		)
	}

	var rows []models.StageEvent
	err := query.
		Order("created_at DESC").
		Order("seq DESC").
		Limit(filter.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// StageRanks resolves every membership of a journal to the rank of its
// highest stage in a single grouped query.
func (r *repository) StageRanks(ctx context.Context, journalID uuid.UUID) ([]MembershipRank, error) {
	query := fmt.Sprintf(`
SELECT jc.id AS journal_contact_id, MAX(%s) AS stage_rank
FROM journal_contacts jc
LEFT JOIN journal_stage_summaries s
  ON s.journal_contact_id = jc.id AND s.event_count > 0
WHERE jc.journal_id = ?
GROUP BY jc.id`, stageRankExpr("s.stage"))

	var rows []MembershipRank
	if err := r.DB(ctx).Raw(query, journalID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MonthlyStageCounts groups a journal's stage events by month and stage,
// oldest month first.
func (r *repository) MonthlyStageCounts(ctx context.Context, journalID uuid.UUID) ([]MonthlyStageCount, error) {
	query := fmt.Sprintf(`
SELECT %s AS month, e.stage AS stage, COUNT(*) AS event_count
FROM journal_stage_events e
JOIN journal_contacts jc ON jc.id = e.journal_contact_id
WHERE jc.journal_id = ?
GROUP BY 1, 2
ORDER BY 1, 2`, r.MonthBucket("e.created_at"))

	var rows []MonthlyStageCount
	if err := r.DB(ctx).Raw(query, journalID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func stageRankExpr(column string) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(column)
	for _, stage := range enums.PipelineStages() {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", stage, stage.Order()+1)
	}
	b.WriteString(" END")
	return b.String()
}

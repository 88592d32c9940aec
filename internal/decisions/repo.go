package decisions

import (
	"context"
	"fmt"

	"github.com/angelmondragon/donorjournal-backend/internal/repo"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UniqueMembershipConstraint is the storage-level guard for one decision per
// journal contact.
const UniqueMembershipConstraint = "ux_journal_decisions_journal_contact"

// Repository persists decisions and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, decision *models.Decision) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Decision, error)
	ExistsForMembership(ctx context.Context, membershipID uuid.UUID) (bool, error)
	UpdateVersioned(ctx context.Context, decision *models.Decision, expectedVersion int) (bool, error)
	InsertHistory(ctx context.Context, entry *models.DecisionHistory) error
	ListHistory(ctx context.Context, decisionID uuid.UUID, offset, limit int) ([]models.DecisionHistory, error)
	CountHistory(ctx context.Context, decisionID uuid.UUID) (int64, error)
	ListByJournal(ctx context.Context, journalID uuid.UUID) ([]models.Decision, error)
	MonthlyCounts(ctx context.Context, journalID uuid.UUID) ([]MonthlyCount, error)
}

// MonthlyCount is the number of decisions created in one UTC month (YYYY-MM).
type MonthlyCount struct {
	Month string `gorm:"column:month" json:"month"`
	Count int    `gorm:"column:decision_count" json:"count"`
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

// Create inserts the decision. A second decision for the same journal contact
// fails with the raw unique violation.
func (r *repository) Create(ctx context.Context, decision *models.Decision) error {
	return r.DB(ctx).Create(decision).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Decision, error) {
	var decision models.Decision
	if err := r.DB(ctx).Where("id = ?", id).First(&decision).Error; err != nil {
		return nil, err
	}
	return &decision, nil
}

func (r *repository) ExistsForMembership(ctx context.Context, membershipID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Decision{}).
		Where("journal_contact_id = ?", membershipID).
		Count(&count).Error
	return count > 0, err
}

// UpdateVersioned writes the mutable fields only when the stored version still
// equals expectedVersion, bumping it by one. It reports false when another
// writer got there first.
func (r *repository) UpdateVersioned(ctx context.Context, decision *models.Decision, expectedVersion int) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Decision{}).
		Where("id = ? AND version = ?", decision.ID, expectedVersion).
		Updates(map[string]any{
			"amount":     decision.Amount,
			"cadence":    decision.Cadence,
			"status":     decision.Status,
			"version":    expectedVersion + 1,
			"updated_at": decision.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) InsertHistory(ctx context.Context, entry *models.DecisionHistory) error {
	return r.DB(ctx).Create(entry).Error
}

// ListHistory returns entries newest first; seq breaks timestamp ties.
func (r *repository) ListHistory(ctx context.Context, decisionID uuid.UUID, offset, limit int) ([]models.DecisionHistory, error) {
	var rows []models.DecisionHistory
	err := r.DB(ctx).
		Where("decision_id = ?", decisionID).
		Order("created_at DESC").
		Order("seq DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountHistory(ctx context.Context, decisionID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.DecisionHistory{}).
		Where("decision_id = ?", decisionID).
		Count(&count).Error
	return count, err
}

func (r *repository) ListByJournal(ctx context.Context, journalID uuid.UUID) ([]models.Decision, error) {
	var rows []models.Decision
	err := r.DB(ctx).
		Select("journal_decisions.*").
		Joins("JOIN journal_contacts ON journal_contacts.id = journal_decisions.journal_contact_id").
		Where("journal_contacts.journal_id = ?", journalID).
		Order("journal_decisions.created_at").
		Order("journal_decisions.id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MonthlyCounts groups a journal's decisions by creation month, oldest first.
func (r *repository) MonthlyCounts(ctx context.Context, journalID uuid.UUID) ([]MonthlyCount, error) {
	query := fmt.Sprintf(`
SELECT %s AS month, COUNT(*) AS decision_count
FROM journal_decisions d
JOIN journal_contacts jc ON jc.id = d.journal_contact_id
WHERE jc.journal_id = ?
GROUP BY 1
ORDER BY 1`, r.MonthBucket("d.created_at"))

	var rows []MonthlyCount
	if err := r.DB(ctx).Raw(query, journalID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

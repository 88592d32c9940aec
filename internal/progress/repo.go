package progress

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/donorjournal-backend/internal/repo"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

// Pledge is the slice of a decision the rollup needs.
type Pledge struct {
	Amount  decimal.Decimal       `gorm:"column:amount"`
	Cadence enums.DecisionCadence `gorm:"column:cadence"`
}

// Repository reads decisions for the journal rollup.
type Repository struct {
	repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListCountedPledges returns amount and cadence of every decision in the
// journal that counts toward its goal, in one query.
func (r *Repository) ListCountedPledges(ctx context.Context, journalID uuid.UUID) ([]Pledge, error) {
	var rows []Pledge
	err := r.DB(ctx).
		Table("journal_decisions AS d").
		Select("d.amount, d.cadence").
		Joins("JOIN journal_contacts jc ON jc.id = d.journal_contact_id").
		Where("jc.journal_id = ? AND d.status <> ?", journalID, enums.DecisionStatusDeclined).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

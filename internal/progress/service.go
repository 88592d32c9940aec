package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/donorjournal-backend/internal/decisions"
	"github.com/angelmondragon/donorjournal-backend/pkg/db"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
)

// Progress is a journal's rollup. Declined decisions are excluded from every
// figure.
type Progress struct {
	JournalID              uuid.UUID
	GoalAmount             decimal.Decimal
	TotalPledged           decimal.Decimal
	TotalMonthlyEquivalent decimal.Decimal
	DecisionCount          int
	PercentOfGoal          decimal.Decimal
}

// ProgressDTO renders money with cents and the ratio with four places.
type ProgressDTO struct {
	JournalID              uuid.UUID `json:"journal_id"`
	GoalAmount             string    `json:"goal_amount"`
	TotalPledged           string    `json:"total_pledged"`
	TotalMonthlyEquivalent string    `json:"total_monthly_equivalent"`
	DecisionCount          int       `json:"decision_count"`
	PercentOfGoal          string    `json:"percent_of_goal"`
}

// ToDTO converts the rollup to its transport shape.
func (p Progress) ToDTO() ProgressDTO {
	return ProgressDTO{
		JournalID:              p.JournalID,
		GoalAmount:             p.GoalAmount.StringFixed(2),
		TotalPledged:           p.TotalPledged.StringFixed(2),
		TotalMonthlyEquivalent: p.TotalMonthlyEquivalent.StringFixed(2),
		DecisionCount:          p.DecisionCount,
		PercentOfGoal:          p.PercentOfGoal.StringFixed(4),
	}
}

// Service computes journal progress.
type Service interface {
	Progress(ctx context.Context, journalID uuid.UUID, goal decimal.Decimal) (*Progress, error)
	ProgressForJournal(ctx context.Context, journalID uuid.UUID) (*Progress, error)
}

type pledgeReader interface {
	ListCountedPledges(ctx context.Context, journalID uuid.UUID) ([]Pledge, error)
}

type journalReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Journal, error)
}

type service struct {
	pledges  pledgeReader
	journals journalReader
}

// NewService builds the progress service.
func NewService(pledges pledgeReader, journals journalReader) (Service, error) {
	if pledges == nil {
		return nil, fmt.Errorf("pledge reader required")
	}
	if journals == nil {
		return nil, fmt.Errorf("journal reader required")
	}
	return &service{pledges: pledges, journals: journals}, nil
}

func (s *service) Progress(ctx context.Context, journalID uuid.UUID, goal decimal.Decimal) (*Progress, error) {
	if journalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "journal id required")
	}
	pledges, err := s.pledges.ListCountedPledges(ctx, journalID)
	if err != nil {
		return nil, db.WrapStoreError(err, "load journal pledges")
	}
	result := Summarize(pledges, goal)
	result.JournalID = journalID
	return &result, nil
}

func (s *service) ProgressForJournal(ctx context.Context, journalID uuid.UUID) (*Progress, error) {
	if journalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "journal id required")
	}
	journal, err := s.journals.Get(ctx, journalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "journal not found")
		}
		return nil, db.WrapStoreError(err, "load journal")
	}
	return s.Progress(ctx, journalID, journal.GoalAmount)
}

// Summarize folds the pledges in a single pass. The percentage is capped at
// 1 and is zero for a non-positive goal.
func Summarize(pledges []Pledge, goal decimal.Decimal) Progress {
	total := decimal.Zero
	monthly := decimal.Zero
	for _, pledge := range pledges {
		total = total.Add(pledge.Amount)
		monthly = monthly.Add(decisions.MonthlyEquivalent(pledge.Amount, pledge.Cadence))
	}

	percent := decimal.Zero
	if goal.IsPositive() {
		percent = decimal.Min(total.DivRound(goal, 4), decimal.NewFromInt(1))
	}
	return Progress{
		GoalAmount:             goal,
		TotalPledged:           total,
		TotalMonthlyEquivalent: monthly,
		DecisionCount:          len(pledges),
		PercentOfGoal:          percent,
	}
}

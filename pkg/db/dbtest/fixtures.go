package dbtest

import (
	"testing"
	"time"

	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixtureTime = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

// SeedJournal inserts a journal with the given goal amount.
func SeedJournal(t testing.TB, conn *gorm.DB, goal string) models.Journal {
	t.Helper()
	journal := models.Journal{
		ID:         uuid.New(),
		OwnerID:    uuid.New(),
		Name:       "Spring support raising",
		GoalAmount: decimal.RequireFromString(goal),
		CreatedAt:  fixtureTime,
		UpdatedAt:  fixtureTime,
	}
	require.NoError(t, conn.Create(&journal).Error)
	return journal
}

// SeedMembership adds a fresh contact to the journal.
func SeedMembership(t testing.TB, conn *gorm.DB, journalID uuid.UUID) models.JournalContact {
	t.Helper()
	membership := models.JournalContact{
		ID:        uuid.New(),
		JournalID: journalID,
		ContactID: uuid.New(),
		CreatedAt: fixtureTime,
		UpdatedAt: fixtureTime,
	}
	require.NoError(t, conn.Create(&membership).Error)
	return membership
}

package journals

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/donorjournal-backend/pkg/db/dbtest"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRepositoryGet(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	seeded := dbtest.SeedJournal(t, conn, "10000.00")

	journal, err := repo.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.True(t, journal.GoalAmount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, seeded.Name, journal.Name)

	_, err = repo.Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

package dbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/donorjournal-backend/pkg/db"
)

func TestOpenTranslatesDuplicateKeys(t *testing.T) {
	conn := Open(t)
	journal := SeedJournal(t, conn, "500.00")

	again := journal
	err := conn.Create(&again).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

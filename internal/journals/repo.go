package journals

import (
	"context"

	"github.com/angelmondragon/donorjournal-backend/internal/repo"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads journals. Journal CRUD lives outside this service; the
// decision core only needs the goal amount.
type Repository struct {
	repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Get loads a journal by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Journal, error) {
	var journal models.Journal
	if err := r.DB(ctx).Where("id = ?", id).First(&journal).Error; err != nil {
		return nil, err
	}
	return &journal, nil
}

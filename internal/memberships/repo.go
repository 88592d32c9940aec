package memberships

import (
	"context"
	"errors"

	"github.com/angelmondragon/donorjournal-backend/internal/repo"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads journal memberships. Creating and removing memberships
// belongs to the journal/contact CRUD surface, not this service.
type Repository struct {
	repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{Base: repo.NewBase(tx)}
}

// Get loads a membership by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.JournalContact, error) {
	var membership models.JournalContact
	if err := r.DB(ctx).Where("id = ?", id).First(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

// Exists reports whether the membership is present.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.JournalContact{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// JournalIDFor returns the journal a membership belongs to.
func (r *Repository) JournalIDFor(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	membership, err := r.Get(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	return membership.JournalID, nil
}

// ListByJournal returns the journal's memberships in creation order.
func (r *Repository) ListByJournal(ctx context.Context, journalID uuid.UUID) ([]models.JournalContact, error) {
	var rows []models.JournalContact
	err := r.DB(ctx).
		Where("journal_id = ?", journalID).
		Order("created_at").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IsNotFound reports whether err is gorm's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

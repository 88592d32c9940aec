package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
)

// MembershipDTO is the transport shape for a journal contact.
type MembershipDTO struct {
	ID        uuid.UUID `json:"id"`
	JournalID uuid.UUID `json:"journal_id"`
	ContactID uuid.UUID `json:"contact_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.JournalContact) *MembershipDTO {
	if m == nil {
		return nil
	}
	return &MembershipDTO{
		ID:        m.ID,
		JournalID: m.JournalID,
		ContactID: m.ContactID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ToDTOs converts a slice of memberships.
func ToDTOs(rows []models.JournalContact) []MembershipDTO {
	out := make([]MembershipDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *ToDTO(&rows[i]))
	}
	return out
}

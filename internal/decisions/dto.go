package decisions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

// DecisionDTO is the transport shape for a decision. Money is rendered with
// two decimal places.
type DecisionDTO struct {
	ID                uuid.UUID             `json:"id"`
	MembershipID      uuid.UUID             `json:"journal_contact_id"`
	Amount            string                `json:"amount"`
	Cadence           enums.DecisionCadence `json:"cadence"`
	Status            enums.DecisionStatus  `json:"status"`
	MonthlyEquivalent string                `json:"monthly_equivalent"`
	Version           int                   `json:"version"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// HistoryEntryDTO holds the values a single update replaced.
type HistoryEntryDTO struct {
	ID            uuid.UUID         `json:"id"`
	DecisionID    uuid.UUID         `json:"decision_id"`
	ChangedFields map[string]string `json:"changed_fields"`
	ChangedBy     *uuid.UUID        `json:"changed_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// HistoryPage is one newest-first page of decision history.
type HistoryPage struct {
	Entries    []HistoryEntryDTO `json:"entries"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Total      int64             `json:"total"`
	TotalPages int               `json:"total_pages"`
	HasNext    bool              `json:"has_next"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.Decision) *DecisionDTO {
	if m == nil {
		return nil
	}
	return &DecisionDTO{
		ID:                m.ID,
		MembershipID:      m.JournalContactID,
		Amount:            m.Amount.StringFixed(2),
		Cadence:           m.Cadence,
		Status:            m.Status,
		MonthlyEquivalent: MonthlyEquivalent(m.Amount, m.Cadence).StringFixed(2),
		Version:           m.Version,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func historyEntryToDTO(m models.DecisionHistory) HistoryEntryDTO {
	fields := m.ChangedFields.Data()
	if fields == nil {
		fields = map[string]string{}
	}
	return HistoryEntryDTO{
		ID:            m.ID,
		DecisionID:    m.DecisionID,
		ChangedFields: fields,
		ChangedBy:     copyUUIDPointer(m.ChangedBy),
		CreatedAt:     m.CreatedAt,
	}
}

func copyUUIDPointer(src *uuid.UUID) *uuid.UUID {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}

// DecisionTrends counts a journal's decisions by the month they were first
// recorded. Later updates do not move a decision between months.
type DecisionTrends struct {
	JournalID uuid.UUID      `json:"journal_id"`
	Total     int            `json:"total"`
	Months    []MonthlyCount `json:"months"`
}

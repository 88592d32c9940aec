package enums

import "slices"

// DecisionStatus maps to the decision_status enum in Postgres.
type DecisionStatus string

const (
	DecisionStatusPending  DecisionStatus = "pending"
	DecisionStatusActive   DecisionStatus = "active"
	DecisionStatusPaused   DecisionStatus = "paused"
	DecisionStatusDeclined DecisionStatus = "declined"
)

var validDecisionStatuses = []DecisionStatus{
	DecisionStatusPending,
	DecisionStatusActive,
	DecisionStatusPaused,
	DecisionStatusDeclined,
}

// String implements fmt.Stringer.
func (s DecisionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known DecisionStatus.
func (s DecisionStatus) IsValid() bool {
	return slices.Contains(validDecisionStatuses, s)
}

// CountsTowardGoal reports whether a decision in this status contributes to journal progress.
func (s DecisionStatus) CountsTowardGoal() bool {
	return s.IsValid() && s != DecisionStatusDeclined
}

// UnmarshalText rejects unknown statuses while decoding.
func (s *DecisionStatus) UnmarshalText(text []byte) error {
	return decodeText(s, validDecisionStatuses, text, "decision status")
}

// ParseDecisionStatus converts raw input into a DecisionStatus.
func ParseDecisionStatus(value string) (DecisionStatus, error) {
	return parse(validDecisionStatuses, value, "decision status")
}

package enums

import "slices"

// DecisionCadence maps to the decision_cadence enum in Postgres.
type DecisionCadence string

const (
	CadenceOneTime   DecisionCadence = "one_time"
	CadenceMonthly   DecisionCadence = "monthly"
	CadenceQuarterly DecisionCadence = "quarterly"
	CadenceAnnual    DecisionCadence = "annual"
)

var validDecisionCadences = []DecisionCadence{
	CadenceOneTime,
	CadenceMonthly,
	CadenceQuarterly,
	CadenceAnnual,
}

// String implements fmt.Stringer.
func (c DecisionCadence) String() string {
	return string(c)
}

// IsValid reports whether the value matches a known DecisionCadence.
func (c DecisionCadence) IsValid() bool {
	return slices.Contains(validDecisionCadences, c)
}

// UnmarshalText rejects unknown cadences while decoding.
func (c *DecisionCadence) UnmarshalText(text []byte) error {
	return decodeText(c, validDecisionCadences, text, "decision cadence")
}

// ParseDecisionCadence converts raw input into a DecisionCadence.
func ParseDecisionCadence(value string) (DecisionCadence, error) {
	return parse(validDecisionCadences, value, "decision cadence")
}

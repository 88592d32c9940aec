package enums

// TransitionKind classifies a stage move relative to the current stage.
type TransitionKind string

const (
	TransitionSequential TransitionKind = "sequential"
	TransitionRevisiting TransitionKind = "revisiting"
	TransitionSkipping   TransitionKind = "skipping"
)

// String implements fmt.Stringer.
func (k TransitionKind) String() string {
	return string(k)
}

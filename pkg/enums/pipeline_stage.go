package enums

import "slices"

// PipelineStage maps to the pipeline_stage enum in Postgres. Declaration order
// is pipeline order.
type PipelineStage string

const (
	StageContact   PipelineStage = "contact"
	StageMeet      PipelineStage = "meet"
	StageClose     PipelineStage = "close"
	StageDecision  PipelineStage = "decision"
	StageThank     PipelineStage = "thank"
	StageNextSteps PipelineStage = "next_steps"
)

var orderedPipelineStages = []PipelineStage{
	StageContact,
	StageMeet,
	StageClose,
	StageDecision,
	StageThank,
	StageNextSteps,
}

// PipelineStages returns every stage in pipeline order.
func PipelineStages() []PipelineStage {
	return slices.Clone(orderedPipelineStages)
}

// String implements fmt.Stringer.
func (s PipelineStage) String() string {
	return string(s)
}

// Order returns the zero-based pipeline position, or -1 for unknown stages.
func (s PipelineStage) Order() int {
	return slices.Index(orderedPipelineStages, s)
}

// IsValid reports whether the value matches a known PipelineStage.
func (s PipelineStage) IsValid() bool {
	return s.Order() >= 0
}

// UnmarshalText rejects unknown stages while decoding.
func (s *PipelineStage) UnmarshalText(text []byte) error {
	return decodeText(s, orderedPipelineStages, text, "pipeline stage")
}

// ParsePipelineStage converts raw input into a PipelineStage.
func ParsePipelineStage(value string) (PipelineStage, error) {
	return parse(orderedPipelineStages, value, "pipeline stage")
}

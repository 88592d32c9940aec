package pipeline

import (
	"fmt"

	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

// Transition is advisory. Callers surface it as a warning and never reject
// the move.
type Transition struct {
	From          *enums.PipelineStage  `json:"from_stage"`
	To            enums.PipelineStage   `json:"to_stage"`
	Kind          enums.TransitionKind  `json:"kind"`
	SkippedStages []enums.PipelineStage `json:"skipped_stages"`
}

// IsWarning reports whether the UI should flag the move.
func (t Transition) IsWarning() bool {
	return t.Kind != enums.TransitionSequential
}

// ClassifyTransition compares a target stage with the current stage.
//
// A nil from, the immediately following stage, or the current stage itself is
// sequential. Any earlier stage is revisiting. Jumping further ahead is
// skipping, with every stage strictly between the two listed in order.
func ClassifyTransition(from *enums.PipelineStage, to enums.PipelineStage) (Transition, error) {
	if !to.IsValid() {
		return Transition{}, fmt.Errorf("invalid target stage %q", to)
	}
	result := Transition{
		To:            to,
		Kind:          enums.TransitionSequential,
		SkippedStages: []enums.PipelineStage{},
	}
	if from == nil {
		return result, nil
	}
	if !from.IsValid() {
		return Transition{}, fmt.Errorf("invalid current stage %q", *from)
	}

	current := *from
	result.From = &current

	fromIdx, toIdx := current.Order(), to.Order()
	switch {
	case toIdx < fromIdx:
		result.Kind = enums.TransitionRevisiting
	case toIdx-fromIdx > 1:
		result.Kind = enums.TransitionSkipping
		stages := enums.PipelineStages()
		result.SkippedStages = append(result.SkippedStages, stages[fromIdx+1:toIdx]...)
	}
	return result, nil
}

// Package wizard holds the state of one bulk import session and the pure
// reducer that moves it between steps.
package wizard

import "doacoes/internal"

type Step string

const (
	StepUpload       Step = "upload"
	StepReviewItems  Step = "review-items"
	StepReviewPhotos Step = "review-photos"
	StepConfirm      Step = "confirm"
	StepSummary      Step = "summary"
)

var stepOrder = []Step{StepUpload, StepReviewItems, StepReviewPhotos, StepConfirm, StepSummary}

// Position is the step's place in the linear flow, or -1 if unknown.
func (s Step) Position() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

func (s Step) Valid() bool {
	return s.Position() >= 0
}

type State struct {
	Step            Step                    `json:"step"`
	Items           []internal.ImportItem   `json:"items"`
	Results         []internal.ImportResult `json:"results"`
	IsProcessing    bool                    `json:"isProcessing"`
	ProcessingIndex int                     `json:"processingIndex"`
}

func InitialState() State {
	return State{
		Step:            StepUpload,
		Items:           []internal.ImportItem{},
		Results:         []internal.ImportResult{},
		IsProcessing:    false,
		ProcessingIndex: 0,
	}
}

// Included returns the indexes of items not excluded, in order.
func (s State) Included() []int {
	out := make([]int, 0, len(s.Items))
	for i, item := range s.Items {
		if !item.IsExcluded {
			out = append(out, i)
		}
	}
	return out
}

func (s State) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

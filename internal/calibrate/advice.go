package calibrate

import (
	"fmt"
	"math"

	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/util"
)

// Batch confidence shrinks as the set grows; a single task keeps its own
// confidence untouched.
const (
	batchPenaltyPerTask = 0.02
	batchPenaltyFloor   = 0.7
)

// TotalTime predicts the combined duration of a set of tasks: estimates and
// ranges sum, confidences average, and a set-size penalty discounts the
// averaged confidence because long batches compound individual errors.
func (c *Calibrator) TotalTime(tasks []*Task, m *model.UserModel) (*BatchPrediction, error) {
	if len(tasks) == 0 {
		return &BatchPrediction{}, nil
	}

	now := c.nowFn()
	batch := &BatchPrediction{}
	var confidenceSum float64

	for _, task := range tasks {
		p, err := c.estimateAt(task, m, now)
		if err != nil {
			return nil, err
		}
		batch.TotalMinutes += p.EstimatedMinutes
		batch.Range.Low += p.Range.Low
		batch.Range.High += p.Range.High
		confidenceSum += p.Confidence
	}

	penalty := math.Max(batchPenaltyFloor, 1-float64(len(tasks)-1)*batchPenaltyPerTask)
	batch.Confidence = util.Clamp(confidenceSum/float64(len(tasks))*penalty, confidenceFloor, confidenceCeil)
	return batch, nil
}

// SuggestBetterEstimate compares the task's own estimate against the
// calibrated one and phrases the gap for the user. Tasks without an
// estimate of their own get no advice.
func (c *Calibrator) SuggestBetterEstimate(task *Task, m *model.UserModel) (*EstimateAdvice, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}
	if task.EstimatedMinutes <= 0 {
		return nil, fmt.Errorf("task has no estimate to improve")
	}

	p, err := c.Estimate(task, m)
	if err != nil {
		return nil, err
	}

	diff := (float64(p.EstimatedMinutes) - task.EstimatedMinutes) / task.EstimatedMinutes

	var reason string
	switch {
	case diff > 0.5:
		reason = fmt.Sprintf("Similar tasks have taken much longer than this estimate. Plan for about %d minutes.", p.EstimatedMinutes)
	case diff > 0.3:
		reason = fmt.Sprintf("This kind of task tends to run a bit over. Around %d minutes is more realistic.", p.EstimatedMinutes)
	case diff < -0.5:
		reason = fmt.Sprintf("You usually finish this kind of task much faster. %d minutes should be plenty.", p.EstimatedMinutes)
	case diff < -0.3:
		reason = fmt.Sprintf("This estimate looks generous; about %d minutes is typical for you.", p.EstimatedMinutes)
	default:
		reason = "Your estimate looks about right."
	}

	return &EstimateAdvice{
		SuggestedMinutes: p.EstimatedMinutes,
		CurrentMinutes:   task.EstimatedMinutes,
		Reason:           reason,
		Confidence:       p.Confidence,
	}, nil
}

package calibrate

import "fmt"

// Task is the candidate a caller wants a calibrated estimate for.
// Only structurally invalid tasks are rejected; missing statistics never
// cause an error, they fall back to neutral behavior.
type Task struct {
	Type             string   `json:"type,omitempty"`
	Size             string   `json:"size,omitempty"`       // small, medium, large
	Complexity       string   `json:"complexity,omitempty"` // simple, moderate, complex
	EstimatedMinutes float64  `json:"estimated_minutes,omitempty"`
	Title            string   `json:"title,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	ProjectID        string   `json:"project_id,omitempty"`
}

// Validate rejects malformed tasks before any model read.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	switch t.Size {
	case "", "small", "medium", "large":
	default:
		return fmt.Errorf("invalid task size %q (want small, medium or large)", t.Size)
	}
	switch t.Complexity {
	case "", "simple", "moderate", "complex":
	default:
		return fmt.Errorf("invalid task complexity %q (want simple, moderate or complex)", t.Complexity)
	}
	if t.EstimatedMinutes < 0 {
		return fmt.Errorf("estimated_minutes cannot be negative")
	}
	return nil
}

// TimePrediction is the calibrated output for one task. It is a computed
// value object, never persisted.
type TimePrediction struct {
	EstimatedMinutes int     `json:"estimated_minutes"`
	Confidence       float64 `json:"confidence"` // 0.1 to 0.95
	Range            Range   `json:"range"`
	// Factors lists human-readable reasons for every factor that deviated
	// from neutral, for transparency in the UI.
	Factors []string `json:"factors,omitempty"`
}

// Range bounds the plausible duration around the estimate.
type Range struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// BatchPrediction aggregates predictions for a set of tasks.
type BatchPrediction struct {
	TotalMinutes int     `json:"total_minutes"`
	Confidence   float64 `json:"confidence"`
	Range        Range   `json:"range"`
}

// EstimateAdvice compares a task's own estimate with the calibrated one.
type EstimateAdvice struct {
	SuggestedMinutes int     `json:"suggested_minutes"`
	CurrentMinutes   float64 `json:"current_minutes"`
	Reason           string  `json:"reason"`
	Confidence       float64 `json:"confidence"`
}

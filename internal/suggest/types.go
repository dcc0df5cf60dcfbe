// Package suggest adapts candidate suggestions to a user's learned
// preferences: it suppresses types the user never accepts, shifts delivery
// toward their preferred timing, rephrases the message, and ranks the rest
// by predicted acceptance.
package suggest

import (
	"fmt"
	"time"
)

// Priority levels a suggestion can carry.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Suggestion is one candidate produced by an upstream generator.
type Suggestion struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
	// Confidence is the generator's own confidence in the suggestion.
	Confidence float64 `json:"confidence"`
}

// Validate rejects malformed suggestions before any model read.
func (s *Suggestion) Validate() error {
	if s == nil {
		return fmt.Errorf("suggestion cannot be nil")
	}
	if s.Type == "" {
		return fmt.Errorf("suggestion type cannot be empty")
	}
	switch s.Priority {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
	default:
		return fmt.Errorf("invalid priority %q", s.Priority)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1], got %f", s.Confidence)
	}
	return nil
}

// Adapted is a suggestion after personalization.
type Adapted struct {
	Suggestion
	// DelayUntil defers the suggestion to the user's preferred time for
	// this type; nil means show now.
	DelayUntil *time.Time `json:"delay_until,omitempty"`
	// PredictedAcceptance estimates how likely the user is to act on it.
	PredictedAcceptance float64 `json:"predicted_acceptance"`
}

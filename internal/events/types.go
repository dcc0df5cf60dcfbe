// Package events provides the append-only store of behavioral events that
// the model builder folds into per-user models. Events are the raw facts;
// everything derived from them is a rebuildable cache.
package events

import (
	"time"

	json "github.com/goccy/go-json"
)

// Kind identifies the category of a behavioral event.
type Kind string

const (
	// KindTaskCompleted records that a task was finished (or abandoned).
	KindTaskCompleted Kind = "task_completed"
	// KindEstimateResolved records an estimate-vs-actual pair for a task.
	KindEstimateResolved Kind = "estimate_resolved"
	// KindSuggestionOutcome records whether a suggestion was accepted or dismissed.
	KindSuggestionOutcome Kind = "suggestion_outcome"
	// KindNotificationEngagement records whether a delivered notification was engaged with.
	KindNotificationEngagement Kind = "notification_engagement"
	// KindPreferenceUpdate records an explicit settings change (tone, quiet
	// hours, planning style). Folded into the model like any other event so
	// the snapshot stays rebuildable from the log alone.
	KindPreferenceUpdate Kind = "preference_update"
)

// Event represents a single behavioral observation for a user.
// The payload carries kind-specific fields as raw JSON; the builder extracts
// what it needs without binding every kind to a Go struct.
//
// Known payload fields per kind:
//
//	task_completed:          task_type, completed (bool)
//	estimate_resolved:       mirrors EstimationRecord
//	suggestion_outcome:      suggestion_type, accepted (bool), shown_at ("HH:MM")
//	notification_engagement: notification_type, channel, engaged (bool)
//	preference_update:       preferred_length, emoji_usage, tone_preference,
//	                         planning_style, grouping_preference,
//	                         quiet_hours.start, quiet_hours.end
type Event struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Kind      Kind            `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	// ReceivedAt is stamped by the ingestion layer; zero for events
	// appended directly by in-process callers.
	ReceivedAt time.Time `json:"received_at,omitempty"`
}

// EstimationRecord is an immutable estimate-vs-actual fact for one task.
// Records are append-only and form the only source of truth for
// recalibration; the derived estimation model is rebuilt from them.
type EstimationRecord struct {
	TaskID           string    `json:"task_id"`
	TaskType         string    `json:"task_type"`
	TaskSize         string    `json:"task_size"` // small, medium, large
	EstimatedMinutes float64   `json:"estimated_minutes"`
	ActualMinutes    float64   `json:"actual_minutes"`
	Title            string    `json:"title,omitempty"`
	ProjectID        string    `json:"project_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// AccuracyRatio returns estimated/actual for the record, the ratio the
// estimation model aggregates. A ratio below 1 means the user underestimated.
func (r *EstimationRecord) AccuracyRatio() float64 {
	if r.ActualMinutes <= 0 {
		return 1.0
	}
	return r.EstimatedMinutes / r.ActualMinutes
}

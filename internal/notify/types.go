// Package notify decides whether, when, through which channel, and in what
// form a notification reaches the user, and enforces per-user delivery
// rate limits.
package notify

import (
	"fmt"
	"time"
)

// Priority levels a notification can carry.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// DefaultChannel is used when no channel preference data exists.
const DefaultChannel = "in_app"

// Skip reasons reported on suppressed notifications.
const (
	ReasonLowEngagementType = "low_engagement_type"
	ReasonRateLimited       = "rate_limited"
	ReasonPreferenceRule    = "preference_rule"
)

// Notification is a candidate delivery passed in by a caller.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Priority  string    `json:"priority"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate rejects malformed notifications before any model read.
func (n *Notification) Validate() error {
	if n == nil {
		return fmt.Errorf("notification cannot be nil")
	}
	if n.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if n.Type == "" {
		return fmt.Errorf("notification type cannot be empty")
	}
	switch n.Priority {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
	default:
		return fmt.Errorf("invalid priority %q", n.Priority)
	}
	return nil
}

// Adapted is the scheduling decision for one notification.
type Adapted struct {
	Skip   bool   `json:"skip"`
	Reason string `json:"reason,omitempty"`
	// Channel carries the selected delivery channel when not skipped.
	Channel string `json:"channel,omitempty"`
	// DeliverAt is set when delivery is deferred; nil means deliver now.
	DeliverAt *time.Time `json:"deliver_at,omitempty"`
	// GroupWith lists ids of pending notifications to batch with.
	GroupWith []string `json:"group_with,omitempty"`
	// AdaptedMessage is the message after style adaptation.
	AdaptedMessage string `json:"adapted_message,omitempty"`
}

// Digest summarizes a set of pending notifications in one sentence.
type Digest struct {
	Message string   `json:"message"`
	Count   int      `json:"count"`
	Types   []string `json:"types"`
}

// Frequency is the per-user delivery budget derived from the model.
type Frequency struct {
	MaxPerHour              int `json:"max_per_hour"`
	MaxPerDay               int `json:"max_per_day"`
	BatchingIntervalMinutes int `json:"batching_interval_minutes"`
}

// LimitStatus reports whether the user's delivery caps are exhausted.
type LimitStatus struct {
	HourlyLimitReached bool `json:"hourly_limit_reached"`
	DailyLimitReached  bool `json:"daily_limit_reached"`
}

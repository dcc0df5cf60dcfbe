// Package model defines the per-user behavioral model and its lifecycle:
// the builder that folds raw events into an immutable snapshot, and the
// store that atomically publishes snapshots to readers.
package model

import (
	"time"
)

// UserModel is an immutable snapshot of everything the engine has learned
// about one user. Snapshots are replaced wholesale on recompute; adaptation
// code paths only ever read them. The model is a derived, rebuildable cache
// over the append-only event log and estimation records.
type UserModel struct {
	UserID            string    `json:"user_id"`
	LastUpdated       time.Time `json:"last_updated"`
	SamplesUsed       int       `json:"samples_used"`
	OverallConfidence float64   `json:"overall_confidence"` // 0.0 to 1.0

	Productivity ProductivityPattern `json:"productivity"`
	Estimation   EstimationModel     `json:"estimation"`
	Preferences  Preferences         `json:"preferences"`

	// ContextHistory carries the windowed estimation samples the calibrator
	// matches by project and title keywords. Embedding them in the snapshot
	// keeps Estimate() a pure function of (task, model).
	ContextHistory []ContextSample `json:"context_history,omitempty"`
}

// ProductivityPattern captures when the user actually gets things done.
type ProductivityPattern struct {
	// HourlyScores maps hour (0-23) to task completion rate for that hour.
	HourlyScores map[int]float64 `json:"hourly_scores"`
	// DayOfWeekScores maps day name ("Monday"...) to completion rate.
	DayOfWeekScores map[string]float64 `json:"day_of_week_scores"`
	// PeakWindows lists the user's best stretches, highest score first.
	PeakWindows []ProductivityWindow `json:"peak_windows,omitempty"`
	// OptimalFocusMinutes is the typical length of an effective work block.
	OptimalFocusMinutes int `json:"optimal_focus_minutes"`
}

// ProductivityWindow is a contiguous high-productivity stretch on one day.
// EndHour is exclusive; windows never wrap midnight within a single day
// entry (a late-night worker gets one window per calendar day instead).
type ProductivityWindow struct {
	Day       string  `json:"day"`
	StartHour int     `json:"start_hour"`
	EndHour   int     `json:"end_hour"`
	Score     float64 `json:"score"`
}

// EstimationModel captures how well the user estimates task durations.
//
// Accuracy is the mean estimated/actual ratio: below 1.0 the user
// underestimates (work takes longer than planned), above 1.0 they
// overestimate. Bias is the mean signed error in minutes (actual minus
// estimated, positive when work runs over).
type EstimationModel struct {
	// GlobalAccuracy is the overall estimated/actual ratio; 1.0 = calibrated.
	GlobalAccuracy float64 `json:"global_accuracy"`
	// ByTaskType holds per-type accuracy stats, only for types with enough samples.
	ByTaskType map[string]*TypeAccuracy `json:"by_task_type,omitempty"`
	// BySize holds per-size (small/medium/large) accuracy stats.
	BySize map[string]*SizeAccuracy `json:"by_size,omitempty"`
	// ImprovementSuggestions are human-readable observations about estimation habits.
	ImprovementSuggestions []string `json:"improvement_suggestions,omitempty"`
}

// TypeAccuracy holds estimation statistics for one task type.
type TypeAccuracy struct {
	Accuracy            float64 `json:"accuracy"`
	BiasMinutes         float64 `json:"bias_minutes"`
	SampleSize          int     `json:"sample_size"`
	AverageErrorMinutes float64 `json:"average_error_minutes"`
}

// SizeAccuracy holds estimation statistics for one task size bucket.
type SizeAccuracy struct {
	Accuracy    float64 `json:"accuracy"`
	BiasMinutes float64 `json:"bias_minutes"`
	SampleSize  int     `json:"sample_size"`
}

// ContextSample is one historical estimation fact retained in the snapshot
// for context matching.
type ContextSample struct {
	Title     string    `json:"title,omitempty"`
	ProjectID string    `json:"project_id,omitempty"`
	// Ratio is actual/estimated: above 1.0 this kind of work ran over.
	Ratio     float64   `json:"ratio"`
	CreatedAt time.Time `json:"created_at"`
}

// Preferences groups the learned communication, notification, work-style
// and suggestion preferences.
type Preferences struct {
	Communication CommunicationStyle      `json:"communication"`
	Notifications NotificationPreferences `json:"notifications"`
	WorkStyle     WorkStyle               `json:"work_style"`
	Suggestions   SuggestionPreferences   `json:"suggestions"`
}

// CommunicationStyle captures how messages should be phrased for this user.
type CommunicationStyle struct {
	// PreferredLength is "brief", "moderate" or "detailed".
	PreferredLength string `json:"preferred_length"`
	// EmojiUsage is "none", "minimal" or "frequent".
	EmojiUsage string `json:"emoji_usage"`
	// TonePreference is "casual", "neutral" or "formal".
	TonePreference string `json:"tone_preference"`
}

// NotificationPreferences captures when and how the user wants to be pinged.
type NotificationPreferences struct {
	// PeakEngagementHour is the hour the user most reliably engages, nil when unknown.
	PeakEngagementHour *int `json:"peak_engagement_hour,omitempty"`
	// GroupingPreference is "none", "moderate" or "aggressive".
	GroupingPreference string `json:"grouping_preference"`
	// ChannelPreference maps channel name to engagement score (0.0 to 1.0).
	ChannelPreference map[string]float64 `json:"channel_preference,omitempty"`
	// QuietHours suppresses non-urgent delivery; Start == End disables it.
	QuietHours QuietHours `json:"quiet_hours"`
	// ValueByType maps notification type to engagement score (0.0 to 1.0).
	ValueByType map[string]float64 `json:"value_by_type,omitempty"`
	// CustomRules are user-defined overrides evaluated after the
	// statistical decision; the highest-priority matching rule wins.
	CustomRules []PreferenceRule `json:"custom_rules,omitempty"`
}

// PreferenceRule is a user-defined notification override. Condition is an
// expression over the delivery context (type, priority, hour, day,
// channel), e.g. "hour >= 22 && type == 'reminder'".
type PreferenceRule struct {
	Condition string `json:"condition"`
	// Skip suppresses the notification when the condition matches.
	Skip bool `json:"skip,omitempty"`
	// Channel forces a delivery channel when non-empty.
	Channel string `json:"channel,omitempty"`
	// DelayToHour defers delivery to the next occurrence of this hour.
	DelayToHour *int `json:"delay_to_hour,omitempty"`
	// Priority orders rules; higher evaluates first.
	Priority int `json:"priority,omitempty"`
}

// QuietHours is an hour window during which non-urgent notifications are
// held back. Start > End means the window wraps midnight (22 -> 6).
type QuietHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Enabled reports whether a quiet-hours window is configured at all.
func (q QuietHours) Enabled() bool {
	return q.Start != q.End
}

// WorkStyle captures planning habits.
type WorkStyle struct {
	// PlanningStyle is "detailed", "flexible" or "spontaneous".
	PlanningStyle string `json:"planning_style"`
}

// SuggestionPreferences captures which suggestions land and when.
type SuggestionPreferences struct {
	// AcceptanceRateByType maps suggestion type to historical acceptance rate.
	AcceptanceRateByType map[string]float64 `json:"acceptance_rate_by_type,omitempty"`
	// PreferredTimingByType maps suggestion type to the "HH:MM" the user
	// historically acts on it.
	PreferredTimingByType map[string]string `json:"preferred_timing_by_type,omitempty"`
	// MostValuable lists suggestion types the user consistently accepts.
	MostValuable []string `json:"most_valuable,omitempty"`
	// LeastValuable lists suggestion types the user consistently dismisses.
	LeastValuable []string `json:"least_valuable,omitempty"`
}

package model

import "time"

// Default values used until a user has enough history to personalize.
const (
	defaultConfidence   = 0.1
	defaultFocusMinutes = 45
)

// DefaultModel returns the neutral model used before any events exist for
// a user. Every statistic is either absent or at its identity value, so
// calibration and adaptation behave as if no personalization applied.
func DefaultModel(userID string) *UserModel {
	return &UserModel{
		UserID:            userID,
		LastUpdated:       time.Time{},
		SamplesUsed:       0,
		OverallConfidence: defaultConfidence,
		Productivity: ProductivityPattern{
			HourlyScores:        map[int]float64{},
			DayOfWeekScores:     map[string]float64{},
			OptimalFocusMinutes: defaultFocusMinutes,
		},
		Estimation: EstimationModel{
			GlobalAccuracy: 1.0,
		},
		Preferences: Preferences{
			Communication: CommunicationStyle{
				PreferredLength: "moderate",
				EmojiUsage:      "minimal",
				TonePreference:  "neutral",
			},
			Notifications: NotificationPreferences{
				GroupingPreference: "moderate",
				QuietHours:         QuietHours{},
			},
			WorkStyle: WorkStyle{
				PlanningStyle: "flexible",
			},
		},
	}
}

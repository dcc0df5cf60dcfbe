package notify

import (
	"math"

	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/model"
)

// Engagement thresholds at which the delivery budget shrinks or grows.
const (
	lowEngagementMean  = 0.3
	highEngagementMean = 0.7
)

// OptimalFrequency derives the user's delivery budget from how much value
// they get out of notifications overall: disengaged users get fewer, more
// batched pings; engaged users get a bigger budget with tighter batching.
// The grouping preference then tunes the result.
func OptimalFrequency(m *model.UserModel, defaults config.NotificationsConfig) Frequency {
	freq := Frequency{
		MaxPerHour:              defaults.MaxPerHour,
		MaxPerDay:               defaults.MaxPerDay,
		BatchingIntervalMinutes: defaults.BatchingIntervalMinutes,
	}

	values := m.Preferences.Notifications.ValueByType
	if len(values) > 0 {
		var sum float64
		for _, v := range values {
			sum += v
		}
		switch mean := sum / float64(len(values)); {
		case mean < lowEngagementMean:
			freq = Frequency{MaxPerHour: 2, MaxPerDay: 8, BatchingIntervalMinutes: 60}
		case mean > highEngagementMean:
			freq = Frequency{MaxPerHour: 8, MaxPerDay: 30, BatchingIntervalMinutes: 15}
		}
	}

	switch m.Preferences.Notifications.GroupingPreference {
	case "aggressive":
		freq.MaxPerHour = max(1, freq.MaxPerHour/2)
		freq.MaxPerDay = max(1, freq.MaxPerDay/2)
		freq.BatchingIntervalMinutes = int(math.Ceil(float64(freq.BatchingIntervalMinutes) * 1.5))
	case "none":
		freq.BatchingIntervalMinutes = 5
	}

	return freq
}

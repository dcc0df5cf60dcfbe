package model

import (
	"sort"
	"time"
)

// Projection is the client-facing view of a model: the highlights a UI can
// show without exposing the full statistical internals.
type Projection struct {
	UserID            string    `json:"user_id"`
	LastUpdated       time.Time `json:"last_updated"`
	SamplesUsed       int       `json:"samples_used"`
	OverallConfidence float64   `json:"overall_confidence"`

	TopHours []ScoredHour `json:"top_hours,omitempty"`
	TopDays  []ScoredDay  `json:"top_days,omitempty"`

	PeakWindows         []ProductivityWindow `json:"peak_windows,omitempty"`
	OptimalFocusMinutes int                  `json:"optimal_focus_minutes"`

	Estimation  EstimationSummary `json:"estimation"`
	Preferences Preferences       `json:"preferences"`
}

// ScoredHour pairs an hour of day with its productivity score.
type ScoredHour struct {
	Hour  int     `json:"hour"`
	Score float64 `json:"score"`
}

// ScoredDay pairs a day of week with its productivity score.
type ScoredDay struct {
	Day   string  `json:"day"`
	Score float64 `json:"score"`
}

// EstimationSummary condenses the estimation model for display.
type EstimationSummary struct {
	GlobalAccuracy         float64                  `json:"global_accuracy"`
	ByTaskType             map[string]*TypeAccuracy `json:"by_task_type,omitempty"`
	ImprovementSuggestions []string                 `json:"improvement_suggestions,omitempty"`
}

// Project builds the client-facing projection of a model, keeping the top
// n hours and days by score.
func Project(m *UserModel, n int) *Projection {
	if n <= 0 {
		n = 3
	}

	p := &Projection{
		UserID:              m.UserID,
		LastUpdated:         m.LastUpdated,
		SamplesUsed:         m.SamplesUsed,
		OverallConfidence:   m.OverallConfidence,
		PeakWindows:         m.Productivity.PeakWindows,
		OptimalFocusMinutes: m.Productivity.OptimalFocusMinutes,
		Estimation: EstimationSummary{
			GlobalAccuracy:         m.Estimation.GlobalAccuracy,
			ByTaskType:             m.Estimation.ByTaskType,
			ImprovementSuggestions: m.Estimation.ImprovementSuggestions,
		},
		Preferences: m.Preferences,
	}

	for hour, score := range m.Productivity.HourlyScores {
		p.TopHours = append(p.TopHours, ScoredHour{Hour: hour, Score: score})
	}
	sort.Slice(p.TopHours, func(i, j int) bool {
		if p.TopHours[i].Score != p.TopHours[j].Score {
			return p.TopHours[i].Score > p.TopHours[j].Score
		}
		return p.TopHours[i].Hour < p.TopHours[j].Hour
	})
	if len(p.TopHours) > n {
		p.TopHours = p.TopHours[:n]
	}

	for day, score := range m.Productivity.DayOfWeekScores {
		p.TopDays = append(p.TopDays, ScoredDay{Day: day, Score: score})
	}
	sort.Slice(p.TopDays, func(i, j int) bool {
		if p.TopDays[i].Score != p.TopDays[j].Score {
			return p.TopDays[i].Score > p.TopDays[j].Score
		}
		return p.TopDays[i].Day < p.TopDays[j].Day
	})
	if len(p.TopDays) > n {
		p.TopDays = p.TopDays[:n]
	}

	return p
}

package suggest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/style"
	"github.com/attunehq/attune/internal/util"
)

const (
	// suppressionRate is the acceptance rate below which a suggestion type
	// is dropped outright rather than deprioritized. This applies to every
	// priority, urgent included.
	suppressionRate = 0.15

	// preferredTimingSlackMinutes is how far "now" may sit from the user's
	// preferred time before the suggestion gets deferred.
	preferredTimingSlackMinutes = 120

	baseAcceptance = 0.5
)

// Adapter personalizes suggestion batches against a model snapshot.
type Adapter struct {
	registry *style.Registry
	nowFn    func() time.Time
}

// NewAdapter creates a suggestion adapter. registry may be nil to use the
// built-in phrasing only.
func NewAdapter(registry *style.Registry) *Adapter {
	return &Adapter{
		registry: registry,
		nowFn:    time.Now,
	}
}

// Adapt filters, re-times, re-phrases and ranks a batch of suggestions.
// The result is ordered by predicted acceptance descending; equal scores
// keep their input order. Structurally invalid input is the only error.
func (a *Adapter) Adapt(suggestions []*Suggestion, m *model.UserModel) ([]*Adapted, error) {
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	for _, s := range suggestions {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid suggestion: %w", err)
		}
	}

	now := a.nowFn()
	prefs := m.Preferences

	out := make([]*Adapted, 0, len(suggestions))
	for _, s := range suggestions {
		if rate, ok := prefs.Suggestions.AcceptanceRateByType[s.Type]; ok && rate < suppressionRate {
			continue
		}

		adapted := &Adapted{Suggestion: *s}
		adapted.DelayUntil = delayForTiming(now, s.Type, prefs.Suggestions.PreferredTimingByType)
		adapted.Priority = adjustPriority(s.Priority, prefs.WorkStyle.PlanningStyle)
		adapted.Message = a.adaptMessage(s.Message, prefs.Communication)
		adapted.PredictedAcceptance = predictAcceptance(s, now, &prefs)
		out = append(out, adapted)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PredictedAcceptance > out[j].PredictedAcceptance
	})
	return out, nil
}

func (a *Adapter) adaptMessage(message string, cs model.CommunicationStyle) string {
	if a.registry != nil {
		return a.registry.AdaptWith(message, cs)
	}
	return style.Adapt(message, cs)
}

// delayForTiming defers a suggestion to the user's preferred time of day
// for its type when "now" is outside the slack window, rolling to tomorrow
// if today's occurrence already passed.
func delayForTiming(now time.Time, sType string, timing map[string]string) *time.Time {
	preferred, ok := timing[sType]
	if !ok {
		return nil
	}
	hour, minute, ok := parseClock(preferred)
	if !ok {
		return nil
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	prefMinutes := hour*60 + minute
	diff := nowMinutes - prefMinutes
	if diff < 0 {
		diff = -diff
	}
	if diff > 12*60 {
		diff = 24*60 - diff
	}
	if diff <= preferredTimingSlackMinutes {
		return nil
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return &next
}

// adjustPriority notches urgent down to high for systematic planners, who
// act on their plan without urgency inflation. Everything else passes
// through untouched.
func adjustPriority(priority, planningStyle string) string {
	if planningStyle == "detailed" && priority == PriorityUrgent {
		return PriorityHigh
	}
	return priority
}

// predictAcceptance scores how likely the user is to act on the
// suggestion, starting from the historical acceptance rate for its type.
func predictAcceptance(s *Suggestion, now time.Time, prefs *model.Preferences) float64 {
	score := baseAcceptance
	if rate, ok := prefs.Suggestions.AcceptanceRateByType[s.Type]; ok {
		score = rate
	}

	if s.Confidence > 0.8 {
		score *= 1.1
	} else if s.Confidence < 0.5 {
		score *= 0.9
	}

	if peak := prefs.Notifications.PeakEngagementHour; peak != nil {
		switch distance := util.HourDistance(now.Hour(), *peak); {
		case distance <= 1:
			score *= 1.15
		case distance >= 4:
			score *= 0.85
		}
	}

	if contains(prefs.Suggestions.LeastValuable, s.Type) {
		score *= 0.7
	}
	if contains(prefs.Suggestions.MostValuable, s.Type) {
		score *= 1.2
	}

	return util.Clamp01(score)
}

// parseClock parses "HH:MM" into hour and minute.
func parseClock(s string) (int, int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

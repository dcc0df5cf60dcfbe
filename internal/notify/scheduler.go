package notify

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/rules"
	"github.com/attunehq/attune/internal/style"
	"github.com/attunehq/attune/internal/util"
)

const (
	// lowEngagementValue is the per-type engagement below which non-urgent
	// notifications are skipped.
	lowEngagementValue = 0.2

	// peakHourSlack is how far from the peak engagement hour a deferrable
	// notification may still be delivered immediately.
	peakHourSlack = 2

	// groupingLookback bounds how far back pending notifications are
	// considered for batching.
	groupingLookback = time.Hour
)

// PendingSource lists pending, undismissed, unshown notifications eligible
// for grouping. Implemented by the SQL store.
type PendingSource interface {
	PendingSameType(ctx context.Context, userID, notificationType string, since time.Time) ([]string, error)
}

// Scheduler makes delivery decisions for notifications against a model
// snapshot. One decision reads exactly one snapshot; the model is never
// re-read mid-computation.
type Scheduler struct {
	defaults  config.NotificationsConfig
	registry  *style.Registry
	pending   PendingSource
	limiter   *RateLimiter
	evaluator *rules.Evaluator
	nowFn     func() time.Time
}

// NewScheduler creates a notification scheduler. registry and pending may
// be nil; grouping then returns no companions.
func NewScheduler(defaults config.NotificationsConfig, registry *style.Registry, pending PendingSource, limiter *RateLimiter) *Scheduler {
	if limiter == nil {
		limiter = NewRateLimiter()
	}
	return &Scheduler{
		defaults:  defaults,
		registry:  registry,
		pending:   pending,
		limiter:   limiter,
		evaluator: rules.NewEvaluator(),
		nowFn:     time.Now,
	}
}

// Limiter exposes the scheduler's rate limiter so callers can record
// deliveries they perform.
func (s *Scheduler) Limiter() *RateLimiter {
	return s.limiter
}

// Adapt decides skip/deliver, channel, timing and grouping for one
// notification. Only structurally invalid input is an error; every other
// condition resolves to a normal decision.
func (s *Scheduler) Adapt(ctx context.Context, n *Notification, m *model.UserModel) (*Adapted, error) {
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notification: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}

	now := s.nowFn()
	prefs := m.Preferences.Notifications

	// Low-value types are not worth interrupting for, unless urgent.
	if value, ok := prefs.ValueByType[n.Type]; ok && value < lowEngagementValue && n.Priority != PriorityUrgent {
		return &Adapted{Skip: true, Reason: ReasonLowEngagementType}, nil
	}

	adapted := &Adapted{
		Channel:        selectChannel(prefs.ChannelPreference),
		AdaptedMessage: s.adaptMessage(n.Message, m.Preferences.Communication),
	}
	adapted.DeliverAt = s.deliveryTime(now, n.Priority, m)
	adapted.GroupWith = s.groupWith(ctx, n, prefs.GroupingPreference)
	s.applyCustomRules(now, n, adapted, prefs.CustomRules)
	return adapted, nil
}

// applyCustomRules overlays the user's own override rules on the
// statistical decision. Urgent notifications are never overridden, and a
// broken rule set degrades to the statistical decision.
func (s *Scheduler) applyCustomRules(now time.Time, n *Notification, adapted *Adapted, ruleSet []model.PreferenceRule) {
	if len(ruleSet) == 0 || n.Priority == PriorityUrgent {
		return
	}

	env := rules.Env{
		Type:     n.Type,
		Priority: n.Priority,
		Hour:     now.Hour(),
		Day:      now.Weekday().String(),
		Channel:  adapted.Channel,
	}
	outcome, err := s.evaluator.Apply(ruleSet, env)
	if err != nil {
		log.WithField("user", n.UserID).Warnf("Preference rule evaluation failed: %v", err)
	}
	if outcome == nil {
		return
	}

	if outcome.Skip {
		*adapted = Adapted{Skip: true, Reason: ReasonPreferenceRule}
		return
	}
	if outcome.Channel != "" {
		adapted.Channel = outcome.Channel
	}
	if outcome.DelayToHour != nil {
		t := util.NextHourOccurrence(now, *outcome.DelayToHour)
		adapted.DeliverAt = &t
	}
}

// HasReachedLimit reports whether the user's delivery caps are exhausted,
// counting sends in the trailing hour and since local midnight against the
// model-derived budget.
func (s *Scheduler) HasReachedLimit(userID string, m *model.UserModel) LimitStatus {
	freq := OptimalFrequency(m, s.defaults)
	return s.limiter.Status(userID, freq, s.nowFn())
}

// TrySend atomically consumes one slot of the user's delivery budget.
// Callers must send only when this returns true.
func (s *Scheduler) TrySend(userID string, m *model.UserModel) bool {
	freq := OptimalFrequency(m, s.defaults)
	return s.limiter.TryAcquire(userID, freq, s.nowFn())
}

// selectChannel picks the channel with the highest engagement score,
// falling back to in-app with no preference data. Ties break on channel
// name for determinism.
func selectChannel(scores map[string]float64) string {
	best := ""
	bestScore := -1.0
	for channel, score := range scores {
		if score > bestScore || (score == bestScore && channel < best) {
			best = channel
			bestScore = score
		}
	}
	if best == "" {
		return DefaultChannel
	}
	return best
}

// deliveryTime defers a notification around quiet hours, toward the peak
// engagement hour, and out of deep-work windows. nil means deliver now.
// Urgent notifications always go out immediately.
func (s *Scheduler) deliveryTime(now time.Time, priority string, m *model.UserModel) *time.Time {
	if priority == PriorityUrgent {
		return nil
	}
	prefs := m.Preferences.Notifications

	if prefs.QuietHours.Enabled() && util.HourInWindow(now.Hour(), prefs.QuietHours.Start, prefs.QuietHours.End) {
		t := util.NextHourOccurrence(now, prefs.QuietHours.End)
		return &t
	}

	if peak := prefs.PeakEngagementHour; peak != nil && priority != PriorityHigh {
		if util.HourDistance(now.Hour(), *peak) > peakHourSlack {
			t := util.NextHourOccurrence(now, *peak)
			return &t
		}
	}

	// Do not interrupt deep work with low-value pings.
	if priority == PriorityLow {
		if window := currentPeakWindow(now, m.Productivity.PeakWindows); window != nil {
			t := time.Date(now.Year(), now.Month(), now.Day(), window.EndHour, 0, 0, 0, now.Location())
			if t.After(now) {
				return &t
			}
		}
	}

	return nil
}

// currentPeakWindow returns the productivity window containing now, if any.
func currentPeakWindow(now time.Time, windows []model.ProductivityWindow) *model.ProductivityWindow {
	day := now.Weekday().String()
	hour := now.Hour()
	for i := range windows {
		w := &windows[i]
		if w.Day == day && hour >= w.StartHour && hour < w.EndHour {
			return w
		}
	}
	return nil
}

// groupWith finds pending same-type notifications to batch with, honoring
// the grouping preference. Urgent notifications never group.
func (s *Scheduler) groupWith(ctx context.Context, n *Notification, preference string) []string {
	if s.pending == nil || n.Priority == PriorityUrgent {
		return nil
	}

	switch preference {
	case "none":
		return nil
	case "aggressive":
		// Everything non-urgent groups.
	default:
		// "moderate" and unset group only low priority.
		if n.Priority != PriorityLow {
			return nil
		}
	}

	ids, err := s.pending.PendingSameType(ctx, n.UserID, n.Type, s.nowFn().Add(-groupingLookback))
	if err != nil {
		// Grouping is best effort; deliver ungrouped on store trouble.
		log.WithField("user", n.UserID).Warnf("Pending lookup failed, skipping grouping: %v", err)
		return nil
	}
	return ids
}

func (s *Scheduler) adaptMessage(message string, cs model.CommunicationStyle) string {
	if s.registry != nil {
		return s.registry.AdaptWith(message, cs)
	}
	return style.Adapt(message, cs)
}

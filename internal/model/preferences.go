package model

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/attunehq/attune/internal/events"
)

const (
	mostValuableRate  = 0.7
	leastValuableRate = 0.25
)

// buildPreferences folds suggestion outcomes, notification engagement and
// explicit preference updates into the preference section of the model.
// Events arrive oldest first, so later preference updates win.
func buildPreferences(history []*events.Event, minSamples int) Preferences {
	prefs := DefaultModel("").Preferences

	suggTotal := make(map[string]int)
	suggAccepted := make(map[string]int)
	// suggestion type -> hour -> accepted count, for preferred timing
	suggHours := make(map[string]map[int]int)

	chanTotal := make(map[string]int)
	chanEngaged := make(map[string]int)
	typeTotal := make(map[string]int)
	typeEngaged := make(map[string]int)
	engagedByHour := make(map[int]int)

	for _, e := range history {
		switch e.Kind {
		case events.KindSuggestionOutcome:
			sType := gjson.GetBytes(e.Payload, "suggestion_type").String()
			if sType == "" {
				continue
			}
			suggTotal[sType]++
			if gjson.GetBytes(e.Payload, "accepted").Bool() {
				suggAccepted[sType]++
				if suggHours[sType] == nil {
					suggHours[sType] = make(map[int]int)
				}
				suggHours[sType][e.Timestamp.Hour()]++
			}

		case events.KindNotificationEngagement:
			nType := gjson.GetBytes(e.Payload, "notification_type").String()
			channel := gjson.GetBytes(e.Payload, "channel").String()
			engaged := gjson.GetBytes(e.Payload, "engaged").Bool()

			if channel != "" {
				chanTotal[channel]++
				if engaged {
					chanEngaged[channel]++
				}
			}
			if nType != "" {
				typeTotal[nType]++
				if engaged {
					typeEngaged[nType]++
				}
			}
			if engaged {
				engagedByHour[e.Timestamp.Hour()]++
			}

		case events.KindPreferenceUpdate:
			applyPreferenceUpdate(&prefs, e.Payload)
		}
	}

	// Suggestion acceptance rates and valuable/ignored buckets.
	for sType, total := range suggTotal {
		if total < minSamples {
			continue
		}
		rate := float64(suggAccepted[sType]) / float64(total)
		if prefs.Suggestions.AcceptanceRateByType == nil {
			prefs.Suggestions.AcceptanceRateByType = make(map[string]float64)
		}
		prefs.Suggestions.AcceptanceRateByType[sType] = rate

		if rate >= mostValuableRate {
			prefs.Suggestions.MostValuable = append(prefs.Suggestions.MostValuable, sType)
		} else if rate <= leastValuableRate {
			prefs.Suggestions.LeastValuable = append(prefs.Suggestions.LeastValuable, sType)
		}

		if hour, ok := modeHour(suggHours[sType], minSamples); ok {
			if prefs.Suggestions.PreferredTimingByType == nil {
				prefs.Suggestions.PreferredTimingByType = make(map[string]string)
			}
			prefs.Suggestions.PreferredTimingByType[sType] = fmt.Sprintf("%02d:00", hour)
		}
	}
	sort.Strings(prefs.Suggestions.MostValuable)
	sort.Strings(prefs.Suggestions.LeastValuable)

	// Notification channel and type engagement.
	for channel, total := range chanTotal {
		if total < minSamples {
			continue
		}
		if prefs.Notifications.ChannelPreference == nil {
			prefs.Notifications.ChannelPreference = make(map[string]float64)
		}
		prefs.Notifications.ChannelPreference[channel] = float64(chanEngaged[channel]) / float64(total)
	}
	for nType, total := range typeTotal {
		if total < minSamples {
			continue
		}
		if prefs.Notifications.ValueByType == nil {
			prefs.Notifications.ValueByType = make(map[string]float64)
		}
		prefs.Notifications.ValueByType[nType] = float64(typeEngaged[nType]) / float64(total)
	}
	if hour, ok := modeHour(engagedByHour, minSamples); ok {
		prefs.Notifications.PeakEngagementHour = &hour
	}

	return prefs
}

// applyPreferenceUpdate overlays an explicit settings change on prefs.
// Only fields present in the payload are touched.
func applyPreferenceUpdate(prefs *Preferences, payload []byte) {
	if v := gjson.GetBytes(payload, "preferred_length"); v.Exists() {
		prefs.Communication.PreferredLength = v.String()
	}
	if v := gjson.GetBytes(payload, "emoji_usage"); v.Exists() {
		prefs.Communication.EmojiUsage = v.String()
	}
	if v := gjson.GetBytes(payload, "tone_preference"); v.Exists() {
		prefs.Communication.TonePreference = v.String()
	}
	if v := gjson.GetBytes(payload, "planning_style"); v.Exists() {
		prefs.WorkStyle.PlanningStyle = v.String()
	}
	if v := gjson.GetBytes(payload, "grouping_preference"); v.Exists() {
		prefs.Notifications.GroupingPreference = v.String()
	}
	start := gjson.GetBytes(payload, "quiet_hours.start")
	end := gjson.GetBytes(payload, "quiet_hours.end")
	if start.Exists() && end.Exists() {
		prefs.Notifications.QuietHours = QuietHours{
			Start: int(start.Int()),
			End:   int(end.Int()),
		}
	}
	if rules := gjson.GetBytes(payload, "rules"); rules.IsArray() {
		// The latest update carrying rules replaces the whole set.
		prefs.Notifications.CustomRules = nil
		for _, r := range rules.Array() {
			rule := PreferenceRule{
				Condition: r.Get("condition").String(),
				Skip:      r.Get("skip").Bool(),
				Channel:   r.Get("channel").String(),
				Priority:  int(r.Get("priority").Int()),
			}
			if h := r.Get("delay_to_hour"); h.Exists() {
				hour := int(h.Int())
				rule.DelayToHour = &hour
			}
			if rule.Condition != "" {
				prefs.Notifications.CustomRules = append(prefs.Notifications.CustomRules, rule)
			}
		}
	}
}

// modeHour returns the hour with the highest count, requiring at least
// minSamples observations in total. Earlier hours win ties so the result
// is deterministic.
func modeHour(counts map[int]int, minSamples int) (int, bool) {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total < minSamples {
		return 0, false
	}

	best := -1
	bestCount := 0
	for hour := 0; hour < 24; hour++ {
		if c := counts[hour]; c > bestCount {
			best = hour
			bestCount = c
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

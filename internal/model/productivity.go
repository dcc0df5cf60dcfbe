package model

import (
	"sort"

	"github.com/tidwall/gjson"

	"github.com/attunehq/attune/internal/events"
	"github.com/attunehq/attune/internal/util"
)

const (
	// peakWindowThreshold is the completion rate an hour must sustain to be
	// part of a peak productivity window.
	peakWindowThreshold = 0.7
	// peakWindowMinSamples is the minimum observations per hour before it
	// can contribute to a window.
	peakWindowMinSamples = 2
	maxPeakWindows       = 5
)

type completionStats struct {
	total     int
	completed int
}

func (c *completionStats) rate() float64 {
	if c.total == 0 {
		return 0
	}
	return float64(c.completed) / float64(c.total)
}

// buildProductivity folds task completion events into hourly and day-of-week
// completion rates, peak windows, and a focus duration estimate.
func buildProductivity(history []*events.Event, records []*events.EstimationRecord) ProductivityPattern {
	p := ProductivityPattern{
		HourlyScores:        map[int]float64{},
		DayOfWeekScores:     map[string]float64{},
		OptimalFocusMinutes: defaultFocusMinutes,
	}

	hourly := make(map[int]*completionStats)
	daily := make(map[string]*completionStats)
	dayHour := make(map[string]map[int]*completionStats)

	for _, e := range history {
		if e.Kind != events.KindTaskCompleted {
			continue
		}
		completed := gjson.GetBytes(e.Payload, "completed").Bool()
		hour := e.Timestamp.Hour()
		day := e.Timestamp.Weekday().String()

		if hourly[hour] == nil {
			hourly[hour] = &completionStats{}
		}
		if daily[day] == nil {
			daily[day] = &completionStats{}
		}
		if dayHour[day] == nil {
			dayHour[day] = make(map[int]*completionStats)
		}
		if dayHour[day][hour] == nil {
			dayHour[day][hour] = &completionStats{}
		}

		for _, s := range []*completionStats{hourly[hour], daily[day], dayHour[day][hour]} {
			s.total++
			if completed {
				s.completed++
			}
		}
	}

	for hour, s := range hourly {
		p.HourlyScores[hour] = s.rate()
	}
	for day, s := range daily {
		p.DayOfWeekScores[day] = s.rate()
	}
	p.PeakWindows = findPeakWindows(dayHour)

	// Focus duration: typical actual length of completed work, bounded to a
	// plausible deep-work block.
	var focusSum float64
	var focusCount int
	for _, r := range records {
		if r.ActualMinutes > 0 && r.ActualMinutes <= 240 {
			focusSum += r.ActualMinutes
			focusCount++
		}
	}
	if focusCount >= 3 {
		p.OptimalFocusMinutes = util.Clamp(int(focusSum/float64(focusCount)+0.5), 15, 120)
	}

	return p
}

// findPeakWindows locates contiguous high-completion stretches per day.
// Windows are returned highest score first; ties break on day then start
// hour so output is deterministic.
func findPeakWindows(dayHour map[string]map[int]*completionStats) []ProductivityWindow {
	var windows []ProductivityWindow

	for day, hours := range dayHour {
		start := -1
		var scoreSum float64
		var span int

		flush := func(end int) {
			if start >= 0 {
				windows = append(windows, ProductivityWindow{
					Day:       day,
					StartHour: start,
					EndHour:   end,
					Score:     scoreSum / float64(span),
				})
			}
			start = -1
			scoreSum = 0
			span = 0
		}

		for hour := 0; hour < 24; hour++ {
			s := hours[hour]
			if s != nil && s.total >= peakWindowMinSamples && s.rate() >= peakWindowThreshold {
				if start < 0 {
					start = hour
				}
				scoreSum += s.rate()
				span++
				continue
			}
			flush(hour)
		}
		flush(24)
	}

	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Score != windows[j].Score {
			return windows[i].Score > windows[j].Score
		}
		if windows[i].Day != windows[j].Day {
			return windows[i].Day < windows[j].Day
		}
		return windows[i].StartHour < windows[j].StartHour
	})

	if len(windows) > maxPeakWindows {
		windows = windows[:maxPeakWindows]
	}
	return windows
}

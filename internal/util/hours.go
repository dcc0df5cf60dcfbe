// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import "time"

// HourInWindow reports whether hour falls inside the [start, end) window,
// handling windows that wrap midnight (start > end, e.g. 22 -> 6).
func HourInWindow(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// NextHourOccurrence returns the next time at which the wall clock reads
// the given hour (minute and second zeroed). If now is already past that
// hour today, the result rolls to tomorrow.
func NextHourOccurrence(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// HourDistance returns the circular distance between two hours on the
// 24-hour clock (always in [0, 12]).
func HourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

// LocalMidnight returns the start of the calendar day containing t.
func LocalMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Package calendar centralizes day and ISO-week boundary computation.
// Every tier of the engine goes through these helpers so rollover
// semantics stay consistent between counters, momentum, and brief gating.
package calendar

import (
	"fmt"
	"time"
)

// StartOfDay returns midnight of t's calendar day, in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfISOWeek returns midnight of the Monday beginning t's ISO week.
func StartOfISOWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the preceding Monday
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SameISOWeek reports whether a and b fall in the same ISO week-of-year.
func SameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

// DaysSince returns the number of whole days elapsed between a millisecond
// timestamp and now. Timestamps in the future yield 0.
func DaysSince(ms int64, now time.Time) int {
	then := time.UnixMilli(ms)
	if !then.Before(now) {
		return 0
	}
	return int(now.Sub(then).Hours() / 24)
}

// DayKey formats t as the canonical "2006-01-02" day key used for
// daily-brief gating and counter rollover.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekKey formats t's ISO week as "2006-W01", used for weekly counter
// rollover.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Package momentum derives the week-over-week trend in stage-transition
// volume. Pure functions over movement history; never touches storage.
package momentum

import (
	"time"

	"github.com/kittclouds/pulse/internal/store"
	"github.com/kittclouds/pulse/pkg/calendar"
)

// Direction classifies the week-over-week trend.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Ratio cutoffs for trend classification. Pinned for compatibility with
// downstream consumers.
const (
	upRatio   = 1.2
	downRatio = 0.8
)

// Report is the momentum picture for the ISO week containing now.
type Report struct {
	Direction         Direction `json:"direction"`
	MovementsThisWeek int       `json:"movementsThisWeek"`
	MovementsLastWeek int       `json:"movementsLastWeek"`
	CompletedThisWeek int       `json:"completedThisWeek"`
	CreatedThisWeek   int       `json:"createdThisWeek"`
}

// WeekSummary counts forward and backward transitions, and item creations,
// inside an arbitrary week window.
type WeekSummary struct {
	Forward  int `json:"forward"`
	Backward int `json:"backward"`
	Created  int `json:"created"`
}

// stageRank orders stages for forward/backward classification.
// Doing and waiting share a rank: moving between them is neither.
func stageRank(s store.Stage) int {
	switch s {
	case store.StageThinking:
		return 0
	case store.StageDecided:
		return 1
	case store.StageDoing, store.StageWaiting:
		return 2
	case store.StageDone:
		return 3
	default:
		return 0
	}
}

// Calculate builds the momentum report for the ISO week containing now.
// "Last week" is the immediately preceding ISO week.
func Calculate(movements []*store.Movement, items []*store.WorkItem, now time.Time) Report {
	lastWeek := now.AddDate(0, 0, -7)

	var report Report
	for _, m := range movements {
		at := time.UnixMilli(m.At)
		switch {
		case calendar.SameISOWeek(at, now):
			report.MovementsThisWeek++
			if m.To == store.StageDone {
				report.CompletedThisWeek++
			}
		case calendar.SameISOWeek(at, lastWeek):
			report.MovementsLastWeek++
		}
	}

	for _, item := range items {
		if calendar.SameISOWeek(time.UnixMilli(item.CreatedAt), now) {
			report.CreatedThisWeek++
		}
	}

	report.Direction = classify(report.MovementsThisWeek, report.MovementsLastWeek)
	return report
}

// classify maps this-week/last-week movement counts to a direction.
func classify(thisWeek, lastWeek int) Direction {
	if lastWeek == 0 {
		if thisWeek > 0 {
			return DirectionUp
		}
		return DirectionFlat
	}
	ratio := float64(thisWeek) / float64(lastWeek)
	switch {
	case ratio >= upRatio:
		return DirectionUp
	case ratio <= downRatio:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// Summarize counts forward/backward transitions and created items inside
// the ISO week containing ref.
func Summarize(movements []*store.Movement, items []*store.WorkItem, ref time.Time) WeekSummary {
	var summary WeekSummary
	for _, m := range movements {
		if !calendar.SameISOWeek(time.UnixMilli(m.At), ref) {
			continue
		}
		from, to := stageRank(m.From), stageRank(m.To)
		if to > from {
			summary.Forward++
		} else if to < from {
			summary.Backward++
		}
	}
	for _, item := range items {
		if calendar.SameISOWeek(time.UnixMilli(item.CreatedAt), ref) {
			summary.Created++
		}
	}
	return summary
}

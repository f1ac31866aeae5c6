package momentum

import (
	"fmt"
	"testing"
	"time"

	"github.com/kittclouds/pulse/internal/store"
)

// Friday 2026-08-28; its ISO week runs Mon 08-24 through Sun 08-30.
var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func movementsAt(ts time.Time, n int, to store.Stage) []*store.Movement {
	out := make([]*store.Movement, n)
	for i := range out {
		out[i] = &store.Movement{
			ID:     fmt.Sprintf("m%d-%d", ts.Unix(), i),
			ItemID: "item",
			From:   store.StageDoing,
			To:     to,
			At:     ts.UnixMilli(),
		}
	}
	return out
}

func TestDirectionClassification(t *testing.T) {
	thisWeek := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	lastWeek := time.Date(2026, 8, 18, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		thisN    int
		lastN    int
		want     Direction
	}{
		{"zero last week with activity", 5, 0, DirectionUp},
		{"no activity at all", 0, 0, DirectionFlat},
		{"ratio exactly 1.0", 10, 10, DirectionFlat},
		{"ratio exactly 1.2", 12, 10, DirectionUp},
		{"ratio 0.7", 7, 10, DirectionDown},
		{"ratio exactly 0.8", 8, 10, DirectionDown},
		{"ratio 1.1", 11, 10, DirectionFlat},
	}

	for _, tt := range tests {
		var movements []*store.Movement
		movements = append(movements, movementsAt(thisWeek, tt.thisN, store.StageDoing)...)
		movements = append(movements, movementsAt(lastWeek, tt.lastN, store.StageDoing)...)

		report := Calculate(movements, nil, testNow)
		if report.Direction != tt.want {
			t.Errorf("%s: direction = %q, want %q", tt.name, report.Direction, tt.want)
		}
		if report.MovementsThisWeek != tt.thisN || report.MovementsLastWeek != tt.lastN {
			t.Errorf("%s: counts = %d/%d, want %d/%d", tt.name,
				report.MovementsThisWeek, report.MovementsLastWeek, tt.thisN, tt.lastN)
		}
	}
}

func TestCompletedAndCreatedThisWeek(t *testing.T) {
	thisWeek := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	lastWeek := time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC)

	var movements []*store.Movement
	movements = append(movements, movementsAt(thisWeek, 2, store.StageDone)...)
	movements = append(movements, movementsAt(thisWeek, 3, store.StageWaiting)...)
	movements = append(movements, movementsAt(lastWeek, 4, store.StageDone)...)

	items := []*store.WorkItem{
		{ID: "i1", CreatedAt: thisWeek.UnixMilli()},
		{ID: "i2", CreatedAt: thisWeek.UnixMilli()},
		{ID: "i3", CreatedAt: lastWeek.UnixMilli()},
	}

	report := Calculate(movements, items, testNow)
	if report.CompletedThisWeek != 2 {
		t.Errorf("CompletedThisWeek = %d, want 2", report.CompletedThisWeek)
	}
	if report.CreatedThisWeek != 2 {
		t.Errorf("CreatedThisWeek = %d, want 2", report.CreatedThisWeek)
	}
	if report.MovementsThisWeek != 5 || report.MovementsLastWeek != 4 {
		t.Errorf("movement counts = %d/%d, want 5/4", report.MovementsThisWeek, report.MovementsLastWeek)
	}
}

func TestSummarizeForwardBackward(t *testing.T) {
	at := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC).UnixMilli()

	movements := []*store.Movement{
		{ID: "a", From: store.StageThinking, To: store.StageDecided, At: at}, // forward
		{ID: "b", From: store.StageDecided, To: store.StageDoing, At: at},    // forward
		{ID: "c", From: store.StageDoing, To: store.StageDone, At: at},       // forward
		{ID: "d", From: store.StageDoing, To: store.StageThinking, At: at},   // backward
		{ID: "e", From: store.StageDoing, To: store.StageWaiting, At: at},    // lateral: doing and waiting share a rank
		{ID: "f", From: store.StageDone, To: store.StageDoing, At: at},       // backward
	}

	summary := Summarize(movements, nil, testNow)
	if summary.Forward != 3 {
		t.Errorf("Forward = %d, want 3", summary.Forward)
	}
	if summary.Backward != 2 {
		t.Errorf("Backward = %d, want 2", summary.Backward)
	}
}

func TestSummarizeWindowExcludesOtherWeeks(t *testing.T) {
	lastWeek := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)

	movements := movementsAt(lastWeek, 3, store.StageDone)
	items := []*store.WorkItem{{ID: "i1", CreatedAt: lastWeek.UnixMilli()}}

	// Summarizing the current week sees none of last week's activity.
	current := Summarize(movements, items, testNow)
	if current.Forward != 0 || current.Backward != 0 || current.Created != 0 {
		t.Errorf("current week summary = %+v, want zeroes", current)
	}

	// Summarizing last week's window sees it all.
	prev := Summarize(movements, items, lastWeek)
	if prev.Forward != 3 || prev.Created != 1 {
		t.Errorf("last week summary = %+v, want Forward=3 Created=1", prev)
	}
}

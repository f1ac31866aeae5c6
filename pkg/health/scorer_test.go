package health

import (
	"fmt"
	"testing"
	"time"

	"github.com/kittclouds/pulse/internal/store"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func itemUpdatedDaysAgo(days int) int64 {
	return testNow.AddDate(0, 0, -days).UnixMilli()
}

func TestScoreBounds(t *testing.T) {
	// Worst case: short content, no owner, very stale decision with no
	// follow-up. Score must floor at 0, never go negative.
	worst := &store.WorkItem{
		ID:        "w1",
		Content:   "x",
		Category:  store.CategoryDecision,
		Stage:     store.StageDecided,
		UpdatedAt: itemUpdatedDaysAgo(30),
	}
	items := []*store.WorkItem{worst}

	if got := Score(worst, items, testNow); got != 0 {
		t.Errorf("worst-case score = %d, want 0", got)
	}

	fresh := &store.WorkItem{
		ID:        "w2",
		Content:   "write the quarterly report",
		Owner:     "sam",
		Category:  store.CategoryAction,
		Stage:     store.StageDoing,
		UpdatedAt: testNow.UnixMilli(),
	}
	if got := Score(fresh, []*store.WorkItem{fresh}, testNow); got != 100 {
		t.Errorf("fresh item score = %d, want 100", got)
	}
}

func TestScoreStalenessTiers(t *testing.T) {
	tests := []struct {
		daysAgo int
		want    int
	}{
		{0, 100},
		{2, 100},
		{3, 95},
		{7, 80},
		{14, 60},
		{15, 60}, // tiers are exclusive, not cumulative
	}

	for _, tt := range tests {
		item := &store.WorkItem{
			ID:        "s1",
			Content:   "a twenty character x", // 20 chars
			Owner:     "sam",
			Category:  store.CategoryAction,
			Stage:     store.StageDoing,
			UpdatedAt: itemUpdatedDaysAgo(tt.daysAgo),
		}
		if got := Score(item, []*store.WorkItem{item}, testNow); got != tt.want {
			t.Errorf("%d days stale: score = %d, want %d", tt.daysAgo, got, tt.want)
		}
	}
}

func TestScoreDoneExemptFromStaleness(t *testing.T) {
	item := &store.WorkItem{
		ID:        "d1",
		Content:   "shipped the onboarding flow",
		Owner:     "sam",
		Category:  store.CategoryAction,
		Stage:     store.StageDone,
		UpdatedAt: itemUpdatedDaysAgo(30),
	}
	if got := Score(item, []*store.WorkItem{item}, testNow); got != 100 {
		t.Errorf("done item score = %d, want 100", got)
	}
}

func TestScoreFifteenDaysStaleIsAtRisk(t *testing.T) {
	item := &store.WorkItem{
		ID:        "r1",
		Content:   "a twenty character x",
		Owner:     "sam",
		Category:  store.CategoryAction,
		Stage:     store.StageDoing,
		UpdatedAt: itemUpdatedDaysAgo(15),
	}
	score := Score(item, []*store.WorkItem{item}, testNow)
	if score != 60 {
		t.Fatalf("score = %d, want 60", score)
	}
	if got := StatusFor(score); got != StatusAtRisk {
		t.Errorf("status = %q, want %q", got, StatusAtRisk)
	}
}

func TestDecisionWithoutFollowUp(t *testing.T) {
	decision := &store.WorkItem{
		ID:        "dec1",
		Content:   "decided to migrate billing",
		Owner:     "sam",
		Category:  store.CategoryDecision,
		Stage:     store.StageDecided,
		CaptureID: "cap1",
		UpdatedAt: itemUpdatedDaysAgo(3),
	}

	// No sibling action: staleness −5 plus follow-up penalty −25.
	items := []*store.WorkItem{decision}
	if got := Score(decision, items, testNow); got != 70 {
		t.Errorf("score without follow-up = %d, want 70", got)
	}

	balls := DetectDroppedBalls(items, testNow)
	if len(balls) != 1 || balls[0].Reason != ReasonDecisionNoFollowUp {
		t.Fatalf("expected one decision_without_follow_up ball, got %+v", balls)
	}

	// A live action sharing the capture clears the penalty.
	action := &store.WorkItem{
		ID:        "act1",
		Content:   "draft the billing migration plan",
		Owner:     "sam",
		Category:  store.CategoryAction,
		Stage:     store.StageDoing,
		CaptureID: "cap1",
		UpdatedAt: testNow.UnixMilli(),
	}
	items = []*store.WorkItem{decision, action}
	if got := Score(decision, items, testNow); got != 95 {
		t.Errorf("score with follow-up = %d, want 95", got)
	}

	// A done action does not count as follow-up.
	action.Stage = store.StageDone
	if got := Score(decision, items, testNow); got != 70 {
		t.Errorf("score with done follow-up = %d, want 70", got)
	}
}

func TestStatusThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  Status
	}{
		{100, StatusStrong},
		{70, StatusStrong},
		{69, StatusAtRisk},
		{40, StatusAtRisk},
		{39, StatusStalled},
		{0, StatusStalled},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.score); got != tt.want {
			t.Errorf("StatusFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestDroppedBallStuckInStage(t *testing.T) {
	tests := []struct {
		stage   store.Stage
		daysAgo int
		flagged bool
	}{
		{store.StageThinking, 6, false},
		{store.StageThinking, 7, true},
		{store.StageDecided, 5, true},
		{store.StageDoing, 9, false},
		{store.StageDoing, 10, true},
		{store.StageWaiting, 5, true},
		{store.StageDone, 365, false}, // never flagged
	}

	for i, tt := range tests {
		item := &store.WorkItem{
			ID:        fmt.Sprintf("stuck%d", i),
			Content:   "waiting on the vendor response",
			Owner:     "sam",
			Category:  store.CategoryNote,
			Stage:     tt.stage,
			UpdatedAt: itemUpdatedDaysAgo(tt.daysAgo),
		}
		balls := DetectDroppedBalls([]*store.WorkItem{item}, testNow)
		if tt.flagged && (len(balls) != 1 || balls[0].Reason != ReasonStuckInStage) {
			t.Errorf("%s at %d days: expected stuck_in_stage, got %+v", tt.stage, tt.daysAgo, balls)
		}
		if !tt.flagged && len(balls) != 0 {
			t.Errorf("%s at %d days: expected no balls, got %+v", tt.stage, tt.daysAgo, balls)
		}
	}
}

func TestDroppedBallOpenCommitment(t *testing.T) {
	tests := []struct {
		owner   string
		daysAgo int
		flagged bool
	}{
		{"me", 7, true},
		{"I", 7, true},
		{"note to myself", 7, true},
		{"me", 6, false},
		{"alex", 30, false}, // someone else's commitment; waiting threshold not hit either
	}

	for i, tt := range tests {
		item := &store.WorkItem{
			ID:        fmt.Sprintf("commit%d", i),
			Content:   "promised to send the revised deck",
			Owner:     tt.owner,
			Category:  store.CategoryCommitment,
			Stage:     store.StageDoing,
			UpdatedAt: itemUpdatedDaysAgo(tt.daysAgo),
		}
		balls := DetectDroppedBalls([]*store.WorkItem{item}, testNow)

		var found bool
		for _, b := range balls {
			if b.Reason == ReasonOpenCommitment {
				found = true
			}
		}
		if found != tt.flagged {
			t.Errorf("owner %q at %d days: open_commitment flagged=%v, want %v", tt.owner, tt.daysAgo, found, tt.flagged)
		}
	}
}

func TestDroppedBallDeduplication(t *testing.T) {
	// Qualifies as decision-without-follow-up AND stuck-in-stage AND would
	// be an old self commitment if it were one. Must appear exactly once,
	// with the first reason in evaluation order.
	item := &store.WorkItem{
		ID:        "multi1",
		Content:   "decided to sunset the legacy API",
		Owner:     "me",
		Category:  store.CategoryDecision,
		Stage:     store.StageDecided,
		CaptureID: "cap9",
		UpdatedAt: itemUpdatedDaysAgo(20),
	}

	balls := DetectDroppedBalls([]*store.WorkItem{item}, testNow)
	if len(balls) != 1 {
		t.Fatalf("expected exactly 1 dropped ball, got %d", len(balls))
	}
	if balls[0].Reason != ReasonDecisionNoFollowUp {
		t.Errorf("reason = %q, want first matching reason %q", balls[0].Reason, ReasonDecisionNoFollowUp)
	}
	if balls[0].DaysSince != 20 {
		t.Errorf("DaysSince = %d, want 20", balls[0].DaysSince)
	}
}

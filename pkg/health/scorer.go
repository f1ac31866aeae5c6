// Package health scores work items and flags dropped balls.
// All functions are pure: they take the item set and a clock value and
// never touch storage, so they are safe to call from concurrent readers.
package health

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kittclouds/pulse/internal/store"
	"github.com/kittclouds/pulse/pkg/calendar"
)

// Status buckets a health score.
type Status string

const (
	StatusStrong  Status = "strong"
	StatusAtRisk  Status = "at_risk"
	StatusStalled Status = "stalled"
)

// Reason tags why an item was flagged as a dropped ball.
type Reason string

const (
	ReasonDecisionNoFollowUp Reason = "decision_without_follow_up"
	ReasonStuckInStage       Reason = "stuck_in_stage"
	ReasonOpenCommitment     Reason = "open_commitment"
)

// DroppedBall is a work item flagged as silently stalled.
type DroppedBall struct {
	Item      *store.WorkItem
	Reason    Reason
	DaysSince int
}

// Scoring penalties. The score starts at 100 and only loses points.
const (
	penaltyShortContent = 20
	penaltyNoOwner      = 15
	penaltyStale14      = 40
	penaltyStale7       = 20
	penaltyStale3       = 5
	penaltyNoFollowUp   = 25

	minContentLength = 10
)

// stuckThresholds is the per-stage day count after which an untouched item
// counts as stuck. Done items are never stuck.
var stuckThresholds = map[store.Stage]int{
	store.StageThinking: 7,
	store.StageDecided:  5,
	store.StageDoing:    10,
	store.StageWaiting:  5,
}

const defaultStuckThreshold = 7

// Score computes a 0..100 health score for item. Sibling items are needed
// to detect decisions that never grew a follow-up action.
func Score(item *store.WorkItem, all []*store.WorkItem, now time.Time) int {
	score := 100

	if utf8.RuneCountInString(item.Content) < minContentLength {
		score -= penaltyShortContent
	}
	if strings.TrimSpace(item.Owner) == "" {
		score -= penaltyNoOwner
	}

	// Staleness tiers are mutually exclusive; done items are exempt.
	if item.Stage != store.StageDone {
		switch days := calendar.DaysSince(item.UpdatedAt, now); {
		case days >= 14:
			score -= penaltyStale14
		case days >= 7:
			score -= penaltyStale7
		case days >= 3:
			score -= penaltyStale3
		}
	}

	if decisionWithoutFollowUp(item, all, now) {
		score -= penaltyNoFollowUp
	}

	if score < 0 {
		score = 0
	}
	return score
}

// StatusFor buckets a score into strong / at_risk / stalled.
func StatusFor(score int) Status {
	switch {
	case score >= 70:
		return StatusStrong
	case score >= 40:
		return StatusAtRisk
	default:
		return StatusStalled
	}
}

// DetectDroppedBalls scans all non-done items for the three dropped-ball
// conditions. An item appears at most once even when several reasons apply;
// the first matching reason in evaluation order wins.
func DetectDroppedBalls(all []*store.WorkItem, now time.Time) []DroppedBall {
	var balls []DroppedBall
	seen := make(map[string]bool, len(all))

	for _, item := range all {
		if item.Stage == store.StageDone || seen[item.ID] {
			continue
		}

		days := calendar.DaysSince(item.UpdatedAt, now)

		// 1. Decision without follow-up action.
		if decisionWithoutFollowUp(item, all, now) {
			balls = append(balls, DroppedBall{Item: item, Reason: ReasonDecisionNoFollowUp, DaysSince: days})
			seen[item.ID] = true
			continue
		}

		// 2. Stuck in stage past the per-stage threshold.
		threshold, ok := stuckThresholds[item.Stage]
		if !ok {
			threshold = defaultStuckThreshold
		}
		if days >= threshold {
			balls = append(balls, DroppedBall{Item: item, Reason: ReasonStuckInStage, DaysSince: days})
			seen[item.ID] = true
			continue
		}

		// 3. Open self-owned commitment.
		if item.Category == store.CategoryCommitment && isSelfOwner(item.Owner) && days >= 7 {
			balls = append(balls, DroppedBall{Item: item, Reason: ReasonOpenCommitment, DaysSince: days})
			seen[item.ID] = true
		}
	}

	return balls
}

// decisionWithoutFollowUp reports whether item is a decision that sat in
// the decided stage for 3+ days with no non-done action item sharing its
// originating capture.
func decisionWithoutFollowUp(item *store.WorkItem, all []*store.WorkItem, now time.Time) bool {
	if item.Category != store.CategoryDecision || item.Stage != store.StageDecided {
		return false
	}
	if calendar.DaysSince(item.UpdatedAt, now) < 3 {
		return false
	}
	if item.CaptureID == "" {
		// No originating capture means no sibling can be linked to it.
		return true
	}
	for _, other := range all {
		if other.ID == item.ID {
			continue
		}
		if other.Category == store.CategoryAction &&
			other.CaptureID == item.CaptureID &&
			other.Stage != store.StageDone {
			return false
		}
	}
	return true
}

// isSelfOwner matches the fixed self-ownership synonym set. Documented
// behavior: a plain substring/synonym check, no broader identity model.
func isSelfOwner(owner string) bool {
	o := strings.ToLower(strings.TrimSpace(owner))
	return o == "me" || o == "i" || strings.Contains(o, "myself")
}

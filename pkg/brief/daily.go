package brief

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/kittclouds/pulse/internal/store"
	"github.com/kittclouds/pulse/pkg/aibrief"
	"github.com/kittclouds/pulse/pkg/calendar"
	"github.com/kittclouds/pulse/pkg/health"
	"github.com/kittclouds/pulse/pkg/momentum"
)

// ErrGenerationInFlight is returned when a daily generation is already
// running; callers retry later instead of triggering a second one.
var ErrGenerationInFlight = errors.New("brief: daily generation already in progress")

// recentItemLimit caps how many recent items go into the AI context.
const recentItemLimit = 10

// DailyBrief is Tier 3: return today's brief if it exists, otherwise
// generate it through the AI service. Existence is confirmed by the fast
// local marker AND a query against persisted records — the store is
// authoritative, so a lost marker (reinstall) never causes a duplicate.
func (e *Engine) DailyBrief(ctx context.Context) (*store.DailyBrief, error) {
	now := e.now()
	today := calendar.DayKey(now)

	// Fast local check: this process already generated today's brief.
	e.mu.Lock()
	if e.dailyMarker == today && e.dailyCache != nil && e.dailyCache.Date == today {
		cached := e.dailyCache
		e.mu.Unlock()
		return cached, nil
	}
	e.mu.Unlock()

	// Authoritative check against persisted records. This catches a lost
	// local marker (e.g. after reinstall) so no duplicate is generated.
	b, err := e.store.GetDailyBrief(today)
	if err == nil {
		e.mu.Lock()
		e.dailyMarker = today
		e.dailyCache = b
		e.mu.Unlock()
		return b, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return e.generateDaily(ctx, now)
}

// RegenerateDailyBrief clears the daily marker and re-runs Tier 3
// unconditionally. Used to recover after an upstream failure; today's
// existing brief, if any, is replaced.
func (e *Engine) RegenerateDailyBrief(ctx context.Context) (*store.DailyBrief, error) {
	e.mu.Lock()
	e.dailyMarker = ""
	e.dailyCache = nil
	e.mu.Unlock()
	return e.generateDaily(ctx, e.now())
}

// generateDaily assembles the textual context and calls the AI service.
// Failures leave no partial state: nothing is persisted and the marker is
// untouched, so an explicit retry starts clean.
func (e *Engine) generateDaily(ctx context.Context, now time.Time) (*store.DailyBrief, error) {
	if e.ai == nil || !e.ai.IsConfigured() {
		return nil, aibrief.ErrNoCredential
	}

	e.mu.Lock()
	if e.dailyInFlight {
		e.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	e.dailyInFlight = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.dailyInFlight = false
		e.mu.Unlock()
	}()

	items, err := e.store.ListItems()
	if err != nil {
		return nil, err
	}
	movements, err := e.store.ListMovements(0)
	if err != nil {
		return nil, err
	}
	projects, err := e.store.ListProjects(false)
	if err != nil {
		return nil, err
	}

	dc, metrics := assembleDailyContext(items, movements, projects, now)

	result, err := e.ai.GenerateDailyBrief(ctx, dc)
	if err != nil {
		return nil, err
	}

	today := calendar.DayKey(now)
	brief := &store.DailyBrief{
		Date:       today,
		Narrative:  result.Narrative,
		Highlights: result.Highlights,
		Priorities: result.Priorities,
		Warnings:   result.Warnings,
		Metrics:    metrics,
		CreatedAt:  now.UnixMilli(),
	}
	if err := e.store.SaveDailyBrief(brief); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.dailyMarker = today
	e.dailyCache = brief
	e.mu.Unlock()
	return brief, nil
}

// assembleDailyContext prepares the AI prompt input and the numeric
// snapshot in one pass. Dropped balls and scores are computed once and
// shared between the prompt and the metrics.
func assembleDailyContext(items []*store.WorkItem, movements []*store.Movement, projects []*store.Project, now time.Time) (aibrief.DailyContext, store.BriefMetrics) {
	report := momentum.Calculate(movements, items, now)
	dropped := health.DetectDroppedBalls(items, now)

	yesterday := now.AddDate(0, 0, -1)

	var dc aibrief.DailyContext
	dc.ByStage = make(map[store.Stage][]*store.WorkItem)
	dc.Direction = string(report.Direction)
	dc.MovementsThisWeek = report.MovementsThisWeek
	dc.MovementsLastWeek = report.MovementsLastWeek
	dc.CompletedThisWeek = report.CompletedThisWeek
	dc.CreatedThisWeek = report.CreatedThisWeek

	var metrics store.BriefMetrics
	metrics.Momentum = string(report.Direction)

	for _, item := range items {
		created := time.UnixMilli(item.CreatedAt)
		if calendar.SameDay(created, yesterday) {
			metrics.NotesYesterday++
		}
		if calendar.SameISOWeek(created, now) {
			metrics.NotesThisWeek++
		}
		if item.Stage == store.StageDone {
			continue
		}

		metrics.OpenCount++
		dc.ByStage[item.Stage] = append(dc.ByStage[item.Stage], item)
		if item.Category == store.CategoryCommitment {
			dc.Commitments = append(dc.Commitments, item)
		}
		if health.StatusFor(health.Score(item, items, now)) == health.StatusStalled {
			metrics.StalledCount++
		}
	}

	for _, d := range dropped {
		dc.Dropped = append(dc.Dropped, aibrief.DroppedLine{
			Content: d.Item.Content,
			Reason:  string(d.Reason),
			Days:    d.DaysSince,
		})
	}

	for _, p := range projects {
		if calendar.DaysSince(p.LastActivity, now) <= activeProjectDays {
			metrics.ActiveProjects++
		}
	}

	recent := make([]*store.WorkItem, len(items))
	copy(recent, items)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt > recent[j].CreatedAt
	})
	if len(recent) > recentItemLimit {
		recent = recent[:recentItemLimit]
	}
	dc.Recent = recent

	return dc, metrics
}

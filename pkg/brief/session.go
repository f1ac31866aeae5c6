package brief

import (
	"time"

	"github.com/kittclouds/pulse/internal/store"
	"github.com/kittclouds/pulse/pkg/calendar"
	"github.com/kittclouds/pulse/pkg/health"
	"github.com/kittclouds/pulse/pkg/momentum"
)

// Session brief staleness windows. Within soft TTL a clean cache is served
// as-is; past hard TTL a rebuild is forced no matter what.
const (
	sessionSoftTTL = 15 * time.Minute
	sessionHardTTL = 60 * time.Minute
)

// activeProjectDays is how recently a project must have seen activity to
// count as active.
const activeProjectDays = 14

// SessionBrief is Tier 2: serve the cached brief when it is still valid,
// otherwise rebuild it from the scorer, momentum calculator, and project
// ranking. A caller arriving while a rebuild is in flight gets the last
// good cache instead of blocking or starting a second rebuild.
func (e *Engine) SessionBrief() (*store.SessionBrief, error) {
	e.mu.Lock()
	now := e.now()
	e.rolloverLocked(now)

	if e.rebuildInFlight {
		cached := e.session
		e.mu.Unlock()
		return cached, nil
	}

	count, err := e.store.CountItems()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	if cached := e.session; cached != nil {
		age := now.Sub(time.UnixMilli(cached.GeneratedAt))
		clean := !e.sessionNeedsRefresh && cached.ItemCount == count
		if age <= sessionHardTTL && age <= sessionSoftTTL && clean {
			e.mu.Unlock()
			return cached, nil
		}
	}

	// The refresh flag is consumed here, before the rebuild starts: an
	// Invalidate arriving mid-rebuild sets it again and is not lost when
	// the rebuild completes.
	e.rebuildInFlight = true
	e.sessionNeedsRefresh = false
	e.mu.Unlock()

	built, err := e.buildSessionBrief(now)

	e.mu.Lock()
	e.rebuildInFlight = false
	if err != nil {
		// Prior cache stays untouched on failure; the refresh signal is
		// restored so the next query retries.
		e.sessionNeedsRefresh = true
		e.mu.Unlock()
		return nil, err
	}

	// Atomic swap: readers only ever see the old or the new brief; the
	// note-count watermark travels inside it.
	e.session = built
	e.counters = built.Counters
	saveErr := e.saveSnapshotLocked(now)
	e.mu.Unlock()
	if saveErr != nil {
		return nil, saveErr
	}
	return built, nil
}

// buildSessionBrief recomputes the full session picture. The scorer runs
// once over all non-done items; its results feed the stalled summaries,
// the warnings, and the aggregate counts without being recomputed.
func (e *Engine) buildSessionBrief(now time.Time) (*store.SessionBrief, error) {
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

	var counters store.Counters
	var stalled []store.StalledItem

	for _, item := range items {
		if calendar.SameDay(time.UnixMilli(item.CreatedAt), now) {
			counters.NotesToday++
		}
		if calendar.SameISOWeek(time.UnixMilli(item.CreatedAt), now) {
			counters.NotesThisWeek++
		}
		if isOpenTodo(item) {
			counters.OpenTodos++
		}
		if item.Stage == store.StageDone {
			continue
		}

		score := health.Score(item, items, now)
		switch health.StatusFor(score) {
		case health.StatusStalled:
			counters.Stalled++
			counters.NeedsAttention++
			stalled = append(stalled, store.StalledItem{
				ItemID:   item.ID,
				Content:  item.Content,
				Score:    score,
				DaysIdle: calendar.DaysSince(item.UpdatedAt, now),
			})
		case health.StatusAtRisk:
			counters.NeedsAttention++
		}
	}

	dropped := health.DetectDroppedBalls(items, now)
	warnings := make([]store.Warning, 0, len(dropped))
	for _, d := range dropped {
		warnings = append(warnings, store.Warning{
			Category: string(d.Reason),
			Content:  d.Item.Content,
			Days:     d.DaysSince,
		})
	}

	var top []store.ProjectSummary
	for _, p := range projects {
		if calendar.DaysSince(p.LastActivity, now) <= activeProjectDays {
			counters.ActiveProjects++
		}
		if len(top) < e.topProjects {
			top = append(top, store.ProjectSummary{
				ProjectID:    p.ID,
				Name:         p.Name,
				NoteCount:    p.NoteCount,
				LastActivity: p.LastActivity,
			})
		}
	}

	report := momentum.Calculate(movements, items, now)

	built := &store.SessionBrief{
		GeneratedAt:  now.UnixMilli(),
		ItemCount:    len(items),
		Momentum:     string(report.Direction),
		TopProjects:  top,
		StalledItems: stalled,
		Warnings:     warnings,
		Counters:     counters,
	}

	if err := e.store.SaveSessionBrief(built); err != nil {
		return nil, err
	}
	return built, nil
}

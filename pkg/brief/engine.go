// Package brief is the tiered intelligence orchestrator. It owns the
// counters and the cached session/daily briefs, decides when each tier
// must be rebuilt, and composes the scorer, momentum calculator, and
// project matcher into the attention picture served to hosts.
//
// Three refresh tiers with distinct costs:
//   - Tier 1: instant counter bumps on every capture.
//   - Tier 2: session brief, rebuilt on staleness or invalidation.
//   - Tier 3: once-daily AI-authored brief.
package brief

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kittclouds/pulse/internal/store"
	"github.com/kittclouds/pulse/pkg/aibrief"
	"github.com/kittclouds/pulse/pkg/calendar"
)

// AIClient is the slice of the AI service the engine needs. The engine
// tolerates it being nil or unconfigured: everything local keeps working.
type AIClient interface {
	IsConfigured() bool
	GenerateDailyBrief(ctx context.Context, dc aibrief.DailyContext) (*aibrief.BriefResult, error)
	ResolveProject(ctx context.Context, text string, names []string) (string, error)
}

// Config holds engine settings supplied by the host application.
type Config struct {
	Store store.Storer
	AI    AIClient         // optional
	Now   func() time.Time // optional, for tests
	// TopProjects is how many projects a session brief ranks. Defaults to 3.
	TopProjects int
}

// Engine is the single logical owner of mutable cache and counter state.
// All mutations go through its mutex; the pure scorer/momentum/matcher
// calls it makes need no synchronization of their own.
type Engine struct {
	store       store.Storer
	ai          AIClient
	now         func() time.Time
	topProjects int

	mu       sync.Mutex
	counters store.Counters
	day      string
	week     string

	session             *store.SessionBrief
	sessionNeedsRefresh bool
	rebuildInFlight     bool

	dailyMarker   string
	dailyCache    *store.DailyBrief
	dailyInFlight bool
}

// NewEngine constructs an engine around the given store. Cold start loads
// the persisted counter snapshot and the last session brief so the host
// has values before the first recompute.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("brief: store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TopProjects <= 0 {
		cfg.TopProjects = 3
	}

	e := &Engine{
		store:       cfg.Store,
		ai:          cfg.AI,
		now:         cfg.Now,
		topProjects: cfg.TopProjects,
	}

	now := e.now()
	e.day = calendar.DayKey(now)
	e.week = calendar.WeekKey(now)

	snap, err := cfg.Store.LoadCounterSnapshot()
	switch {
	case err == nil:
		e.counters = snap.Counters
		if snap.Day != "" {
			e.day = snap.Day
		}
		if snap.Week != "" {
			e.week = snap.Week
		}
	case errors.Is(err, store.ErrNotFound):
		// genuinely cold start
	default:
		return nil, fmt.Errorf("brief: failed to load counter snapshot: %w", err)
	}

	session, err := cfg.Store.LoadSessionBrief()
	switch {
	case err == nil:
		e.session = session
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, fmt.Errorf("brief: failed to load session brief: %w", err)
	}

	e.rolloverLocked(now)
	return e, nil
}

// RecordCapture is Tier 1: synchronously bump date-scoped counters for a
// newly captured item and mark the session brief for refresh. No derived
// state is recomputed here.
func (e *Engine) RecordCapture(item *store.WorkItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.rolloverLocked(now)

	if item.CreatedAt == 0 {
		item.CreatedAt = now.UnixMilli()
	}
	if item.UpdatedAt == 0 {
		item.UpdatedAt = item.CreatedAt
	}
	if err := e.store.CreateItem(item); err != nil {
		return err
	}

	e.counters.NotesToday++
	e.counters.NotesThisWeek++
	if isOpenTodo(item) {
		e.counters.OpenTodos++
	}
	e.sessionNeedsRefresh = true
	return e.saveSnapshotLocked(now)
}

// MoveItem records a stage transition for an item: an immutable movement
// row plus the item's new stage. Marks the session brief for refresh.
func (e *Engine) MoveItem(itemID string, to store.Stage) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.rolloverLocked(now)
	to = store.ParseStage(string(to))

	item, err := e.store.GetItem(itemID)
	if err != nil {
		return err
	}
	if item.Stage == to {
		return nil
	}

	if err := e.store.RecordMovement(&store.Movement{
		ItemID: itemID,
		From:   item.Stage,
		To:     to,
		At:     now.UnixMilli(),
	}); err != nil {
		return err
	}

	item.Stage = to
	item.UpdatedAt = now.UnixMilli()
	if err := e.store.UpdateItem(item); err != nil {
		return err
	}

	e.sessionNeedsRefresh = true
	return e.saveSnapshotLocked(now)
}

// Counters returns the current instant counters, after any day/week
// rollover.
func (e *Engine) Counters() store.Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rolloverLocked(e.now())
	return e.counters
}

// Invalidate marks the session brief for rebuild on the next query.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionNeedsRefresh = true
}

// rolloverLocked resets date-scoped counters when the calendar day or ISO
// week changed since they were accumulated. Other counters are untouched.
func (e *Engine) rolloverLocked(now time.Time) {
	if day := calendar.DayKey(now); day != e.day {
		e.counters.NotesToday = 0
		e.day = day
	}
	if week := calendar.WeekKey(now); week != e.week {
		e.counters.NotesThisWeek = 0
		e.week = week
	}
}

func (e *Engine) saveSnapshotLocked(now time.Time) error {
	return e.store.SaveCounterSnapshot(&store.CounterSnapshot{
		Counters: e.counters,
		Day:      e.day,
		Week:     e.week,
		SavedAt:  now.UnixMilli(),
	})
}

func isOpenTodo(item *store.WorkItem) bool {
	if item.Stage == store.StageDone {
		return false
	}
	return item.Category == store.CategoryAction || item.Category == store.CategoryCommitment
}

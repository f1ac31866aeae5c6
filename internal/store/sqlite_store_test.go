package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestItemCRUD(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UnixMilli()

	item := &WorkItem{
		Content:   "draft the proposal",
		Category:  CategoryAction,
		Stage:     StageDoing,
		Owner:     "me",
		CaptureID: "cap1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateItem(item))
	require.NotEmpty(t, item.ID)

	got, err := s.GetItem(item.ID)
	require.NoError(t, err)
	require.Equal(t, "draft the proposal", got.Content)
	require.Equal(t, CategoryAction, got.Category)
	require.Equal(t, StageDoing, got.Stage)
	require.Equal(t, "me", got.Owner)
	require.Equal(t, "cap1", got.CaptureID)

	got.Stage = StageDone
	got.UpdatedAt = now + 1000
	require.NoError(t, s.UpdateItem(got))

	again, err := s.GetItem(item.ID)
	require.NoError(t, err)
	require.Equal(t, StageDone, again.Stage)
	require.Equal(t, now+1000, again.UpdatedAt)

	count, err := s.CountItems()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestGetItemNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetItem("missing")
	require.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateItem(&WorkItem{ID: "missing", Content: "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateItemKeepsUpdatedAtMonotonic(t *testing.T) {
	s := newTestStore(t)

	item := &WorkItem{Content: "x", CreatedAt: 1000, UpdatedAt: 5000}
	require.NoError(t, s.CreateItem(item))

	item.UpdatedAt = 2000 // stale write
	require.NoError(t, s.UpdateItem(item))

	got, err := s.GetItem(item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5000), got.UpdatedAt)
}

func TestCreateItemDefaultsUnknownEnums(t *testing.T) {
	s := newTestStore(t)

	item := &WorkItem{Content: "x", Category: "bogus", Stage: "nowhere"}
	require.NoError(t, s.CreateItem(item))

	got, err := s.GetItem(item.ID)
	require.NoError(t, err)
	require.Equal(t, CategoryNote, got.Category)
	require.Equal(t, StageThinking, got.Stage)
}

func TestListItemsOrderedByCreation(t *testing.T) {
	s := newTestStore(t)
	for i, content := range []string{"first", "second", "third"} {
		require.NoError(t, s.CreateItem(&WorkItem{Content: content, CreatedAt: int64(i * 1000)}))
	}

	items, err := s.ListItems()
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "first", items[0].Content)
	require.Equal(t, "third", items[2].Content)
}

func TestMovements(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordMovement(&Movement{ItemID: "i1", From: StageThinking, To: StageDoing, At: 1000}))
	require.NoError(t, s.RecordMovement(&Movement{ItemID: "i1", From: StageDoing, To: StageDone, At: 2000}))

	all, err := s.ListMovements(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, StageThinking, all[0].From)
	require.Equal(t, StageDone, all[1].To)

	recent, err := s.ListMovements(1500)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, int64(2000), recent[0].At)
}

func TestProjectUpsertAndList(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UnixMilli()

	quiet := &Project{Name: "Quiet", LastActivity: now - 5000, CreatedAt: now, UpdatedAt: now}
	busy := &Project{Name: "Busy", Aliases: []string{"b"}, LastActivity: now, CreatedAt: now, UpdatedAt: now}
	archived := &Project{Name: "Old", Archived: true, CreatedAt: now, UpdatedAt: now}
	for _, p := range []*Project{quiet, busy, archived} {
		require.NoError(t, s.UpsertProject(p))
	}

	active, err := s.ListProjects(false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "Busy", active[0].Name, "most recent activity first")
	require.Equal(t, []string{"b"}, active[0].Aliases)

	all, err := s.ListProjects(true)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Upsert with the same ID replaces.
	busy.Name = "Busier"
	require.NoError(t, s.UpsertProject(busy))
	got, err := s.GetProject(busy.ID)
	require.NoError(t, err)
	require.Equal(t, "Busier", got.Name)
}

func TestAppendProjectAliasesDedupes(t *testing.T) {
	s := newTestStore(t)

	p := &Project{Name: "Acme", Aliases: []string{"acme"}}
	require.NoError(t, s.UpsertProject(p))

	require.NoError(t, s.AppendProjectAliases(p.ID, []string{"ACME", "acme corp", " acme corp ", "ac"}))

	got, err := s.GetProject(p.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"acme", "acme corp", "ac"}, got.Aliases)

	// Appending nothing new is a no-op.
	require.NoError(t, s.AppendProjectAliases(p.ID, []string{"Acme Corp"}))
	got, err = s.GetProject(p.ID)
	require.NoError(t, err)
	require.Len(t, got.Aliases, 3)
}

func TestTouchProject(t *testing.T) {
	s := newTestStore(t)

	p := &Project{Name: "Acme", LastActivity: 5000}
	require.NoError(t, s.UpsertProject(p))

	require.NoError(t, s.TouchProject(p.ID, 9000))
	got, err := s.GetProject(p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(9000), got.LastActivity)
	require.Equal(t, 1, got.NoteCount)

	// An older timestamp never rewinds activity.
	require.NoError(t, s.TouchProject(p.ID, 7000))
	got, err = s.GetProject(p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(9000), got.LastActivity)
	require.Equal(t, 2, got.NoteCount)

	require.ErrorIs(t, s.TouchProject("missing", 1), ErrNotFound)
}

func TestSessionBriefRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadSessionBrief()
	require.ErrorIs(t, err, ErrNotFound)

	brief := &SessionBrief{
		GeneratedAt: 12345,
		ItemCount:   7,
		Momentum:    "up",
		TopProjects: []ProjectSummary{{ProjectID: "p1", Name: "Acme", NoteCount: 4}},
		Counters:    Counters{OpenTodos: 3, Stalled: 1},
	}
	require.NoError(t, s.SaveSessionBrief(brief))

	got, err := s.LoadSessionBrief()
	require.NoError(t, err)
	require.Equal(t, brief.GeneratedAt, got.GeneratedAt)
	require.Equal(t, brief.ItemCount, got.ItemCount)
	require.Equal(t, "up", got.Momentum)
	require.Equal(t, 3, got.Counters.OpenTodos)

	// Saving again replaces wholesale.
	brief.ItemCount = 8
	require.NoError(t, s.SaveSessionBrief(brief))
	got, err = s.LoadSessionBrief()
	require.NoError(t, err)
	require.Equal(t, 8, got.ItemCount)
}

func TestCounterSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadCounterSnapshot()
	require.ErrorIs(t, err, ErrNotFound)

	snap := &CounterSnapshot{
		Counters: Counters{NotesToday: 2, NotesThisWeek: 9},
		Day:      "2026-08-28",
		Week:     "2026-W35",
		SavedAt:  999,
	}
	require.NoError(t, s.SaveCounterSnapshot(snap))

	got, err := s.LoadCounterSnapshot()
	require.NoError(t, err)
	require.Equal(t, snap.Counters, got.Counters)
	require.Equal(t, "2026-08-28", got.Day)
	require.Equal(t, "2026-W35", got.Week)
}

func TestDailyBriefByDate(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetDailyBrief("2026-08-28")
	require.ErrorIs(t, err, ErrNotFound)

	brief := &DailyBrief{
		Date:      "2026-08-28",
		Narrative: "Steady progress.",
		Metrics:   BriefMetrics{OpenCount: 4, Momentum: "flat"},
		CreatedAt: 1000,
	}
	require.NoError(t, s.SaveDailyBrief(brief))
	require.NotEmpty(t, brief.ID)

	got, err := s.GetDailyBrief("2026-08-28")
	require.NoError(t, err)
	require.Equal(t, "Steady progress.", got.Narrative)
	require.Equal(t, 4, got.Metrics.OpenCount)

	// One brief per date: a second save replaces the payload.
	brief.Narrative = "Revised."
	require.NoError(t, s.SaveDailyBrief(brief))
	got, err = s.GetDailyBrief("2026-08-28")
	require.NoError(t, err)
	require.Equal(t, "Revised.", got.Narrative)

	_, err = s.GetDailyBrief("2026-08-27")
	require.ErrorIs(t, err, ErrNotFound)
}

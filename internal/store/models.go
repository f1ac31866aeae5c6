// Package store provides SQLite-backed persistence for the progress engine.
// It holds work items, their stage movements, projects, and the cached brief
// artifacts owned by the orchestrator.
package store

// Category classifies what kind of thought a work item captures.
type Category string

const (
	CategoryIdea       Category = "idea"
	CategoryDecision   Category = "decision"
	CategoryAction     Category = "action"
	CategoryCommitment Category = "commitment"
	CategoryNote       Category = "note"
)

// Stage is the workflow stage of a work item.
type Stage string

const (
	StageThinking Stage = "thinking"
	StageDecided  Stage = "decided"
	StageDoing    Stage = "doing"
	StageWaiting  Stage = "waiting"
	StageDone     Stage = "done"
)

// ParseCategory normalizes a raw category string. Unknown or legacy values
// fall back to CategoryNote.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryIdea, CategoryDecision, CategoryAction, CategoryCommitment, CategoryNote:
		return Category(s)
	default:
		return CategoryNote
	}
}

// ParseStage normalizes a raw stage string. Unknown or legacy values fall
// back to StageThinking.
func ParseStage(s string) Stage {
	switch Stage(s) {
	case StageThinking, StageDecided, StageDoing, StageWaiting, StageDone:
		return Stage(s)
	default:
		return StageThinking
	}
}

// WorkItem is a single captured idea, decision, action, commitment, or note.
type WorkItem struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Category  Category `json:"category"`
	Stage     Stage    `json:"stage"`
	Owner     string   `json:"owner,omitempty"`
	Deadline  string   `json:"deadline,omitempty"` // unstructured text, never parsed
	CaptureID string   `json:"captureId,omitempty"`
	ProjectID string   `json:"projectId,omitempty"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// Movement is an immutable record of a work item transitioning between
// stages. Movements are append-only and never mutated after creation.
type Movement struct {
	ID     string `json:"id"`
	ItemID string `json:"itemId"`
	From   Stage  `json:"from"`
	To     Stage  `json:"to"`
	At     int64  `json:"at"`
}

// Project is a bucket that captured items are matched into.
// Aliases only ever grow; the learning step appends, never removes.
type Project struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Aliases      []string `json:"aliases"`
	Archived     bool     `json:"archived"`
	LastActivity int64    `json:"lastActivity"`
	NoteCount    int      `json:"noteCount"`
	CreatedAt    int64    `json:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt"`
}

// Counters are the derived integers shown instantly in the host UI.
// Date-scoped fields reset on day/week rollover.
type Counters struct {
	OpenTodos      int `json:"openTodos"`
	NeedsAttention int `json:"needsAttention"`
	NotesToday     int `json:"notesToday"`
	NotesThisWeek  int `json:"notesThisWeek"`
	ActiveProjects int `json:"activeProjects"`
	Stalled        int `json:"stalled"`
}

// CounterSnapshot persists counters flat so a cold start has values before
// the first recompute. Day and Week record the calendar scope the date
// counters were accumulated under.
type CounterSnapshot struct {
	Counters Counters `json:"counters"`
	Day      string   `json:"day"`  // "2006-01-02"
	Week     string   `json:"week"` // ISO "2006-W01"
	SavedAt  int64    `json:"savedAt"`
}

// ProjectSummary is a ranked project entry inside a session brief.
type ProjectSummary struct {
	ProjectID    string `json:"projectId"`
	Name         string `json:"name"`
	NoteCount    int    `json:"noteCount"`
	LastActivity int64  `json:"lastActivity"`
}

// StalledItem summarizes a work item whose health score fell below the
// stalled threshold.
type StalledItem struct {
	ItemID   string `json:"itemId"`
	Content  string `json:"content"`
	Score    int    `json:"score"`
	DaysIdle int    `json:"daysIdle"`
}

// Warning is an attention warning surfaced in briefs.
type Warning struct {
	Category string `json:"category"`
	Content  string `json:"content"`
	Days     int    `json:"days"`
}

// SessionBrief is the Tier-2 cache artifact. Immutable once built; the
// orchestrator replaces it wholesale on rebuild, never patches it in place.
type SessionBrief struct {
	GeneratedAt  int64            `json:"generatedAt"`
	ItemCount    int              `json:"itemCount"`
	Momentum     string           `json:"momentum"`
	TopProjects  []ProjectSummary `json:"topProjects"`
	StalledItems []StalledItem    `json:"stalledItems"`
	Warnings     []Warning        `json:"warnings"`
	Counters     Counters         `json:"counters"`
}

// Priority is a suggested action inside a daily brief.
type Priority struct {
	Content string `json:"content"`
	Reason  string `json:"reason"`
	Project string `json:"project,omitempty"`
}

// BriefMetrics is the numeric snapshot attached to a daily brief.
type BriefMetrics struct {
	OpenCount      int    `json:"openCount"`
	StalledCount   int    `json:"stalledCount"`
	Momentum       string `json:"momentum"`
	ActiveProjects int    `json:"activeProjects"`
	NotesYesterday int    `json:"notesYesterday"`
	NotesThisWeek  int    `json:"notesThisWeek"`
}

// DailyBrief is the Tier-3 cache artifact, one per calendar day.
// Records are append-only and queryable by date.
type DailyBrief struct {
	ID         string       `json:"id"`
	Date       string       `json:"date"` // "2006-01-02"
	Narrative  string       `json:"narrative"`
	Highlights []string     `json:"highlights"`
	Priorities []Priority   `json:"priorities"`
	Warnings   []Warning    `json:"warnings"`
	Metrics    BriefMetrics `json:"metrics"`
	CreatedAt  int64        `json:"createdAt"`
}

// Storer defines the interface for data persistence.
// SQLiteStore is the sole implementation.
type Storer interface {
	// Work items
	CreateItem(item *WorkItem) error
	UpdateItem(item *WorkItem) error
	GetItem(id string) (*WorkItem, error)
	ListItems() ([]*WorkItem, error)
	CountItems() (int, error)

	// Movements (append-only)
	RecordMovement(m *Movement) error
	ListMovements(since int64) ([]*Movement, error)

	// Projects
	UpsertProject(p *Project) error
	GetProject(id string) (*Project, error)
	ListProjects(includeArchived bool) ([]*Project, error)
	AppendProjectAliases(id string, aliases []string) error
	TouchProject(id string, at int64) error

	// Session brief (single key, overwritten wholesale)
	SaveSessionBrief(b *SessionBrief) error
	LoadSessionBrief() (*SessionBrief, error)

	// Daily briefs (append-only, queryable by date)
	SaveDailyBrief(b *DailyBrief) error
	GetDailyBrief(date string) (*DailyBrief, error)

	// Counter snapshot (flat, for cold start)
	SaveCounterSnapshot(s *CounterSnapshot) error
	LoadCounterSnapshot() (*CounterSnapshot, error)

	// Lifecycle
	Close() error
}

package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// SQLiteStore is the SQLite-backed data store.
// Thread-safe for concurrent readers; writes are serialized.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines all tables. Movements and daily briefs are append-only;
// blobs is a small key/value table for wholesale-replaced cache artifacts.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    category TEXT NOT NULL,
    stage TEXT NOT NULL,
    owner TEXT,
    deadline TEXT,
    capture_id TEXT,
    project_id TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_stage ON items(stage);
CREATE INDEX IF NOT EXISTS idx_items_project ON items(project_id);

CREATE TABLE IF NOT EXISTS movements (
    id TEXT PRIMARY KEY,
    item_id TEXT NOT NULL,
    from_stage TEXT NOT NULL,
    to_stage TEXT NOT NULL,
    at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_movements_at ON movements(at);

CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    aliases TEXT,
    archived INTEGER DEFAULT 0,
    last_activity INTEGER DEFAULT 0,
    note_count INTEGER DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_briefs (
    id TEXT PRIMARY KEY,
    date TEXT NOT NULL UNIQUE,
    payload TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_daily_briefs_date ON daily_briefs(date);

CREATE TABLE IF NOT EXISTS blobs (
    key TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// Blob keys for wholesale-replaced cache artifacts.
const (
	blobSessionBrief    = "session_brief"
	blobCounterSnapshot = "counter_snapshot"
)

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. Use ":memory:" for an ephemeral store in tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewID generates a monotonic ULID for new records.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Close shuts down the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Work items
// ---------------------------------------------------------------------------

// CreateItem inserts a new work item. An empty ID is assigned a fresh ULID.
func (s *SQLiteStore) CreateItem(item *WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = NewID()
	}
	item.Category = ParseCategory(string(item.Category))
	item.Stage = ParseStage(string(item.Stage))

	_, err := s.db.Exec(`
		INSERT INTO items (id, content, category, stage, owner, deadline, capture_id, project_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Content, string(item.Category), string(item.Stage),
		item.Owner, item.Deadline, item.CaptureID, item.ProjectID,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: failed to create item: %w", err)
	}
	return nil
}

// UpdateItem overwrites an existing item. UpdatedAt is kept monotonic:
// a write with an older timestamp keeps the stored one.
func (s *SQLiteStore) UpdateItem(item *WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.Category = ParseCategory(string(item.Category))
	item.Stage = ParseStage(string(item.Stage))

	res, err := s.db.Exec(`
		UPDATE items SET content = ?, category = ?, stage = ?, owner = ?, deadline = ?,
			capture_id = ?, project_id = ?, updated_at = MAX(updated_at, ?)
		WHERE id = ?`,
		item.Content, string(item.Category), string(item.Stage),
		item.Owner, item.Deadline, item.CaptureID, item.ProjectID,
		item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("store: failed to update item: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetItem fetches a single work item by ID.
func (s *SQLiteStore) GetItem(id string) (*WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, content, category, stage, owner, deadline, capture_id, project_id, created_at, updated_at
		FROM items WHERE id = ?`, id)
	return scanItem(row)
}

// ListItems returns every work item, oldest first.
func (s *SQLiteStore) ListItems() ([]*WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, content, category, stage, owner, deadline, capture_id, project_id, created_at, updated_at
		FROM items ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountItems returns the total number of work items.
func (s *SQLiteStore) CountItems() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: failed to count items: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*WorkItem, error) {
	var item WorkItem
	var category, stage string
	var owner, deadline, captureID, projectID sql.NullString

	err := row.Scan(&item.ID, &item.Content, &category, &stage,
		&owner, &deadline, &captureID, &projectID,
		&item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to scan item: %w", err)
	}

	item.Category = ParseCategory(category)
	item.Stage = ParseStage(stage)
	item.Owner = owner.String
	item.Deadline = deadline.String
	item.CaptureID = captureID.String
	item.ProjectID = projectID.String
	return &item, nil
}

// ---------------------------------------------------------------------------
// Movements
// ---------------------------------------------------------------------------

// RecordMovement appends a stage transition. Movements are immutable.
func (s *SQLiteStore) RecordMovement(m *Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = NewID()
	}
	_, err := s.db.Exec(`
		INSERT INTO movements (id, item_id, from_stage, to_stage, at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ItemID, string(m.From), string(m.To), m.At,
	)
	if err != nil {
		return fmt.Errorf("store: failed to record movement: %w", err)
	}
	return nil
}

// ListMovements returns movements at or after the given timestamp,
// oldest first. Pass 0 for the full history.
func (s *SQLiteStore) ListMovements(since int64) ([]*Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, item_id, from_stage, to_stage, at
		FROM movements WHERE at >= ? ORDER BY at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list movements: %w", err)
	}
	defer rows.Close()

	var movements []*Movement
	for rows.Next() {
		var m Movement
		var from, to string
		if err := rows.Scan(&m.ID, &m.ItemID, &from, &to, &m.At); err != nil {
			return nil, fmt.Errorf("store: failed to scan movement: %w", err)
		}
		m.From = ParseStage(from)
		m.To = ParseStage(to)
		movements = append(movements, &m)
	}
	return movements, rows.Err()
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

// UpsertProject inserts or replaces a project. Aliases are stored as JSON.
func (s *SQLiteStore) UpsertProject(p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = NewID()
	}
	aliases, err := json.Marshal(p.Aliases)
	if err != nil {
		return fmt.Errorf("store: failed to marshal aliases: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO projects (id, name, aliases, archived, last_activity, note_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			aliases = excluded.aliases,
			archived = excluded.archived,
			last_activity = excluded.last_activity,
			note_count = excluded.note_count,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, string(aliases), boolToInt(p.Archived),
		p.LastActivity, p.NoteCount, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: failed to upsert project: %w", err)
	}
	return nil
}

// GetProject fetches a single project by ID.
func (s *SQLiteStore) GetProject(id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, name, aliases, archived, last_activity, note_count, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ListProjects returns projects ordered by most recent activity.
func (s *SQLiteStore) ListProjects(includeArchived bool) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, name, aliases, archived, last_activity, note_count, created_at, updated_at
		FROM projects`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY last_activity DESC, created_at ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// AppendProjectAliases adds aliases to a project, deduplicated
// case-insensitively. Aliases are never removed.
func (s *SQLiteStore) AppendProjectAliases(id string, aliases []string) error {
	if len(aliases) == 0 {
		return nil
	}

	p, err := s.GetProject(id)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(p.Aliases))
	for _, a := range p.Aliases {
		seen[normalizeAliasKey(a)] = true
	}
	merged := p.Aliases
	for _, a := range aliases {
		key := normalizeAliasKey(a)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, a)
	}
	if len(merged) == len(p.Aliases) {
		return nil
	}

	encoded, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("store: failed to marshal aliases: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`UPDATE projects SET aliases = ? WHERE id = ?`, string(encoded), id)
	if err != nil {
		return fmt.Errorf("store: failed to append aliases: %w", err)
	}
	return nil
}

// TouchProject bumps a project's activity timestamp and note count.
func (s *SQLiteStore) TouchProject(id string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE projects SET last_activity = MAX(last_activity, ?), note_count = note_count + 1
		WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("store: failed to touch project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var aliases sql.NullString
	var archived int

	err := row.Scan(&p.ID, &p.Name, &aliases, &archived,
		&p.LastActivity, &p.NoteCount, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to scan project: %w", err)
	}

	p.Archived = archived != 0
	if aliases.String != "" {
		if err := json.Unmarshal([]byte(aliases.String), &p.Aliases); err != nil {
			return nil, fmt.Errorf("store: failed to unmarshal aliases: %w", err)
		}
	}
	return &p, nil
}

func normalizeAliasKey(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Cache artifacts
// ---------------------------------------------------------------------------

// SaveSessionBrief overwrites the single session-brief blob.
func (s *SQLiteStore) SaveSessionBrief(b *SessionBrief) error {
	return s.putBlob(blobSessionBrief, b)
}

// LoadSessionBrief returns the cached session brief, or ErrNotFound if no
// brief has been saved yet.
func (s *SQLiteStore) LoadSessionBrief() (*SessionBrief, error) {
	var b SessionBrief
	if err := s.getBlob(blobSessionBrief, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveCounterSnapshot overwrites the flat counter snapshot.
func (s *SQLiteStore) SaveCounterSnapshot(snap *CounterSnapshot) error {
	return s.putBlob(blobCounterSnapshot, snap)
}

// LoadCounterSnapshot returns the persisted counters, or ErrNotFound on a
// genuinely cold start.
func (s *SQLiteStore) LoadCounterSnapshot() (*CounterSnapshot, error) {
	var snap CounterSnapshot
	if err := s.getBlob(blobCounterSnapshot, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SQLiteStore) putBlob(key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: failed to marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO blobs (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, string(payload), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: failed to save %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) getBlob(key string, v any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(`SELECT payload FROM blobs WHERE key = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("store: failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// SaveDailyBrief appends a daily brief. The payload is stored as a JSON
// blob and decoded into a typed value on load.
func (s *SQLiteStore) SaveDailyBrief(b *DailyBrief) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = NewID()
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("store: failed to marshal daily brief: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO daily_briefs (id, date, payload, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET payload = excluded.payload`,
		b.ID, b.Date, string(payload), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: failed to save daily brief: %w", err)
	}
	return nil
}

// GetDailyBrief returns the brief for the given "2006-01-02" date, or
// ErrNotFound when none exists. This query is the authoritative check for
// Tier-3 gating.
func (s *SQLiteStore) GetDailyBrief(date string) (*DailyBrief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(`SELECT payload FROM daily_briefs WHERE date = ?`, date).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to load daily brief: %w", err)
	}

	var b DailyBrief
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return nil, fmt.Errorf("store: failed to unmarshal daily brief: %w", err)
	}
	return &b, nil
}

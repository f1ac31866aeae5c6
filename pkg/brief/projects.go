package brief

import (
	"context"

	"github.com/kittclouds/pulse/internal/store"
	"github.com/kittclouds/pulse/pkg/matcher"
)

// CreateProject registers a new project bucket, seeding its aliases from
// the name and its initials.
func (e *Engine) CreateProject(name string) (*store.Project, error) {
	now := e.now().UnixMilli()
	p := &store.Project{
		Name:      name,
		Aliases:   matcher.SeedAliases(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.UpsertProject(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ResolveProject runs the three matching layers over the current project
// set. A nil match is a normal result: the item goes to the inbox bucket.
// The AI layer is consulted only when the local layers find nothing and a
// configured client exists.
func (e *Engine) ResolveProject(ctx context.Context, text string) (*matcher.Match, error) {
	projects, err := e.store.ListProjects(false)
	if err != nil {
		return nil, err
	}
	m, err := matcher.New(projects)
	if err != nil {
		return nil, err
	}
	if e.ai != nil && e.ai.IsConfigured() {
		return m.ResolveWithAI(ctx, text, e.ai)
	}
	return m.FindMatch(text), nil
}

// AssignItemToProject links an item to a project and bumps the project's
// activity bookkeeping used by session-brief ranking.
func (e *Engine) AssignItemToProject(itemID, projectID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	item, err := e.store.GetItem(itemID)
	if err != nil {
		return err
	}
	if item.ProjectID == projectID {
		return nil
	}

	item.ProjectID = projectID
	item.UpdatedAt = now.UnixMilli()
	if err := e.store.UpdateItem(item); err != nil {
		return err
	}
	if err := e.store.TouchProject(projectID, now.UnixMilli()); err != nil {
		return err
	}

	e.sessionNeedsRefresh = true
	return nil
}

// LearnProjectAlias mines a user-corrected text for new aliases and
// appends them to the project. Aliases only ever grow.
func (e *Engine) LearnProjectAlias(projectID, text string) error {
	p, err := e.store.GetProject(projectID)
	if err != nil {
		return err
	}
	learned := matcher.LearnAliases(text, p)
	if len(learned) == 0 {
		return nil
	}
	return e.store.AppendProjectAliases(projectID, learned)
}

package aibrief

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kittclouds/pulse/internal/store"
)

// BriefResult is the parsed AI output for a daily brief, before the
// orchestrator attaches snapshot metrics and persists it.
type BriefResult struct {
	Narrative  string           `json:"narrative"`
	Highlights []string         `json:"highlights"`
	Priorities []store.Priority `json:"priorities"`
	Warnings   []store.Warning  `json:"warnings"`
}

// ParseBriefResponse parses the raw AI response into a BriefResult.
// Models frequently wrap JSON in markdown code fences; those are stripped
// before parsing.
func ParseBriefResponse(raw string) (*BriefResult, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return nil, fmt.Errorf("aibrief: empty brief: %w", ErrMalformedResponse)
	}

	var result BriefResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("aibrief: brief not parseable: %w", ErrMalformedResponse)
	}

	result.Narrative = strings.TrimSpace(result.Narrative)
	if result.Narrative == "" && len(result.Highlights) == 0 && len(result.Priorities) == 0 {
		return nil, fmt.Errorf("aibrief: brief has no content: %w", ErrMalformedResponse)
	}

	cleanedHighlights := result.Highlights[:0]
	for _, h := range result.Highlights {
		if h = strings.TrimSpace(h); h != "" {
			cleanedHighlights = append(cleanedHighlights, h)
		}
	}
	result.Highlights = cleanedHighlights

	priorities := result.Priorities[:0]
	for _, p := range result.Priorities {
		p.Content = strings.TrimSpace(p.Content)
		p.Reason = strings.TrimSpace(p.Reason)
		p.Project = strings.TrimSpace(p.Project)
		if p.Content != "" {
			priorities = append(priorities, p)
		}
	}
	result.Priorities = priorities

	return &result, nil
}

// ParseProjectName extracts a bare project name from a resolution reply.
// Returns "" when the model answered "none" or produced nothing usable.
func ParseProjectName(raw string) string {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return ""
	}
	// Only the first line matters; models sometimes append explanation.
	if idx := strings.IndexByte(cleaned, '\n'); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	cleaned = strings.Trim(strings.TrimSpace(cleaned), `"'.`)
	if strings.EqualFold(cleaned, "none") {
		return ""
	}
	return cleaned
}

// stripCodeFence removes markdown code block wrappers (```json ... ```).
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

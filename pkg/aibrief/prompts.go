package aibrief

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kittclouds/pulse/internal/store"
)

// MaxTextLength caps how much captured text is sent for project
// resolution.
const MaxTextLength = 500

// dailySystemPrompt instructs the model to return structured JSON only.
const dailySystemPrompt = `You are a progress analyst for a personal work journal.
Given a snapshot of work items, write a short daily brief.
Return ONLY a valid JSON object. No markdown, no explanation. Start with { and end with }.`

// projectSystemPrompt instructs the model to answer with a bare name.
const projectSystemPrompt = `You match captured notes to projects.
Reply with exactly one project name from the list, or the single word "none".
No punctuation, no explanation.`

// DroppedLine is one dropped-ball entry in the daily context.
type DroppedLine struct {
	Content string
	Reason  string
	Days    int
}

// DailyContext is everything the daily-brief prompt is assembled from.
// The orchestrator computes it once per generation.
type DailyContext struct {
	Recent      []*store.WorkItem
	ByStage     map[store.Stage][]*store.WorkItem
	Dropped     []DroppedLine
	Commitments []*store.WorkItem

	Direction         string
	MovementsThisWeek int
	MovementsLastWeek int
	CompletedThisWeek int
	CreatedThisWeek   int
}

// stageOrder keeps the prompt's stage grouping deterministic.
var stageOrder = []store.Stage{
	store.StageThinking, store.StageDecided, store.StageDoing,
	store.StageWaiting, store.StageDone,
}

// BuildDailyPrompt assembles the textual context plus the target JSON
// shape description for the daily brief.
func BuildDailyPrompt(dc DailyContext) string {
	var sb strings.Builder

	sb.WriteString("Write a daily brief from this work snapshot.\n\n")

	if len(dc.Recent) > 0 {
		sb.WriteString("RECENT ITEMS:\n")
		for _, item := range dc.Recent {
			fmt.Fprintf(&sb, "- [%s/%s] %s\n", item.Category, item.Stage, item.Content)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("ITEMS BY STAGE:\n")
	for _, stage := range stageOrder {
		items := dc.ByStage[stage]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s (%d):\n", stage, len(items))
		for _, item := range items {
			fmt.Fprintf(&sb, "- %s\n", item.Content)
		}
	}
	sb.WriteString("\n")

	if len(dc.Dropped) > 0 {
		sb.WriteString("DROPPED BALLS:\n")
		for _, d := range dc.Dropped {
			fmt.Fprintf(&sb, "- %s (%s, %d days)\n", d.Content, d.Reason, d.Days)
		}
		sb.WriteString("\n")
	}

	if len(dc.Commitments) > 0 {
		sb.WriteString("OPEN COMMITMENTS:\n")
		for _, item := range dc.Commitments {
			fmt.Fprintf(&sb, "- %s\n", item.Content)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "MOMENTUM: %s (%d movements this week, %d last week, %d completed, %d created)\n\n",
		dc.Direction, dc.MovementsThisWeek, dc.MovementsLastWeek,
		dc.CompletedThisWeek, dc.CreatedThisWeek)

	sb.WriteString("Return a JSON object with:\n")
	sb.WriteString("- \"narrative\": 2-3 sentence summary of where things stand (string)\n")
	sb.WriteString("- \"highlights\": notable wins or changes (string[])\n")
	sb.WriteString("- \"priorities\": suggested actions, each {\"content\", \"reason\", \"project\"} (project optional)\n")
	sb.WriteString("- \"warnings\": risks, each {\"category\", \"content\", \"days\"}\n")

	return sb.String()
}

// BuildProjectPrompt assembles the Layer-3 resolution prompt: candidate
// project names plus the truncated captured text.
func BuildProjectPrompt(text string, names []string) string {
	if len(text) > MaxTextLength {
		// Back up to a rune boundary so the cut never splits a multi-byte
		// character.
		cut := MaxTextLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	var sb strings.Builder
	sb.WriteString("PROJECTS:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "- %s\n", name)
	}
	sb.WriteString("\nTEXT:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nWhich project does this text belong to? Answer with the project name or \"none\".")
	return sb.String()
}

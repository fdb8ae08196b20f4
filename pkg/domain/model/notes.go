package model

import (
	"fmt"
	"strings"
)

// NotesInput is the input for LLM-based release notes generation
type NotesInput struct {
	Owner       string
	Repo        string
	Tag         string
	PreviousTag string
	Commits     []string // Commit subject lines since the previous release
}

// ReleaseNotes is the structured response of release notes generation
type ReleaseNotes struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
}

// Markdown renders the notes as a release body
func (n *ReleaseNotes) Markdown() string {
	var sb strings.Builder

	sb.WriteString(n.Summary)
	sb.WriteString("\n")

	if len(n.Highlights) > 0 {
		sb.WriteString("\n## Highlights\n\n")
		for _, h := range n.Highlights {
			sb.WriteString(fmt.Sprintf("- %s\n", h))
		}
	}

	return sb.String()
}

package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"text/template"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
)

//go:embed prompts/release_notes_system.md
var notesSystemPrompt string

//go:embed prompts/release_notes_user.md
var notesUserPromptTemplate string

type notesGenerator struct {
	llmClient    gollem.LLMClient
	userTemplate *template.Template
}

// NewNotesGenerator creates a NotesGenerator backed by an LLM
func NewNotesGenerator(llmClient gollem.LLMClient) (interfaces.NotesGenerator, error) {
	tmpl, err := template.New("user").Parse(notesUserPromptTemplate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse user prompt template")
	}

	return &notesGenerator{
		llmClient:    llmClient,
		userTemplate: tmpl,
	}, nil
}

// Generate summarizes the commit subjects since the previous release into a
// markdown release body
func (uc *notesGenerator) Generate(ctx context.Context, input *model.NotesInput) (string, error) {
	logger := ctxlog.From(ctx)

	var buf bytes.Buffer
	if err := uc.userTemplate.Execute(&buf, input); err != nil {
		return "", goerr.Wrap(err, "failed to execute user prompt template")
	}

	logger.Debug("Calling LLM for release notes",
		"tag", input.Tag,
		"commit_count", len(input.Commits),
	)

	session, err := uc.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionSystemPrompt(notesSystemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buf.String()))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate LLM content")
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("no response from LLM")
	}

	var notes model.ReleaseNotes
	if err := json.Unmarshal([]byte(resp.Texts[0]), &notes); err != nil {
		return "", goerr.Wrap(err, "failed to parse LLM response", goerr.V("response", resp.Texts[0]))
	}

	return notes.Markdown(), nil
}

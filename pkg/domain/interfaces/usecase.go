package interfaces

import (
	"context"

	"github.com/RukuLab/ruku/pkg/domain/model"
)

// WebhookUseCase defines the interface for webhook event processing
type WebhookUseCase interface {
	// ProcessPushEvent processes a push webhook event. Matching tag pushes
	// trigger a pipeline run asynchronously; everything else is ignored.
	ProcessPushEvent(ctx context.Context, event *model.WebhookEvent) error
}

// PipelineUseCase defines the release pipeline
type PipelineUseCase interface {
	// Run executes the full release pipeline for one tag and returns the
	// finished run record
	Run(ctx context.Context, req *model.ReleaseRequest) (*model.PipelineRun, error)
}

// DeployUseCase defines container deployment of a released version
type DeployUseCase interface {
	// Deploy runs the requested version as a container and returns the
	// container ID
	Deploy(ctx context.Context, req *model.DeployRequest) (string, error)
}

// SourceFetcher fetches and extracts the source snapshot for a commit
type SourceFetcher interface {
	Fetch(ctx context.Context, owner, repo, ref string) (*model.SourceCheckout, error)
}

// NotesGenerator generates a release body from recent commits
type NotesGenerator interface {
	Generate(ctx context.Context, input *model.NotesInput) (string, error)
}

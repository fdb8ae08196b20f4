package interfaces

import (
	"context"

	"github.com/RukuLab/ruku/pkg/domain/model"
)

// Builder builds the binary for one target of the matrix
type Builder interface {
	// Build compiles the target and returns the absolute binary path
	Build(ctx context.Context, input *model.BuildInput) (string, error)
}

// RunStore persists pipeline run history
type RunStore interface {
	// SaveRun inserts or updates a run together with its jobs
	SaveRun(ctx context.Context, run *model.PipelineRun) error

	// GetRun returns a run by ID, or nil when not found
	GetRun(ctx context.Context, id string) (*model.PipelineRun, error)

	// ListRuns returns runs newest first, up to limit
	ListRuns(ctx context.Context, limit int) ([]*model.PipelineRun, error)

	Close() error
}

// ArtifactStore mirrors release archives to object storage
type ArtifactStore interface {
	// Put uploads the file at path under the given object key
	Put(ctx context.Context, key, path, contentType string) error
}

// Notifier reports pipeline run results
type Notifier interface {
	NotifyRunResult(ctx context.Context, run *model.PipelineRun) error
}

// ContainerRuntime abstracts the container engine used for deployment
type ContainerRuntime interface {
	// ImageExists reports whether the image is present locally
	ImageExists(ctx context.Context, ref string) (bool, error)

	// PullImage pulls the image from its registry
	PullImage(ctx context.Context, ref string) error

	// FindContainer returns the ID of a container with the given name, or
	// "" when none exists
	FindContainer(ctx context.Context, name string) (string, error)

	// RemoveContainer stops and removes a container
	RemoveContainer(ctx context.Context, id string) error

	// CreateContainer creates a container and returns its ID
	CreateContainer(ctx context.Context, spec *model.ContainerSpec) (string, error)

	// StartContainer starts a created container
	StartContainer(ctx context.Context, id string) error
}

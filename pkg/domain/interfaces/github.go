package interfaces

import (
	"context"

	"github.com/RukuLab/ruku/pkg/domain/model"
)

// GitHubClient defines operations for interacting with the GitHub API
type GitHubClient interface {
	// GetReleaseByTag returns the release for a tag, or nil when none exists
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*model.Release, error)

	// CreateRelease creates a release for a tag
	CreateRelease(ctx context.Context, owner, repo string, params *model.ReleaseParams) (*model.Release, error)

	// UploadReleaseAsset uploads a file as a release asset
	UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, path string) (*model.Asset, error)

	// DownloadZipball downloads the source code zipball for a specific commit
	DownloadZipball(ctx context.Context, owner, repo, ref string) ([]byte, error)

	// ListCommitSubjects lists commit subject lines reachable from head,
	// newest first, up to limit
	ListCommitSubjects(ctx context.Context, owner, repo, head string, limit int) ([]string, error)

	// CheckWritePermission reports whether the authenticated identity can
	// push to the repository
	CheckWritePermission(ctx context.Context, owner, repo string) (bool, error)
}

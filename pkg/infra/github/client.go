package github

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
)

type client struct {
	githubClient *github.Client
}

// Option is a functional option for client configuration
type Option func(*github.Client) (*github.Client, error)

// WithBaseURL points the client at a GitHub Enterprise Server instance
func WithBaseURL(baseURL string) Option {
	return func(c *github.Client) (*github.Client, error) {
		ec, err := c.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to set enterprise base URL", goerr.V("base_url", baseURL))
		}
		return ec, nil
	}
}

// NewClient creates a GitHub client authenticated with a personal access token
func NewClient(token string, opts ...Option) (interfaces.GitHubClient, error) {
	gh := github.NewClient(nil).WithAuthToken(token)

	for _, opt := range opts {
		var err error
		if gh, err = opt(gh); err != nil {
			return nil, err
		}
	}

	return &client{githubClient: gh}, nil
}

// NewAppClient creates a GitHub client with App installation authentication
func NewAppClient(appID, installationID int64, privateKey []byte, opts ...Option) (interfaces.GitHubClient, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport")
	}

	gh := github.NewClient(&http.Client{Transport: itr})

	for _, opt := range opts {
		if gh, err = opt(gh); err != nil {
			return nil, err
		}
	}

	return &client{githubClient: gh}, nil
}

// GetReleaseByTag returns the release for a tag, or nil when none exists
func (c *client) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*model.Release, error) {
	rel, resp, err := c.githubClient.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get release by tag",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("tag", tag))
	}

	return toRelease(rel), nil
}

// CreateRelease creates a release for a tag
func (c *client) CreateRelease(ctx context.Context, owner, repo string, params *model.ReleaseParams) (*model.Release, error) {
	rel, _, err := c.githubClient.Repositories.CreateRelease(ctx, owner, repo, &github.RepositoryRelease{
		TagName:         github.Ptr(params.TagName),
		Name:            github.Ptr(params.Name),
		Body:            github.Ptr(params.Body),
		TargetCommitish: github.Ptr(params.Commitish),
		Draft:           github.Ptr(params.Draft),
		Prerelease:      github.Ptr(params.Prerelease),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create release",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("tag", params.TagName))
	}

	return toRelease(rel), nil
}

// UploadReleaseAsset uploads a file as a release asset. The media type is
// derived from the file name extension.
func (c *client) UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, path string) (*model.Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open asset file", goerr.V("path", path))
	}
	defer f.Close()

	asset, _, err := c.githubClient.Repositories.UploadReleaseAsset(ctx, owner, repo, releaseID, &github.UploadOptions{
		Name:      filepath.Base(path),
		MediaType: assetMediaType(path),
	}, f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upload release asset",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("asset", filepath.Base(path)))
	}

	return &model.Asset{
		ID:   asset.GetID(),
		Name: asset.GetName(),
		Size: int64(asset.GetSize()),
		URL:  asset.GetBrowserDownloadURL(),
	}, nil
}

// DownloadZipball downloads the source code zipball for a specific commit
func (c *client) DownloadZipball(ctx context.Context, owner, repo, ref string) ([]byte, error) {
	// Get download URL for zipball
	url, _, err := c.githubClient.Repositories.GetArchiveLink(ctx, owner, repo, github.Zipball, &github.RepositoryContentGetOptions{
		Ref: ref,
	}, 3) // Follow up to 3 redirects
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get zipball download URL",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("ref", ref))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url.String(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create download request", goerr.V("url", url.String()))
	}

	// Use the same client transport for authentication
	httpClient := &http.Client{Transport: c.githubClient.Client().Transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download zipball", goerr.V("url", url.String()))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("unexpected status code on zipball download",
			goerr.V("status", resp.StatusCode), goerr.V("url", url.String()))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read zipball response body")
	}

	return data, nil
}

// ListCommitSubjects lists commit subject lines reachable from head, newest
// first, up to limit
func (c *client) ListCommitSubjects(ctx context.Context, owner, repo, head string, limit int) ([]string, error) {
	commits, _, err := c.githubClient.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
		SHA: head,
		ListOptions: github.ListOptions{
			PerPage: limit,
		},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list commits",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("head", head))
	}

	subjects := make([]string, 0, len(commits))
	for _, commit := range commits {
		msg := commit.GetCommit().GetMessage()
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		subjects = append(subjects, msg)
	}
	return subjects, nil
}

// CheckWritePermission reports whether the authenticated identity can push to
// the repository
func (c *client) CheckWritePermission(ctx context.Context, owner, repo string) (bool, error) {
	r, _, err := c.githubClient.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return false, goerr.Wrap(err, "failed to get repository",
			goerr.V("owner", owner), goerr.V("repo", repo))
	}

	return r.GetPermissions()["push"], nil
}

func toRelease(rel *github.RepositoryRelease) *model.Release {
	return &model.Release{
		ID:         rel.GetID(),
		TagName:    rel.GetTagName(),
		Name:       rel.GetName(),
		URL:        rel.GetHTMLURL(),
		Draft:      rel.GetDraft(),
		Prerelease: rel.GetPrerelease(),
	}
}

func assetMediaType(path string) string {
	switch filepath.Ext(path) {
	case ".gz":
		return "application/gzip"
	case ".zip":
		return "application/zip"
	case ".txt":
		return "text/plain"
	default:
		if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
			return mt
		}
		return "application/octet-stream"
	}
}

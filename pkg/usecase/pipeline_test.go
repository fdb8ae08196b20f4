package usecase_test

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/usecase"
)

// MockGitHubClient is a mock implementation of GitHubClient recording the
// order of API calls
type MockGitHubClient struct {
	mu    sync.Mutex
	calls []string

	getReleaseByTagFunc func(ctx context.Context, owner, repo, tag string) (*model.Release, error)
	createReleaseFunc   func(ctx context.Context, owner, repo string, params *model.ReleaseParams) (*model.Release, error)
	uploadAssetFunc     func(ctx context.Context, owner, repo string, releaseID int64, path string) (*model.Asset, error)
	downloadZipballFunc func(ctx context.Context, owner, repo, ref string) ([]byte, error)
	permissionFunc      func(ctx context.Context, owner, repo string) (bool, error)

	uploaded []string
}

func (m *MockGitHubClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *MockGitHubClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.calls...)
}

func (m *MockGitHubClient) Uploaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.uploaded...)
}

func (m *MockGitHubClient) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*model.Release, error) {
	m.record("GetReleaseByTag")
	if m.getReleaseByTagFunc != nil {
		return m.getReleaseByTagFunc(ctx, owner, repo, tag)
	}
	return nil, nil
}

func (m *MockGitHubClient) CreateRelease(ctx context.Context, owner, repo string, params *model.ReleaseParams) (*model.Release, error) {
	m.record("CreateRelease")
	if m.createReleaseFunc != nil {
		return m.createReleaseFunc(ctx, owner, repo, params)
	}
	return &model.Release{ID: 100, TagName: params.TagName}, nil
}

func (m *MockGitHubClient) UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, path string) (*model.Asset, error) {
	m.record("UploadReleaseAsset")
	if m.uploadAssetFunc != nil {
		return m.uploadAssetFunc(ctx, owner, repo, releaseID, path)
	}
	m.mu.Lock()
	m.uploaded = append(m.uploaded, filepath.Base(path))
	m.mu.Unlock()
	return &model.Asset{Name: filepath.Base(path)}, nil
}

func (m *MockGitHubClient) DownloadZipball(ctx context.Context, owner, repo, ref string) ([]byte, error) {
	m.record("DownloadZipball")
	if m.downloadZipballFunc != nil {
		return m.downloadZipballFunc(ctx, owner, repo, ref)
	}
	return nil, errors.New("not implemented")
}

func (m *MockGitHubClient) ListCommitSubjects(ctx context.Context, owner, repo, head string, limit int) ([]string, error) {
	m.record("ListCommitSubjects")
	return []string{"Fix bug", "Add feature"}, nil
}

func (m *MockGitHubClient) CheckWritePermission(ctx context.Context, owner, repo string) (bool, error) {
	m.record("CheckWritePermission")
	if m.permissionFunc != nil {
		return m.permissionFunc(ctx, owner, repo)
	}
	return true, nil
}

// MockBuilder writes a dummy binary per target
type MockBuilder struct {
	mu      sync.Mutex
	builds  []string
	failFor string
}

func (m *MockBuilder) Build(ctx context.Context, input *model.BuildInput) (string, error) {
	m.mu.Lock()
	m.builds = append(m.builds, input.Target.String())
	m.mu.Unlock()

	if m.failFor == input.Target.String() {
		return "", errors.New("compiler exploded")
	}

	out := filepath.Join(input.OutDir, input.Name)
	if input.Target.IsWindows() {
		out += ".exe"
	}
	if err := os.WriteFile(out, []byte("binary for "+input.Target.String()), 0755); err != nil {
		return "", err
	}
	return out, nil
}

// MemoryRunStore keeps run snapshots in memory
type MemoryRunStore struct {
	mu   sync.Mutex
	runs map[string]*model.PipelineRun
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: map[string]*model.PipelineRun{}}
}

func (s *MemoryRunStore) SaveRun(ctx context.Context, run *model.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryRunStore) GetRun(ctx context.Context, id string) (*model.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id], nil
}

func (s *MemoryRunStore) ListRuns(ctx context.Context, limit int) ([]*model.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PipelineRun
	for _, r := range s.runs {
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryRunStore) Close() error { return nil }

func TestPipeline_Run_Success(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mockClient := &MockGitHubClient{}
	builder := &MockBuilder{}
	store := NewMemoryRunStore()

	uc := usecase.NewPipeline(mockClient, builder, usecase.WithRunStore(store))

	run, err := uc.Run(ctx, &model.ReleaseRequest{
		Owner:  "rukulab",
		Repo:   "ruku",
		Tag:    "v1.0.0",
		Commit: "abc123",
		Dir:    dir,
	})

	gt.NoError(t, err)
	gt.Value(t, run.Status).Equal(model.RunSucceeded)

	// Default matrix: linux/amd64 + darwin/arm64, each one archive, plus
	// the checksums file
	uploaded := mockClient.Uploaded()
	gt.Number(t, len(uploaded)).Equal(3)
	gt.Value(t, slices.Contains(uploaded, "ruku_v1.0.0_linux_amd64.tar.gz")).Equal(true)
	gt.Value(t, slices.Contains(uploaded, "ruku_v1.0.0_darwin_arm64.tar.gz")).Equal(true)
	gt.Value(t, slices.Contains(uploaded, "ruku_v1.0.0_checksums.txt")).Equal(true)

	for _, job := range run.Jobs {
		gt.Value(t, job.Status).Equal(model.JobSucceeded)
		gt.Value(t, job.Checksum).NotEqual("")
	}

	// The run snapshot was persisted
	stored, err := store.GetRun(ctx, run.ID)
	gt.NoError(t, err)
	gt.Value(t, stored.Status).Equal(model.RunSucceeded)
}

func TestPipeline_Run_ReleaseBeforeBuilds(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mockClient := &MockGitHubClient{}
	builder := &MockBuilder{}

	uc := usecase.NewPipeline(mockClient, builder)

	_, err := uc.Run(ctx, &model.ReleaseRequest{
		Owner: "rukulab", Repo: "ruku", Tag: "v1.0.0", Dir: dir,
	})
	gt.NoError(t, err)

	// CreateRelease must complete before the first upload; builds only
	// start after the release stage, so every upload comes later
	calls := mockClient.Calls()
	createIdx := -1
	firstUploadIdx := -1
	for i, call := range calls {
		if call == "CreateRelease" && createIdx < 0 {
			createIdx = i
		}
		if call == "UploadReleaseAsset" && firstUploadIdx < 0 {
			firstUploadIdx = i
		}
	}
	gt.Number(t, createIdx).Greater(-1)
	gt.Number(t, firstUploadIdx).Greater(createIdx)
}

func TestPipeline_Run_ExistingRelease(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mockClient := &MockGitHubClient{
		getReleaseByTagFunc: func(ctx context.Context, owner, repo, tag string) (*model.Release, error) {
			return &model.Release{ID: 42, TagName: tag}, nil
		},
	}
	uc := usecase.NewPipeline(mockClient, &MockBuilder{})

	_, err := uc.Run(ctx, &model.ReleaseRequest{
		Owner: "rukulab", Repo: "ruku", Tag: "v1.0.0", Dir: dir,
	})
	gt.NoError(t, err)

	// No release creation when one already exists
	for _, call := range mockClient.Calls() {
		gt.Value(t, call).NotEqual("CreateRelease")
	}
}

func TestPipeline_Run_BuildFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mockClient := &MockGitHubClient{}
	builder := &MockBuilder{failFor: "linux/amd64"}

	uc := usecase.NewPipeline(mockClient, builder, usecase.WithConcurrency(1))

	run, err := uc.Run(ctx, &model.ReleaseRequest{
		Owner: "rukulab", Repo: "ruku", Tag: "v1.0.0", Dir: dir,
	})

	gt.Error(t, err)
	gt.Value(t, run.Status).Equal(model.RunFailed)
	gt.Value(t, run.Job("linux/amd64").Status).Equal(model.JobFailed)
	gt.String(t, run.Job("linux/amd64").Error).Contains("compiler exploded")

	// No checksums upload on failure
	for _, name := range mockClient.Uploaded() {
		gt.Value(t, strings.HasSuffix(name, "checksums.txt")).Equal(false)
	}
}

func TestPipeline_Run_TagPatternMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mockClient := &MockGitHubClient{}
	uc := usecase.NewPipeline(mockClient, &MockBuilder{})

	_, err := uc.Run(ctx, &model.ReleaseRequest{
		Owner: "rukulab", Repo: "ruku", Tag: "nightly-2026-01-01", Dir: dir,
	})
	gt.Error(t, err)

	// The release stage never ran
	for _, call := range mockClient.Calls() {
		gt.Value(t, call).NotEqual("CreateRelease")
	}
}

func TestPipeline_Run_DuplicateArchiveNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// A name template ignoring the target renders the same name for every
	// matrix entry
	manifest := `
[archive]
name_template = "{{.Name}}_{{.Tag}}"
`
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "ruku.toml"), []byte(manifest), 0644))

	uc := usecase.NewPipeline(&MockGitHubClient{}, &MockBuilder{})

	_, err := uc.Run(ctx, &model.ReleaseRequest{
		Owner: "rukulab", Repo: "ruku", Tag: "v1.0.0", Dir: dir,
	})
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("duplicate")
}

func TestPipeline_Run_PermissionDenied(t *testing.T) {
	ctx := context.Background()

	mockClient := &MockGitHubClient{
		permissionFunc: func(ctx context.Context, owner, repo string) (bool, error) {
			return false, nil
		},
	}
	uc := usecase.NewPipeline(mockClient, &MockBuilder{})

	_, err := uc.Run(ctx, &model.ReleaseRequest{
		Owner: "rukulab", Repo: "ruku", Tag: "v1.0.0", Dir: t.TempDir(),
	})
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("permission")
}

func TestPipeline_Run_UploadRetry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	var mu sync.Mutex
	attempts := map[string]int{}

	mockClient := &MockGitHubClient{}
	mockClient.uploadAssetFunc = func(ctx context.Context, owner, repo string, releaseID int64, path string) (*model.Asset, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts[filepath.Base(path)]++
		if attempts[filepath.Base(path)] == 1 {
			return nil, errors.New("502 bad gateway")
		}
		return &model.Asset{Name: filepath.Base(path)}, nil
	}

	uc := usecase.NewPipeline(mockClient, &MockBuilder{})

	run, err := uc.Run(ctx, &model.ReleaseRequest{
		Owner: "rukulab", Repo: "ruku", Tag: "v1.0.0", Dir: dir,
	})
	gt.NoError(t, err)
	gt.Value(t, run.Status).Equal(model.RunSucceeded)

	mu.Lock()
	defer mu.Unlock()
	for name, n := range attempts {
		gt.Number(t, n).Equal(2) // each asset failed once, then succeeded
		_ = name
	}
}

func TestPipeline_Run_ArchiveContainsBinary(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// LICENSE at the project root is picked up automatically
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "LICENSE"), []byte("MIT"), 0644))

	var archived []string
	mockClient := &MockGitHubClient{}
	mockClient.uploadAssetFunc = func(ctx context.Context, owner, repo string, releaseID int64, path string) (*model.Asset, error) {
		if strings.HasSuffix(path, ".tar.gz") {
			names, err := listTarGz(path)
			if err != nil {
				return nil, err
			}
			archived = append(archived, names...)
		}
		return &model.Asset{Name: filepath.Base(path)}, nil
	}

	uc := usecase.NewPipeline(mockClient, &MockBuilder{}, usecase.WithConcurrency(1))

	_, err := uc.Run(ctx, &model.ReleaseRequest{
		Owner: "rukulab", Repo: "ruku", Tag: "v1.0.0", Dir: dir,
	})
	gt.NoError(t, err)

	gt.Value(t, slices.Contains(archived, "ruku")).Equal(true)
	gt.Value(t, slices.Contains(archived, "LICENSE")).Equal(true)
}

func listTarGz(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	tr := tar.NewReader(gr)

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, hdr.Name)
	}
	return names, nil
}

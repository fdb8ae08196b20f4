package usecase

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/utils/archive"
	"github.com/RukuLab/ruku/pkg/utils/topic"
)

const defaultConcurrency = 4

// autoExtraFiles are included in every archive when present at the project
// root
var autoExtraFiles = []string{"LICENSE", "README.md"}

type pipeline struct {
	githubClient interfaces.GitHubClient
	builder      interfaces.Builder
	source       interfaces.SourceFetcher
	store        interfaces.RunStore
	mirror       interfaces.ArtifactStore
	notifier     interfaces.Notifier
	notes        interfaces.NotesGenerator
	events       *topic.Topic[model.RunEvent]
	concurrency  int

	mu sync.Mutex // guards run/job mutation across matrix goroutines
}

// PipelineOption is a functional option for pipeline configuration
type PipelineOption func(*pipeline)

// WithSourceFetcher sets the fetcher used when no local checkout is given
func WithSourceFetcher(f interfaces.SourceFetcher) PipelineOption {
	return func(p *pipeline) { p.source = f }
}

// WithRunStore persists run history
func WithRunStore(s interfaces.RunStore) PipelineOption {
	return func(p *pipeline) { p.store = s }
}

// WithMirror mirrors release archives to object storage
func WithMirror(s interfaces.ArtifactStore) PipelineOption {
	return func(p *pipeline) { p.mirror = s }
}

// WithNotifier posts run results
func WithNotifier(n interfaces.Notifier) PipelineOption {
	return func(p *pipeline) { p.notifier = n }
}

// WithNotesGenerator generates the release body from recent commits
func WithNotesGenerator(g interfaces.NotesGenerator) PipelineOption {
	return func(p *pipeline) { p.notes = g }
}

// WithEventTopic publishes run events to the given topic
func WithEventTopic(t *topic.Topic[model.RunEvent]) PipelineOption {
	return func(p *pipeline) { p.events = t }
}

// WithConcurrency bounds the number of targets built in parallel
func WithConcurrency(n int) PipelineOption {
	return func(p *pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPipeline creates the release pipeline use case
func NewPipeline(githubClient interfaces.GitHubClient, builder interfaces.Builder, opts ...PipelineOption) interfaces.PipelineUseCase {
	p := &pipeline{
		githubClient: githubClient,
		builder:      builder,
		concurrency:  defaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the release pipeline: ensure the GitHub release exists, then
// build, package and upload one archive per matrix target, and finally upload
// the checksums file. The release stage always completes before the first
// build starts.
func (p *pipeline) Run(ctx context.Context, req *model.ReleaseRequest) (*model.PipelineRun, error) {
	logger := ctxlog.From(ctx)

	if req.Owner == "" || req.Repo == "" || req.Tag == "" {
		return nil, goerr.New("owner, repo and tag are required",
			goerr.V("owner", req.Owner), goerr.V("repo", req.Repo), goerr.V("tag", req.Tag))
	}

	// Preflight: the token must be able to write releases
	ok, err := p.githubClient.CheckWritePermission(ctx, req.Owner, req.Repo)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to verify repository permission")
	}
	if !ok {
		return nil, goerr.New("missing push permission on repository",
			goerr.V("owner", req.Owner), goerr.V("repo", req.Repo))
	}

	dir := req.Dir
	if dir == "" {
		if p.source == nil {
			return nil, goerr.New("no local checkout given and no source fetcher configured")
		}
		ref := req.Commit
		if ref == "" {
			ref = req.Tag
		}
		checkout, err := p.source.Fetch(ctx, req.Owner, req.Repo, ref)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to fetch source snapshot")
		}
		defer func() {
			if err := os.RemoveAll(checkout.TempDir); err != nil {
				logger.Warn("Failed to clean up source snapshot", "temp_dir", checkout.TempDir, "error", err)
			}
		}()
		dir = checkout.Root
	}

	manifest, err := loadManifest(dir, req.Repo)
	if err != nil {
		return nil, err
	}

	if !manifest.MatchesTag(req.Tag) {
		return nil, goerr.New("tag does not match the configured pattern",
			goerr.V("tag", req.Tag), goerr.V("pattern", manifest.TagPattern))
	}

	targets, err := manifest.ParsedTargets()
	if err != nil {
		return nil, err
	}

	// Rendered archive names must be unique per target in one run
	names := map[string]string{}
	for _, t := range targets {
		name, err := manifest.ArchiveName(req.Tag, t)
		if err != nil {
			return nil, err
		}
		if other, ok := names[name]; ok {
			return nil, goerr.New("archive name template yields duplicate names",
				goerr.V("name", name), goerr.V("targets", []string{other, t.String()}))
		}
		names[name] = t.String()
	}

	run := model.NewPipelineRun(req.Owner, req.Repo, req.Tag, req.Commit, targets)
	p.saveRun(ctx, run)
	p.publish(model.RunEvent{
		Type: model.EventRunStarted, RunID: run.ID, Status: string(run.Status), At: time.Now(),
	})

	logger.Info("Starting release pipeline",
		"run_id", run.ID,
		"owner", req.Owner,
		"repo", req.Repo,
		"tag", req.Tag,
		"targets", manifest.Targets,
	)

	run.Status = model.RunRunning
	p.saveRun(ctx, run)

	if err := p.execute(ctx, run, manifest, dir); err != nil {
		run.Finish(model.RunFailed, err)
		p.saveRun(ctx, run)
		p.publish(model.RunEvent{
			Type: model.EventRunFinished, RunID: run.ID, Status: string(run.Status),
			Message: run.Error, At: time.Now(),
		})
		p.notify(ctx, run, manifest)
		return run, err
	}

	run.Finish(model.RunSucceeded, nil)
	p.saveRun(ctx, run)
	p.publish(model.RunEvent{
		Type: model.EventRunFinished, RunID: run.ID, Status: string(run.Status), At: time.Now(),
	})
	p.notify(ctx, run, manifest)

	logger.Info("Release pipeline finished",
		"run_id", run.ID,
		"tag", run.Tag,
		"duration", run.Duration().String(),
	)
	return run, nil
}

// execute runs the release stage, the build matrix and the post stages
func (p *pipeline) execute(ctx context.Context, run *model.PipelineRun, manifest *model.Manifest, dir string) error {
	logger := ctxlog.From(ctx)

	release, err := p.ensureRelease(ctx, run, manifest)
	if err != nil {
		p.cancelQueuedJobs(ctx, run)
		return err
	}

	outDir, err := os.MkdirTemp("", "ruku-dist-*")
	if err != nil {
		p.cancelQueuedJobs(ctx, run)
		return goerr.Wrap(err, "failed to create dist directory")
	}
	defer func() {
		if err := os.RemoveAll(outDir); err != nil {
			logger.Warn("Failed to clean up dist directory", "dir", outDir, "error", err)
		}
	}()

	targets, err := manifest.ParsedTargets()
	if err != nil {
		return err
	}

	// Build matrix: the release above is guaranteed to exist before any
	// build starts
	sums := map[string]string{}
	var sumsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, target := range targets {
		g.Go(func() error {
			name, sum, err := p.runJob(gctx, run, manifest, dir, outDir, target, release)
			if err != nil {
				return err
			}
			sumsMu.Lock()
			sums[name] = sum
			sumsMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.cancelQueuedJobs(ctx, run)
		return err
	}

	archives := make([]string, 0, len(sums))
	for name := range sums {
		archives = append(archives, filepath.Join(outDir, name))
	}

	if manifest.ChecksumEnabled() {
		sumsPath := filepath.Join(outDir, manifest.ChecksumFileName(run.Tag))
		if err := archive.WriteChecksums(sumsPath, sums); err != nil {
			return err
		}
		if err := p.uploadAsset(ctx, run, release.ID, sumsPath); err != nil {
			return err
		}
		archives = append(archives, sumsPath)
	}

	p.mirrorArchives(ctx, run, manifest, archives)

	return nil
}

// ensureRelease makes sure a GitHub release exists for the tag, creating it
// when missing
func (p *pipeline) ensureRelease(ctx context.Context, run *model.PipelineRun, manifest *model.Manifest) (*model.Release, error) {
	logger := ctxlog.From(ctx)

	release, err := p.githubClient.GetReleaseByTag(ctx, run.Owner, run.Repo, run.Tag)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up release", goerr.V("tag", run.Tag))
	}
	if release != nil {
		logger.Info("Release already exists", "tag", run.Tag, "release_id", release.ID)
		return release, nil
	}

	body := p.generateNotes(ctx, run)

	release, err = p.githubClient.CreateRelease(ctx, run.Owner, run.Repo, &model.ReleaseParams{
		TagName:    run.Tag,
		Name:       run.Tag,
		Body:       body,
		Commitish:  run.Commit,
		Draft:      manifest.Release.Draft,
		Prerelease: manifest.IsPrerelease(run.Tag),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create release", goerr.V("tag", run.Tag))
	}

	logger.Info("Created release", "tag", run.Tag, "release_id", release.ID, "url", release.URL)
	return release, nil
}

// generateNotes produces the release body. Notes generation is best effort: a
// failure falls back to an empty body.
func (p *pipeline) generateNotes(ctx context.Context, run *model.PipelineRun) string {
	if p.notes == nil {
		return ""
	}
	logger := ctxlog.From(ctx)

	head := run.Commit
	if head == "" {
		head = run.Tag
	}
	commits, err := p.githubClient.ListCommitSubjects(ctx, run.Owner, run.Repo, head, 50)
	if err != nil {
		logger.Warn("Failed to list commits for release notes", "error", err)
		return ""
	}

	body, err := p.notes.Generate(ctx, &model.NotesInput{
		Owner:   run.Owner,
		Repo:    run.Repo,
		Tag:     run.Tag,
		Commits: commits,
	})
	if err != nil {
		logger.Warn("Failed to generate release notes", "error", err)
		return ""
	}
	return body
}

// runJob builds, packages and uploads one matrix target. Returns the archive
// name and its SHA-256 digest.
func (p *pipeline) runJob(ctx context.Context, run *model.PipelineRun, manifest *model.Manifest, dir, outDir string, target model.Target, release *model.Release) (string, string, error) {
	logger := ctxlog.From(ctx)

	job := run.Job(target.String())
	p.updateJob(ctx, run, job, func() {
		job.Status = model.JobBuilding
		job.StartedAt = time.Now()
	})

	jobDir, err := os.MkdirTemp(outDir, "build-"+target.Label()+"-*")
	if err != nil {
		return "", "", p.failJob(ctx, run, job, goerr.Wrap(err, "failed to create build directory"))
	}

	binary, err := p.builder.Build(ctx, &model.BuildInput{
		Dir:     dir,
		Main:    manifest.Build.Main,
		Target:  target,
		Tag:     run.Tag,
		Version: model.VersionFromTag(run.Tag),
		Commit:  run.Commit,
		LDFlags: manifest.Build.LDFlags,
		Env:     manifest.Build.Env,
		Command: manifest.Build.Command,
		Binary:  manifest.Build.Binary,
		OutDir:  jobDir,
		Name:    manifest.Name,
	})
	if err != nil {
		return "", "", p.failJob(ctx, run, job, err)
	}

	p.updateJob(ctx, run, job, func() { job.Status = model.JobPackaging })

	name, err := manifest.ArchiveName(run.Tag, target)
	if err != nil {
		return "", "", p.failJob(ctx, run, job, err)
	}

	archivePath := filepath.Join(outDir, name)
	entries := archiveEntries(binary, dir, manifest.Archive.ExtraFiles)
	if err := archive.Create(archivePath, entries); err != nil {
		return "", "", p.failJob(ctx, run, job, err)
	}

	sum, err := archive.SHA256(archivePath)
	if err != nil {
		return "", "", p.failJob(ctx, run, job, err)
	}

	p.updateJob(ctx, run, job, func() {
		job.Status = model.JobUploading
		job.Archive = name
		job.Checksum = sum
	})

	if err := p.uploadAsset(ctx, run, release.ID, archivePath); err != nil {
		return "", "", p.failJob(ctx, run, job, err)
	}

	p.updateJob(ctx, run, job, func() {
		job.Status = model.JobSucceeded
		job.FinishedAt = time.Now()
	})

	logger.Info("Built and uploaded archive",
		"run_id", run.ID,
		"target", target.String(),
		"archive", name,
		"sha256", sum,
	)
	return name, sum, nil
}

// uploadAsset uploads one file, retrying once on a transient error
func (p *pipeline) uploadAsset(ctx context.Context, run *model.PipelineRun, releaseID int64, path string) error {
	logger := ctxlog.From(ctx)

	_, err := p.githubClient.UploadReleaseAsset(ctx, run.Owner, run.Repo, releaseID, path)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	logger.Warn("Asset upload failed, retrying once",
		"asset", filepath.Base(path), "error", err)

	if _, err := p.githubClient.UploadReleaseAsset(ctx, run.Owner, run.Repo, releaseID, path); err != nil {
		return goerr.Wrap(err, "failed to upload asset", goerr.V("asset", filepath.Base(path)))
	}
	return nil
}

// mirrorArchives copies archives to object storage. Mirroring failures do not
// fail the run: the assets are already on the release.
func (p *pipeline) mirrorArchives(ctx context.Context, run *model.PipelineRun, manifest *model.Manifest, paths []string) {
	if p.mirror == nil || !manifest.MirrorEnabled() {
		return
	}
	logger := ctxlog.From(ctx)

	for _, path := range paths {
		key := mirrorKey(manifest.Mirror.Prefix, manifest.Name, run.Tag, filepath.Base(path))
		if err := p.mirror.Put(ctx, key, path, contentTypeFor(path)); err != nil {
			logger.Warn("Failed to mirror archive", "key", key, "error", err)
			continue
		}
		logger.Info("Mirrored archive", "key", key)
	}
}

// notify posts the run result. Notification failures are logged only.
func (p *pipeline) notify(ctx context.Context, run *model.PipelineRun, manifest *model.Manifest) {
	if p.notifier == nil || manifest == nil || !manifest.NotifyEnabled() {
		return
	}
	if err := p.notifier.NotifyRunResult(ctx, run); err != nil {
		ctxlog.From(ctx).Warn("Failed to send run notification", "run_id", run.ID, "error", err)
	}
}

// failJob marks a job as failed and returns the error for errgroup
func (p *pipeline) failJob(ctx context.Context, run *model.PipelineRun, job *model.JobResult, err error) error {
	p.updateJob(ctx, run, job, func() {
		job.Status = model.JobFailed
		job.Error = err.Error()
		job.FinishedAt = time.Now()
	})
	return goerr.Wrap(err, "build job failed", goerr.V("target", job.Target))
}

// cancelQueuedJobs marks jobs that never ran as cancelled
func (p *pipeline) cancelQueuedJobs(ctx context.Context, run *model.PipelineRun) {
	p.mu.Lock()
	for _, job := range run.Jobs {
		if job.Status == model.JobQueued {
			job.Status = model.JobCancelled
		}
	}
	p.mu.Unlock()
	p.saveRun(ctx, run)
}

// updateJob applies a job mutation under the run lock, persists the run and
// publishes a job event
func (p *pipeline) updateJob(ctx context.Context, run *model.PipelineRun, job *model.JobResult, fn func()) {
	p.mu.Lock()
	fn()
	p.mu.Unlock()

	p.saveRun(ctx, run)
	p.publish(model.RunEvent{
		Type:    model.EventJobUpdated,
		RunID:   run.ID,
		Target:  job.Target,
		Status:  string(job.Status),
		Message: job.Error,
		At:      time.Now(),
	})
}

// saveRun persists the run snapshot. Persistence failures must not abort the
// pipeline, so they are logged only.
func (p *pipeline) saveRun(ctx context.Context, run *model.PipelineRun) {
	if p.store == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.SaveRun(ctx, run); err != nil {
		ctxlog.From(ctx).Warn("Failed to persist run", "run_id", run.ID, "error", err)
	}
}

func (p *pipeline) publish(ev model.RunEvent) {
	if p.events != nil {
		p.events.Publish(ev)
	}
}

// loadManifest reads ruku.toml from the project root, falling back to
// defaults when the file does not exist
func loadManifest(dir, repoName string) (*model.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, model.ManifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return model.DefaultManifest(repoName), nil
		}
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.V("dir", dir))
	}
	return model.ParseManifest(data, repoName)
}

// archiveEntries lists the files packed into one archive: the binary at the
// archive root plus LICENSE/README and any configured extra files that exist
func archiveEntries(binary, dir string, extra []string) []archive.Entry {
	entries := []archive.Entry{
		{Source: binary, Name: filepath.Base(binary), Mode: 0755},
	}

	candidates := append(append([]string{}, autoExtraFiles...), extra...)
	seen := map[string]struct{}{}
	for _, name := range candidates {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		entries = append(entries, archive.Entry{Source: path, Name: name, Mode: 0644})
	}
	return entries
}

func mirrorKey(prefix, name, tag, file string) string {
	key := name + "/" + tag + "/" + file
	if prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".gz":
		return "application/gzip"
	case ".zip":
		return "application/zip"
	default:
		return "text/plain"
	}
}

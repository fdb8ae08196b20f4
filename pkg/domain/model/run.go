package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a pipeline run
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// JobStatus represents the lifecycle state of one build matrix job
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobBuilding  JobStatus = "building"
	JobPackaging JobStatus = "packaging"
	JobUploading JobStatus = "uploading"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// PipelineRun records one execution of the release pipeline for a tag
type PipelineRun struct {
	ID         string       `json:"id"`
	Owner      string       `json:"owner"`
	Repo       string       `json:"repo"`
	Tag        string       `json:"tag"`
	Commit     string       `json:"commit"`
	Status     RunStatus    `json:"status"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitempty"`
	Jobs       []*JobResult `json:"jobs"`
}

// JobResult records the outcome of one build matrix entry
type JobResult struct {
	Target     string    `json:"target"`
	Status     JobStatus `json:"status"`
	Archive    string    `json:"archive,omitempty"`
	Checksum   string    `json:"checksum,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewPipelineRun creates a queued run with one queued job per target
func NewPipelineRun(owner, repo, tag, commit string, targets []Target) *PipelineRun {
	run := &PipelineRun{
		ID:        uuid.NewString(),
		Owner:     owner,
		Repo:      repo,
		Tag:       tag,
		Commit:    commit,
		Status:    RunQueued,
		StartedAt: time.Now(),
	}
	for _, t := range targets {
		run.Jobs = append(run.Jobs, &JobResult{
			Target: t.String(),
			Status: JobQueued,
		})
	}
	return run
}

// Job returns the job result for a target, or nil if unknown
func (r *PipelineRun) Job(target string) *JobResult {
	for _, j := range r.Jobs {
		if j.Target == target {
			return j
		}
	}
	return nil
}

// Finish marks the run as terminated with the given status
func (r *PipelineRun) Finish(status RunStatus, err error) {
	r.Status = status
	r.FinishedAt = time.Now()
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns the elapsed run time. For an unfinished run it is the
// time since start.
func (r *PipelineRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Archives returns the archive names of all succeeded jobs
func (r *PipelineRun) Archives() []string {
	var names []string
	for _, j := range r.Jobs {
		if j.Status == JobSucceeded && j.Archive != "" {
			names = append(names, j.Archive)
		}
	}
	return names
}

// FailedTargets returns the targets of all failed jobs
func (r *PipelineRun) FailedTargets() []string {
	var targets []string
	for _, j := range r.Jobs {
		if j.Status == JobFailed {
			targets = append(targets, j.Target)
		}
	}
	return targets
}

// RunEventType classifies pipeline run events
type RunEventType string

const (
	EventRunStarted  RunEventType = "run_started"
	EventRunFinished RunEventType = "run_finished"
	EventJobUpdated  RunEventType = "job_updated"
)

// RunEvent is published on each run and job state transition
type RunEvent struct {
	Type    RunEventType `json:"type"`
	RunID   string       `json:"run_id"`
	Target  string       `json:"target,omitempty"`
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	At      time.Time    `json:"at"`
}

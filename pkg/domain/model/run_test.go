package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/RukuLab/ruku/pkg/domain/model"
)

func TestNewPipelineRun(t *testing.T) {
	targets := []model.Target{
		{OS: "linux", Arch: "amd64"},
		{OS: "darwin", Arch: "arm64"},
	}

	run := model.NewPipelineRun("owner", "repo", "v1.0.0", "abc123", targets)

	gt.Value(t, run.ID).NotEqual("")
	gt.Value(t, run.Status).Equal(model.RunQueued)
	gt.Number(t, len(run.Jobs)).Equal(2)
	gt.Value(t, run.Job("linux/amd64").Status).Equal(model.JobQueued)
	gt.Value(t, run.Job("plan9/386")).Nil()
}

func TestPipelineRun_Finish(t *testing.T) {
	run := model.NewPipelineRun("owner", "repo", "v1.0.0", "abc123", nil)

	run.Finish(model.RunFailed, errors.New("build failed"))

	gt.Value(t, run.Status).Equal(model.RunFailed)
	gt.Value(t, run.Error).Equal("build failed")
	gt.Value(t, run.FinishedAt.IsZero()).Equal(false)
}

func TestPipelineRun_Archives(t *testing.T) {
	run := model.NewPipelineRun("owner", "repo", "v1.0.0", "abc123", []model.Target{
		{OS: "linux", Arch: "amd64"},
		{OS: "darwin", Arch: "arm64"},
	})

	run.Job("linux/amd64").Status = model.JobSucceeded
	run.Job("linux/amd64").Archive = "repo_v1.0.0_linux_amd64.tar.gz"
	run.Job("darwin/arm64").Status = model.JobFailed

	gt.Number(t, len(run.Archives())).Equal(1)
	gt.Number(t, len(run.FailedTargets())).Equal(1)
	gt.Value(t, run.FailedTargets()[0]).Equal("darwin/arm64")
}

package build_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/infra/build"
)

func TestBuilder_CommandOverride(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	builder := build.NewBuilder()

	binary, err := builder.Build(ctx, &model.BuildInput{
		Dir:     dir,
		Target:  model.Target{OS: "linux", Arch: "amd64"},
		Tag:     "v1.0.0",
		Version: "1.0.0",
		Name:    "ruku",
		Command: "printf 'fake binary' > out_{{.Target}}",
		Binary:  "out_{{.Target}}",
	})
	gt.NoError(t, err)
	gt.Value(t, binary).Equal(filepath.Join(dir, "out_linux_amd64"))

	content, err := os.ReadFile(binary)
	gt.NoError(t, err)
	gt.String(t, string(content)).Contains("fake binary")
}

func TestBuilder_CommandEnv(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	builder := build.NewBuilder()

	// Target OS and arch are exported to the command environment
	binary, err := builder.Build(ctx, &model.BuildInput{
		Dir:     dir,
		Target:  model.Target{OS: "darwin", Arch: "arm64"},
		Name:    "ruku",
		Command: `printf '%s/%s' "$RUKU_TARGET_OS" "$RUKU_TARGET_ARCH" > out`,
		Binary:  "out",
	})
	gt.NoError(t, err)

	content, err := os.ReadFile(binary)
	gt.NoError(t, err)
	gt.Value(t, string(content)).Equal("darwin/arm64")
}

func TestBuilder_CommandWithoutBinary(t *testing.T) {
	ctx := context.Background()

	builder := build.NewBuilder()

	_, err := builder.Build(ctx, &model.BuildInput{
		Dir:     t.TempDir(),
		Target:  model.Target{OS: "linux", Arch: "amd64"},
		Name:    "ruku",
		Command: "true",
	})
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("build.binary is required")
}

func TestBuilder_CommandMissingBinary(t *testing.T) {
	ctx := context.Background()

	builder := build.NewBuilder()

	_, err := builder.Build(ctx, &model.BuildInput{
		Dir:     t.TempDir(),
		Target:  model.Target{OS: "linux", Arch: "amd64"},
		Name:    "ruku",
		Command: "true",
		Binary:  "never-created",
	})
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("did not produce binary")
}

func TestBuilder_CommandFailure(t *testing.T) {
	ctx := context.Background()

	builder := build.NewBuilder()

	_, err := builder.Build(ctx, &model.BuildInput{
		Dir:     t.TempDir(),
		Target:  model.Target{OS: "linux", Arch: "amd64"},
		Name:    "ruku",
		Command: "exit 3",
		Binary:  "out",
	})
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("build command failed")
}

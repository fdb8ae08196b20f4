// Package build compiles project binaries for the release matrix. The
// default builder invokes the Go toolchain with GOOS/GOARCH set per target;
// a manifest build command overrides it for non-Go projects.
package build

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
)

type builder struct{}

// NewBuilder creates the default cross builder
func NewBuilder() interfaces.Builder {
	return &builder{}
}

// Build compiles one target and returns the absolute binary path
func (b *builder) Build(ctx context.Context, input *model.BuildInput) (string, error) {
	logger := ctxlog.From(ctx)

	if input.Command != "" {
		return b.buildWithCommand(ctx, input)
	}

	out := filepath.Join(input.OutDir, input.Name)
	if input.Target.IsWindows() {
		out += ".exe"
	}

	args := []string{"build", "-trimpath"}
	if input.LDFlags != "" {
		ldflags, err := expand(input.LDFlags, input)
		if err != nil {
			return "", err
		}
		args = append(args, "-ldflags", ldflags)
	}
	args = append(args, "-o", out, input.Main)

	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = input.Dir
	cmd.Env = append(os.Environ(),
		"GOOS="+input.Target.OS,
		"GOARCH="+input.Target.Arch,
		"CGO_ENABLED=0",
	)
	cmd.Env = append(cmd.Env, input.Env...)

	logger.Debug("Running go build",
		"target", input.Target.String(),
		"dir", input.Dir,
		"output", out,
	)

	if outBytes, err := cmd.CombinedOutput(); err != nil {
		return "", goerr.Wrap(err, "go build failed",
			goerr.V("target", input.Target.String()),
			goerr.V("output", string(outBytes)))
	}

	return out, nil
}

// buildWithCommand runs the manifest build command via the shell. The command
// and the binary path template are expanded per target.
func (b *builder) buildWithCommand(ctx context.Context, input *model.BuildInput) (string, error) {
	logger := ctxlog.From(ctx)

	command, err := expand(input.Command, input)
	if err != nil {
		return "", err
	}

	if input.Binary == "" {
		return "", goerr.New("build.binary is required when build.command is set")
	}
	binary, err := expand(input.Binary, input)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(binary) {
		binary = filepath.Join(input.Dir, binary)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = input.Dir
	cmd.Env = append(os.Environ(),
		"RUKU_TARGET_OS="+input.Target.OS,
		"RUKU_TARGET_ARCH="+input.Target.Arch,
	)
	cmd.Env = append(cmd.Env, input.Env...)

	logger.Debug("Running build command",
		"target", input.Target.String(),
		"command", command,
	)

	if outBytes, err := cmd.CombinedOutput(); err != nil {
		return "", goerr.Wrap(err, "build command failed",
			goerr.V("target", input.Target.String()),
			goerr.V("command", command),
			goerr.V("output", string(outBytes)))
	}

	if _, err := os.Stat(binary); err != nil {
		return "", goerr.Wrap(err, "build command did not produce binary",
			goerr.V("target", input.Target.String()),
			goerr.V("binary", binary))
	}

	return binary, nil
}

// expand renders a build template against the build input. Available fields:
// {{.Name}}, {{.Tag}}, {{.Version}}, {{.Commit}}, {{.OS}}, {{.Arch}},
// {{.Target}}.
func expand(s string, input *model.BuildInput) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	tmpl, err := template.New("build").Parse(s)
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse build template", goerr.V("template", s))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string{
		"Name":    input.Name,
		"Tag":     input.Tag,
		"Version": input.Version,
		"Commit":  input.Commit,
		"OS":      input.Target.OS,
		"Arch":    input.Target.Arch,
		"Target":  input.Target.Label(),
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render build template", goerr.V("template", s))
	}
	return buf.String(), nil
}

// Package git resolves tag and commit information from a local checkout by
// shelling out to the git command.
package git

import (
	"context"
	"os/exec"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Resolver reads release information from a local git repository
type Resolver struct {
	dir string
}

// NewResolver creates a resolver for the repository at dir
func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Tag returns the tag pointing at HEAD
func (r *Resolver) Tag(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "describe", "--tags", "--exact-match")
	if err != nil {
		return "", goerr.Wrap(err, "HEAD is not tagged, specify --tag explicitly")
	}
	return out, nil
}

// Commit returns the commit SHA of HEAD
func (r *Resolver) Commit(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve HEAD commit")
	}
	return out, nil
}

func (r *Resolver) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir

	out, err := cmd.Output()
	if err != nil {
		return "", goerr.Wrap(err, "git command failed", goerr.V("args", args))
	}
	return strings.TrimSpace(string(out)), nil
}

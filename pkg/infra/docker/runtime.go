// Package docker implements container deployment against the Docker Engine
// API.
package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
)

type runtime struct {
	docker *client.Client
}

// NewRuntime creates a container runtime using the Docker Engine API. With an
// empty host the client is configured from the environment (DOCKER_HOST etc).
func NewRuntime(host string) (interfaces.ContainerRuntime, error) {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	docker, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Docker client")
	}

	return &runtime{docker: docker}, nil
}

// ImageExists reports whether the image is present locally
func (r *runtime) ImageExists(ctx context.Context, ref string) (bool, error) {
	images, err := r.docker.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", ref)),
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to list images", goerr.V("image", ref))
	}
	return len(images) > 0, nil
}

// PullImage pulls the image from its registry
func (r *runtime) PullImage(ctx context.Context, ref string) error {
	logger := ctxlog.From(ctx)
	logger.Info("Pulling image", "image", ref)

	rc, err := r.docker.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return goerr.Wrap(err, "failed to pull image", goerr.V("image", ref))
	}
	defer rc.Close()

	// Pull progress must be drained for the pull to complete
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return goerr.Wrap(err, "failed to read pull progress", goerr.V("image", ref))
	}
	return nil
}

// FindContainer returns the ID of a container named name, or "" when none
// exists
func (r *runtime) FindContainer(ctx context.Context, name string) (string, error) {
	containers, err := r.docker.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to list containers", goerr.V("name", name))
	}

	// The name filter matches substrings; require an exact name
	for _, c := range containers {
		for _, n := range c.Names {
			if n == "/"+name {
				return c.ID, nil
			}
		}
	}
	return "", nil
}

// RemoveContainer stops and removes a container
func (r *runtime) RemoveContainer(ctx context.Context, id string) error {
	if err := r.docker.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return goerr.Wrap(err, "failed to stop container", goerr.V("container_id", id))
	}
	if err := r.docker.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return goerr.Wrap(err, "failed to remove container", goerr.V("container_id", id))
	}
	return nil
}

// CreateContainer creates a container and returns its ID. The service port is
// published as 0.0.0.0:port on the host, matching the container port.
func (r *runtime) CreateContainer(ctx context.Context, spec *model.ContainerSpec) (string, error) {
	port := nat.Port(fmt.Sprintf("%d/tcp", spec.Port))

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{
				{
					HostIP:   "0.0.0.0",
					HostPort: strconv.Itoa(spec.Port),
				},
			},
		},
		Binds: spec.Volumes,
	}
	if spec.RestartAlways {
		hostConfig.RestartPolicy = container.RestartPolicy{Name: container.RestartPolicyAlways}
	}

	resp, err := r.docker.ContainerCreate(ctx,
		&container.Config{
			Image: spec.Image,
			Env:   spec.Env,
			ExposedPorts: nat.PortSet{
				port: struct{}{},
			},
		},
		hostConfig,
		nil, nil, spec.Name,
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create container",
			goerr.V("name", spec.Name), goerr.V("image", spec.Image))
	}

	return resp.ID, nil
}

// StartContainer starts a created container
func (r *runtime) StartContainer(ctx context.Context, id string) error {
	if err := r.docker.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return goerr.Wrap(err, "failed to start container", goerr.V("container_id", id))
	}
	return nil
}

package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
)

type deployUseCase struct {
	runtime interfaces.ContainerRuntime
}

// NewDeploy creates a new instance of DeployUseCase
func NewDeploy(runtime interfaces.ContainerRuntime) interfaces.DeployUseCase {
	return &deployUseCase{
		runtime: runtime,
	}
}

// Deploy runs the requested version as a container: pull the image per
// policy, replace any existing container of the same name, create with the
// host port bound on 0.0.0.0, then start. Returns the container ID.
func (uc *deployUseCase) Deploy(ctx context.Context, req *model.DeployRequest) (string, error) {
	logger := ctxlog.From(ctx)

	if err := req.Validate(); err != nil {
		return "", err
	}

	image := req.ImageRef()
	logger.Info("Deploying service",
		"service", req.Service,
		"image", image,
		"port", req.Port,
	)

	if err := uc.ensureImage(ctx, image, req.PullPolicy); err != nil {
		return "", err
	}

	// Replace an existing container of the same name instead of failing
	existing, err := uc.runtime.FindContainer(ctx, req.Service)
	if err != nil {
		return "", goerr.Wrap(err, "failed to look up existing container", goerr.V("service", req.Service))
	}
	if existing != "" {
		logger.Info("Removing existing container", "service", req.Service, "container_id", existing)
		if err := uc.runtime.RemoveContainer(ctx, existing); err != nil {
			return "", goerr.Wrap(err, "failed to remove existing container", goerr.V("container_id", existing))
		}
	}

	id, err := uc.runtime.CreateContainer(ctx, &model.ContainerSpec{
		Name:          req.Service,
		Image:         image,
		Port:          req.Port,
		Env:           req.Env,
		Volumes:       req.Volumes,
		RestartAlways: true,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create container", goerr.V("service", req.Service))
	}
	logger.Info("Created container", "container_id", id)

	if err := uc.runtime.StartContainer(ctx, id); err != nil {
		return "", goerr.Wrap(err, "failed to start container", goerr.V("container_id", id))
	}
	logger.Info("Started container", "container_id", id)

	return id, nil
}

// ensureImage pulls the image unless it is present and the policy only pulls
// missing images
func (uc *deployUseCase) ensureImage(ctx context.Context, image string, policy model.PullPolicy) error {
	if policy == model.PullMissing {
		exists, err := uc.runtime.ImageExists(ctx, image)
		if err != nil {
			return goerr.Wrap(err, "failed to check image presence", goerr.V("image", image))
		}
		if exists {
			ctxlog.From(ctx).Debug("Image present, skipping pull", "image", image)
			return nil
		}
	}

	if err := uc.runtime.PullImage(ctx, image); err != nil {
		return goerr.Wrap(err, "failed to pull image", goerr.V("image", image))
	}
	return nil
}

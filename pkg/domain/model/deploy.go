package model

import "github.com/m-mizutani/goerr/v2"

// PullPolicy controls when the deploy image is pulled
type PullPolicy string

const (
	PullAlways  PullPolicy = "always"
	PullMissing PullPolicy = "missing"
)

// DeployRequest describes one requested container deployment
type DeployRequest struct {
	Service    string
	Repository string
	Version    string
	Port       int
	Env        []string
	Volumes    []string
	PullPolicy PullPolicy
}

// Validate checks the request for errors before touching the runtime
func (r *DeployRequest) Validate() error {
	if r.Service == "" {
		return goerr.New("deploy service name is empty")
	}
	if r.Repository == "" {
		return goerr.New("deploy image repository is empty")
	}
	if r.Version == "" {
		return goerr.New("deploy version is empty")
	}
	if r.Port < 1 || r.Port > 65535 {
		return goerr.New("deploy port out of range", goerr.V("port", r.Port))
	}
	return nil
}

// ImageRef returns the image reference addressed as repository:version
func (r *DeployRequest) ImageRef() string {
	return r.Repository + ":" + r.Version
}

// ContainerSpec describes the container to create for a deployment
type ContainerSpec struct {
	Name          string
	Image         string
	Port          int // Host port 0.0.0.0:Port bound to the same container port
	Env           []string
	Volumes       []string
	RestartAlways bool
}

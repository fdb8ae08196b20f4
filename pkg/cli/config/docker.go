package config

import (
	"github.com/urfave/cli/v3"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	dockerinfra "github.com/RukuLab/ruku/pkg/infra/docker"
)

// Docker holds container runtime configuration
type Docker struct {
	Host string
}

// Flags returns CLI flags for Docker configuration
func (c *Docker) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "docker-host",
			Usage:       "Docker daemon address (default: from environment)",
			Destination: &c.Host,
			Sources:     cli.EnvVars("RUKU_DOCKER_HOST"),
		},
	}
}

// Runtime builds the container runtime client
func (c *Docker) Runtime() (interfaces.ContainerRuntime, error) {
	return dockerinfra.NewRuntime(c.Host)
}

package config

import "github.com/urfave/cli/v3"

// Server holds server configuration
type Server struct {
	Addr       string
	TagPattern string
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("RUKU_ADDR"),
		},
		&cli.StringFlag{
			Name:        "tag-pattern",
			Usage:       "Glob pattern of tags that trigger the pipeline",
			Value:       "v*",
			Destination: &c.TagPattern,
			Sources:     cli.EnvVars("RUKU_TAG_PATTERN"),
		},
	}
}

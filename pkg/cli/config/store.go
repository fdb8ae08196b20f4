package config

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/RukuLab/ruku/pkg/infra/runstore"
)

// Store holds run history database configuration
type Store struct {
	Path string
}

// Flags returns CLI flags for store configuration
func (c *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "db",
			Usage:       "Path to the run history database (default: ~/.ruku/runs.db)",
			Destination: &c.Path,
			Sources:     cli.EnvVars("RUKU_DB"),
		},
	}
}

// Open opens the run history database, creating it when needed
func (c *Store) Open() (*runstore.Store, error) {
	path := c.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve home directory, set --db explicitly")
		}
		path = filepath.Join(home, ".ruku", "runs.db")
	}
	return runstore.New(path)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/RukuLab/ruku/pkg/cli/config"
	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/usecase"
)

func cmdDeploy() *cli.Command {
	var (
		dockerCfg config.Docker

		dir     string
		version string
	)

	flags := append(dockerCfg.Flags(),
		&cli.StringFlag{
			Name:        "dir",
			Usage:       "Directory containing ruku.toml",
			Value:       ".",
			Destination: &dir,
		},
		&cli.StringFlag{
			Name:        "version",
			Usage:       "Version to deploy (overrides the manifest)",
			Destination: &version,
		},
	)

	return &cli.Command{
		Name:    "deploy",
		Aliases: []string{"d"},
		Usage:   "Run a released version as a container",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			data, err := os.ReadFile(filepath.Join(dir, model.ManifestFileName))
			if err != nil {
				return goerr.Wrap(err, "failed to read manifest, deploy requires ruku.toml",
					goerr.V("dir", dir))
			}
			manifest, err := model.ParseManifest(data, filepath.Base(dir))
			if err != nil {
				return err
			}

			if version == "" {
				version = manifest.Deploy.Version
			}

			runtime, err := dockerCfg.Runtime()
			if err != nil {
				return err
			}

			deployUC := usecase.NewDeploy(runtime)

			id, err := deployUC.Deploy(ctx, &model.DeployRequest{
				Service:    manifest.Deploy.Service,
				Repository: manifest.Deploy.Repository,
				Version:    version,
				Port:       manifest.Deploy.Port,
				Env:        manifest.Deploy.Env,
				Volumes:    manifest.Deploy.Volumes,
				PullPolicy: model.PullPolicy(manifest.Deploy.PullPolicy),
			})
			if err != nil {
				return err
			}

			logger.Info("Deployment complete",
				"service", manifest.Deploy.Service,
				"version", version,
				"container_id", id,
			)
			fmt.Printf("%s %s %s (container %s)\n",
				color.GreenString("deployed"), manifest.Deploy.Service, version, id[:12])
			return nil
		},
	}
}

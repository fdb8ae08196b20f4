package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"

	"github.com/RukuLab/ruku/pkg/cli/config"
	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/infra/build"
	"github.com/RukuLab/ruku/pkg/infra/git"
	"github.com/RukuLab/ruku/pkg/usecase"
)

func cmdRelease() *cli.Command {
	var (
		githubCfg config.GitHub
		storeCfg  config.Store
		mirrorCfg config.Mirror
		slackCfg  config.Slack
		geminiCfg config.Gemini

		repoFlag string
		tag      string
		commit   string
		dir      string
	)

	flags := append(githubCfg.Flags(), storeCfg.Flags()...)
	flags = append(flags, mirrorCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Repository in owner/name form",
			Required:    true,
			Destination: &repoFlag,
			Sources:     cli.EnvVars("RUKU_REPO"),
		},
		&cli.StringFlag{
			Name:        "tag",
			Usage:       "Release tag (default: tag of HEAD in --dir)",
			Destination: &tag,
		},
		&cli.StringFlag{
			Name:        "commit",
			Usage:       "Commit SHA to release (default: HEAD of --dir)",
			Destination: &commit,
		},
		&cli.StringFlag{
			Name:        "dir",
			Usage:       "Local checkout to release from",
			Value:       ".",
			Destination: &dir,
		},
	)

	return &cli.Command{
		Name:    "release",
		Aliases: []string{"r"},
		Usage:   "Run the release pipeline for a tag",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			owner, repo, ok := strings.Cut(repoFlag, "/")
			if !ok || owner == "" || repo == "" {
				return fmt.Errorf("invalid --repo, expected owner/name: %s", repoFlag)
			}

			// Resolve tag and commit from the checkout when not given
			resolver := git.NewResolver(dir)
			if tag == "" {
				var err error
				if tag, err = resolver.Tag(ctx); err != nil {
					return err
				}
			}
			if commit == "" {
				var err error
				if commit, err = resolver.Commit(ctx); err != nil {
					return err
				}
			}

			githubClient, err := githubCfg.Client()
			if err != nil {
				return err
			}

			mirror, err := mirrorCfg.Configure(ctx)
			if err != nil {
				return err
			}

			pipelineOpts := []usecase.PipelineOption{}
			if store, err := storeCfg.Open(); err == nil {
				defer store.Close()
				pipelineOpts = append(pipelineOpts, usecase.WithRunStore(store))
			} else {
				logger.Warn("Run history disabled", "error", err)
			}
			if mirror != nil {
				pipelineOpts = append(pipelineOpts, usecase.WithMirror(mirror))
			}
			if notifier := slackCfg.Notifier(); notifier != nil {
				pipelineOpts = append(pipelineOpts, usecase.WithNotifier(notifier))
			}
			if geminiCfg.Enabled() {
				llmClient, err := geminiCfg.Configure(ctx)
				if err != nil {
					return err
				}
				notes, err := usecase.NewNotesGenerator(llmClient)
				if err != nil {
					return err
				}
				pipelineOpts = append(pipelineOpts, usecase.WithNotesGenerator(notes))
			}

			pipelineUC := usecase.NewPipeline(githubClient, build.NewBuilder(), pipelineOpts...)

			run, err := pipelineUC.Run(ctx, &model.ReleaseRequest{
				Owner:  owner,
				Repo:   repo,
				Tag:    tag,
				Commit: commit,
				Dir:    dir,
			})
			if run != nil {
				printRunSummary(run)
			}
			return err
		},
	}
}

// printRunSummary prints a colored per-asset summary of a finished run
func printRunSummary(run *model.PipelineRun) {
	header := color.New(color.Bold)
	header.Printf("\n%s %s (%s)\n", run.Owner+"/"+run.Repo, run.Tag, run.Duration().Round(0))

	for _, job := range run.Jobs {
		switch job.Status {
		case model.JobSucceeded:
			fmt.Printf("  %s %-16s %s\n", color.GreenString("✓"), job.Target, job.Archive)
		case model.JobFailed:
			fmt.Printf("  %s %-16s %s\n", color.RedString("✗"), job.Target, job.Error)
		default:
			fmt.Printf("  %s %-16s %s\n", color.YellowString("-"), job.Target, job.Status)
		}
	}

	switch run.Status {
	case model.RunSucceeded:
		color.Green("Release %s published\n", run.Tag)
	default:
		color.Red("Release %s failed: %s\n", run.Tag, run.Error)
	}
}

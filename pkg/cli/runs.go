package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/RukuLab/ruku/pkg/cli/config"
	"github.com/RukuLab/ruku/pkg/domain/model"
)

func cmdRuns() *cli.Command {
	var (
		storeCfg config.Store
		limit    int64
	)

	flags := append(storeCfg.Flags(),
		&cli.Int64Flag{
			Name:        "limit",
			Usage:       "Maximum number of runs to show",
			Value:       20,
			Destination: &limit,
		},
	)

	return &cli.Command{
		Name:  "runs",
		Usage: "Show pipeline run history",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := storeCfg.Open()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(ctx, int(limit))
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}

			for _, run := range runs {
				fmt.Printf("%s  %-9s  %-24s  %-12s  %s\n",
					run.ID[:8],
					statusColor(run.Status),
					run.Owner+"/"+run.Repo,
					run.Tag,
					run.StartedAt.Local().Format(time.DateTime),
				)
			}
			return nil
		},
	}
}

func statusColor(status model.RunStatus) string {
	switch status {
	case model.RunSucceeded:
		return color.GreenString(string(status))
	case model.RunFailed:
		return color.RedString(string(status))
	case model.RunRunning:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}

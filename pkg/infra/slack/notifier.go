// Package slack posts pipeline run results to a Slack incoming webhook.
package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
)

type notifier struct {
	webhookURL string
	channel    string
}

// NewNotifier creates a Slack notifier posting to the given incoming webhook
func NewNotifier(webhookURL, channel string) interfaces.Notifier {
	return &notifier{
		webhookURL: webhookURL,
		channel:    channel,
	}
}

// NotifyRunResult posts a summary of a finished run
func (n *notifier) NotifyRunResult(ctx context.Context, run *model.PipelineRun) error {
	msg := &slack.WebhookMessage{
		Channel:     n.channel,
		Attachments: []slack.Attachment{buildAttachment(run)},
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post Slack notification", goerr.V("run_id", run.ID))
	}
	return nil
}

func buildAttachment(run *model.PipelineRun) slack.Attachment {
	repo := run.Owner + "/" + run.Repo

	if run.Status == model.RunSucceeded {
		return slack.Attachment{
			Color: "good",
			Title: fmt.Sprintf("Release %s of %s published", run.Tag, repo),
			Fields: []slack.AttachmentField{
				{Title: "Assets", Value: strings.Join(run.Archives(), "\n"), Short: false},
				{Title: "Duration", Value: run.Duration().Round(0).String(), Short: true},
			},
		}
	}

	return slack.Attachment{
		Color: "danger",
		Title: fmt.Sprintf("Release %s of %s failed", run.Tag, repo),
		Fields: []slack.AttachmentField{
			{Title: "Failed targets", Value: strings.Join(run.FailedTargets(), ", "), Short: true},
			{Title: "Error", Value: run.Error, Short: false},
		},
	}
}

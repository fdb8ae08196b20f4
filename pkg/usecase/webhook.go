package usecase

import (
	"context"
	"sync"

	"github.com/m-mizutani/ctxlog"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/utils/async"
)

type webhookUseCase struct {
	pipeline   interfaces.PipelineUseCase
	tagPattern string

	mu       sync.Mutex
	inflight map[string]struct{} // owner/repo/tag of currently running pipelines
}

// WebhookOption is a functional option for webhook configuration
type WebhookOption func(*webhookUseCase)

// WithTagPattern overrides the tag glob the server reacts to. The manifest's
// own pattern is still enforced by the pipeline.
func WithTagPattern(pattern string) WebhookOption {
	return func(uc *webhookUseCase) {
		if pattern != "" {
			uc.tagPattern = pattern
		}
	}
}

// NewWebhook creates a new instance of WebhookUseCase
func NewWebhook(pipeline interfaces.PipelineUseCase, opts ...WebhookOption) interfaces.WebhookUseCase {
	uc := &webhookUseCase{
		pipeline:   pipeline,
		tagPattern: model.DefaultTagPattern,
		inflight:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ProcessPushEvent processes a push webhook event. A push of a tag matching
// the pattern dispatches a pipeline run asynchronously; duplicate deliveries
// for a tag with a run still in flight are dropped.
func (uc *webhookUseCase) ProcessPushEvent(ctx context.Context, event *model.WebhookEvent) error {
	logger := ctxlog.From(ctx)

	tag := event.TagName()
	if tag == "" {
		logger.Debug("Ignoring non-tag push", "ref", event.Ref)
		return nil
	}
	if event.Deleted {
		logger.Info("Ignoring tag deletion", "tag", tag)
		return nil
	}
	if !matchTag(uc.tagPattern, tag) {
		logger.Info("Ignoring tag not matching pattern",
			"tag", tag, "pattern", uc.tagPattern)
		return nil
	}

	key := event.Owner + "/" + event.Repo + "/" + tag
	uc.mu.Lock()
	if _, running := uc.inflight[key]; running {
		uc.mu.Unlock()
		logger.Info("Ignoring duplicate delivery, run already in flight",
			"tag", tag, "delivery_id", event.ID)
		return nil
	}
	uc.inflight[key] = struct{}{}
	uc.mu.Unlock()

	logger.Info("Dispatching release pipeline",
		"owner", event.Owner,
		"repo", event.Repo,
		"tag", tag,
		"commit", event.After,
		"delivery_id", event.ID,
	)

	async.Dispatch(ctx, func(ctx context.Context) error {
		defer func() {
			uc.mu.Lock()
			delete(uc.inflight, key)
			uc.mu.Unlock()
		}()

		_, err := uc.pipeline.Run(ctx, &model.ReleaseRequest{
			Owner:  event.Owner,
			Repo:   event.Repo,
			Tag:    tag,
			Commit: event.After,
		})
		return err
	})

	return nil
}

func matchTag(pattern, tag string) bool {
	m := model.Manifest{TagPattern: pattern}
	return m.MatchesTag(tag)
}

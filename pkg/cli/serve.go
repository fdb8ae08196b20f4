package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/RukuLab/ruku/pkg/cli/config"
	controller "github.com/RukuLab/ruku/pkg/controller/http"
	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/infra/build"
	"github.com/RukuLab/ruku/pkg/usecase"
	"github.com/RukuLab/ruku/pkg/utils/topic"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		githubCfg config.GitHub
		storeCfg  config.Store
		mirrorCfg config.Mirror
		slackCfg  config.Slack
		geminiCfg config.Gemini
	)

	flags := append(serverCfg.Flags(), githubCfg.Flags()...)
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, mirrorCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the webhook server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting ruku server",
				slog.String("addr", serverCfg.Addr),
				slog.String("tag_pattern", serverCfg.TagPattern),
			)

			if githubCfg.WebhookSecret == "" {
				return goerr.New("--github-webhook-secret is required in serve mode")
			}

			githubClient, err := githubCfg.Client()
			if err != nil {
				return err
			}

			store, err := storeCfg.Open()
			if err != nil {
				return err
			}
			defer store.Close()

			mirror, err := mirrorCfg.Configure(ctx)
			if err != nil {
				return err
			}

			events := topic.New[model.RunEvent]()

			pipelineOpts := []usecase.PipelineOption{
				usecase.WithSourceFetcher(usecase.NewSourceFetcher(githubClient)),
				usecase.WithRunStore(store),
				usecase.WithEventTopic(events),
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
			webhookUC := usecase.NewWebhook(pipelineUC, usecase.WithTagPattern(serverCfg.TagPattern))

			server, err := controller.NewServer(
				ctx,
				webhookUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
				controller.WithRunStore(store),
				controller.WithEventTopic(events),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	githubinfra "github.com/RukuLab/ruku/pkg/infra/github"
)

// GitHub holds GitHub configuration. Token auth and App auth are mutually
// exclusive; App auth wins when both are set.
type GitHub struct {
	Token          string `masq:"secret"`
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	WebhookSecret  string `masq:"secret"`
	BaseURL        string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub personal access token",
			Destination: &c.Token,
			Sources:     cli.EnvVars("RUKU_GITHUB_TOKEN", "GITHUB_TOKEN"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("RUKU_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("RUKU_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "Path to the GitHub App private key",
			Destination: &c.PrivateKeyPath,
			Sources:     cli.EnvVars("RUKU_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("RUKU_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.StringFlag{
			Name:        "github-base-url",
			Usage:       "GitHub Enterprise Server base URL",
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("RUKU_GITHUB_BASE_URL"),
		},
	}
}

// HasAppAuth reports whether GitHub App credentials are configured
func (c *GitHub) HasAppAuth() bool {
	return c.AppID != 0 && c.InstallationID != 0 && c.PrivateKeyPath != ""
}

// Client builds a GitHub API client from the configured credentials
func (c *GitHub) Client() (interfaces.GitHubClient, error) {
	var opts []githubinfra.Option
	if c.BaseURL != "" {
		opts = append(opts, githubinfra.WithBaseURL(c.BaseURL))
	}

	if c.HasAppAuth() {
		privateKey, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read GitHub App private key", goerr.V("path", c.PrivateKeyPath))
		}
		return githubinfra.NewAppClient(c.AppID, c.InstallationID, privateKey, opts...)
	}

	if c.Token == "" {
		return nil, goerr.New("GitHub credentials required: set --github-token or GitHub App flags")
	}
	return githubinfra.NewClient(c.Token, opts...)
}

package github_test

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	githubinfra "github.com/RukuLab/ruku/pkg/infra/github"
)

func TestNewClient(t *testing.T) {
	client, err := githubinfra.NewClient("dummy-token")
	gt.NoError(t, err)
	gt.Value(t, client).NotNil()
}

func TestNewClient_EnterpriseURL(t *testing.T) {
	client, err := githubinfra.NewClient("dummy-token",
		githubinfra.WithBaseURL("https://github.example.com/api/v3/"))
	gt.NoError(t, err)
	gt.Value(t, client).NotNil()
}

func TestNewAppClient_InvalidKey(t *testing.T) {
	_, err := githubinfra.NewAppClient(123, 456, []byte("not a pem key"))
	gt.Error(t, err)
}

func TestClient_WithRealAPI(t *testing.T) {
	// Integration test with the real GitHub API, gated on a test token
	token := os.Getenv("TEST_GITHUB_TOKEN")
	repoSpec := os.Getenv("TEST_GITHUB_REPO") // owner/repo with an existing tag

	if token == "" || repoSpec == "" {
		t.Skip("Test GitHub credentials not provided via environment variables")
	}

	owner, repo, ok := strings.Cut(repoSpec, "/")
	if !ok {
		t.Fatalf("TEST_GITHUB_REPO must be owner/repo, got %q", repoSpec)
	}

	ctx := context.Background()
	client, err := githubinfra.NewClient(token)
	gt.NoError(t, err)

	t.Run("check write permission", func(t *testing.T) {
		_, err := client.CheckWritePermission(ctx, owner, repo)
		gt.NoError(t, err)
	})

	t.Run("get release for unknown tag", func(t *testing.T) {
		rel, err := client.GetReleaseByTag(ctx, owner, repo, "no-such-tag-ever")
		gt.NoError(t, err)
		gt.Value(t, rel).Nil()
	})

	if tag := os.Getenv("TEST_GITHUB_TAG"); tag != "" {
		t.Run("download zipball", func(t *testing.T) {
			data, err := client.DownloadZipball(ctx, owner, repo, tag)
			gt.NoError(t, err)
			gt.Number(t, len(data)).Greater(0)
		})

		t.Run("list commit subjects", func(t *testing.T) {
			subjects, err := client.ListCommitSubjects(ctx, owner, repo, tag, 10)
			gt.NoError(t, err)
			gt.Number(t, len(subjects)).Greater(0)
		})
	}
}

func TestNewAppClient_WithEnvCredentials(t *testing.T) {
	appID := os.Getenv("TEST_GITHUB_APP_ID")
	installationID := os.Getenv("TEST_GITHUB_INSTALLATION_ID")
	privateKey := os.Getenv("TEST_GITHUB_PRIVATE_KEY")

	if appID == "" || installationID == "" || privateKey == "" {
		t.Skip("Test GitHub App credentials not provided via environment variables")
	}

	appIDInt, err := strconv.ParseInt(appID, 10, 64)
	gt.NoError(t, err)

	installationIDInt, err := strconv.ParseInt(installationID, 10, 64)
	gt.NoError(t, err)

	client, err := githubinfra.NewAppClient(appIDInt, installationIDInt, []byte(privateKey))
	gt.NoError(t, err)
	gt.Value(t, client).NotNil()
}

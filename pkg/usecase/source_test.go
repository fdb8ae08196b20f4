package usecase_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/RukuLab/ruku/pkg/usecase"
)

func TestSourceFetcher_Fetch(t *testing.T) {
	ctx := context.Background()

	mockClient := &MockGitHubClient{
		downloadZipballFunc: func(ctx context.Context, owner, repo, ref string) ([]byte, error) {
			return createTestZip(t), nil
		},
	}

	fetcher := usecase.NewSourceFetcher(mockClient)

	checkout, err := fetcher.Fetch(ctx, "rukulab", "ruku", "v1.0.0")
	gt.NoError(t, err)
	defer func() {
		_ = os.RemoveAll(checkout.TempDir)
	}()

	gt.Number(t, checkout.Files).Greater(0)
	gt.Number(t, int(checkout.Size)).Greater(0)

	// GitHub zipballs nest the tree under a single top-level directory and
	// Root points at it
	gt.Value(t, filepath.Base(checkout.Root)).Equal("ruku-abc123")

	content, err := os.ReadFile(filepath.Join(checkout.Root, "go.mod"))
	gt.NoError(t, err)
	gt.String(t, string(content)).Contains("module github.com/RukuLab/ruku")

	_, err = os.Stat(filepath.Join(checkout.Root, "cmd", "ruku", "main.go"))
	gt.NoError(t, err)
}

func TestSourceFetcher_DownloadError(t *testing.T) {
	ctx := context.Background()

	mockClient := &MockGitHubClient{
		downloadZipballFunc: func(ctx context.Context, owner, repo, ref string) ([]byte, error) {
			return nil, errors.New("download error")
		},
	}

	fetcher := usecase.NewSourceFetcher(mockClient)

	checkout, err := fetcher.Fetch(ctx, "rukulab", "ruku", "v1.0.0")
	gt.Error(t, err)
	gt.Value(t, checkout).Nil()
	gt.String(t, err.Error()).Contains("failed to download zipball")
}

func TestSourceFetcher_InvalidZip(t *testing.T) {
	ctx := context.Background()

	mockClient := &MockGitHubClient{
		downloadZipballFunc: func(ctx context.Context, owner, repo, ref string) ([]byte, error) {
			return []byte("this is not valid zip data"), nil
		},
	}

	fetcher := usecase.NewSourceFetcher(mockClient)

	checkout, err := fetcher.Fetch(ctx, "rukulab", "ruku", "v1.0.0")
	gt.Error(t, err)
	gt.Value(t, checkout).Nil()
	gt.String(t, err.Error()).Contains("failed to extract zipball")
}

func TestSourceFetcher_PathTraversal(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../../../tmp/escape.txt")
	gt.NoError(t, err)
	_, err = w.Write([]byte("escaped"))
	gt.NoError(t, err)
	gt.NoError(t, zw.Close())

	mockClient := &MockGitHubClient{
		downloadZipballFunc: func(ctx context.Context, owner, repo, ref string) ([]byte, error) {
			return buf.Bytes(), nil
		},
	}

	fetcher := usecase.NewSourceFetcher(mockClient)

	_, err = fetcher.Fetch(ctx, "rukulab", "ruku", "v1.0.0")
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("invalid file path")
}

// createTestZip builds a zipball shaped like a GitHub source archive
func createTestZip(t *testing.T) []byte {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	files := map[string]string{
		"ruku-abc123/go.mod":            "module github.com/RukuLab/ruku\n\ngo 1.26\n",
		"ruku-abc123/cmd/ruku/main.go":  "package main\n\nfunc main() {}\n",
		"ruku-abc123/README.md":         "# ruku\n",
		"ruku-abc123/ruku.toml":         "name = \"ruku\"\n",
	}

	for filename, content := range files {
		writer, err := zipWriter.Create(filename)
		gt.NoError(t, err)

		_, err = writer.Write([]byte(content))
		gt.NoError(t, err)
	}

	gt.NoError(t, zipWriter.Close())

	return buf.Bytes()
}

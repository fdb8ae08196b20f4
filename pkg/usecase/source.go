package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/domain/model"
)

type sourceFetcher struct {
	githubClient interfaces.GitHubClient
}

// NewSourceFetcher creates a SourceFetcher that downloads tagged source
// snapshots from GitHub
func NewSourceFetcher(githubClient interfaces.GitHubClient) interfaces.SourceFetcher {
	return &sourceFetcher{
		githubClient: githubClient,
	}
}

// Fetch downloads the zipball for a ref and extracts it to a temporary
// directory. The caller owns the returned TempDir.
func (uc *sourceFetcher) Fetch(ctx context.Context, owner, repo, ref string) (*model.SourceCheckout, error) {
	logger := ctxlog.From(ctx)

	zipData, err := uc.githubClient.DownloadZipball(ctx, owner, repo, ref)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download zipball",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("ref", ref))
	}

	logger.Info("Downloaded zipball",
		"size_bytes", len(zipData),
		"owner", owner,
		"repo", repo,
		"ref", ref,
	)

	checkout, err := extractZip(ctx, zipData)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract zipball",
			goerr.V("owner", owner), goerr.V("repo", repo))
	}

	logger.Info("Extracted source snapshot",
		"temp_dir", checkout.TempDir,
		"root", checkout.Root,
		"file_count", checkout.Files,
		"total_size_bytes", checkout.Size,
	)

	return checkout, nil
}

// extractZip extracts ZIP data to a temporary directory
func extractZip(ctx context.Context, zipData []byte) (*model.SourceCheckout, error) {
	logger := ctxlog.From(ctx)

	tempDir, err := os.MkdirTemp("", "ruku-source-*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create temporary directory")
	}

	if err := os.Chmod(tempDir, 0700); err != nil {
		return nil, goerr.Wrap(err, "failed to set directory permissions", goerr.V("temp_dir", tempDir))
	}

	logger.Debug("Created temporary directory", "temp_dir", tempDir)

	zipReader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create zip reader")
	}

	checkout := &model.SourceCheckout{TempDir: tempDir}

	for _, file := range zipReader.File {
		if err := extractFile(file, tempDir); err != nil {
			return nil, goerr.Wrap(err, "failed to extract file", goerr.V("file", file.Name))
		}

		// GitHub zipballs nest everything under a single <repo>-<sha>/
		// directory; that directory is the project root
		if checkout.Root == "" {
			if top, _, ok := strings.Cut(file.Name, "/"); ok && top != "" {
				checkout.Root = filepath.Join(tempDir, top)
			}
		}

		if !file.FileInfo().IsDir() {
			checkout.Files++
			checkout.Size += int64(file.UncompressedSize64)
		}
	}

	if checkout.Root == "" {
		checkout.Root = tempDir
	}

	return checkout, nil
}

// extractFile extracts a single file from ZIP to the destination directory
func extractFile(file *zip.File, destDir string) error {
	// Security check: prevent path traversal attacks
	destPath := filepath.Join(destDir, file.Name)
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return goerr.New("invalid file path detected",
			goerr.V("file", file.Name), goerr.V("dest", destPath))
	}

	rc, err := file.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open file in zip", goerr.V("file", file.Name))
	}
	defer rc.Close()

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destPath, file.FileInfo().Mode())
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directories", goerr.V("dir", filepath.Dir(destPath)))
	}

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.FileInfo().Mode())
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file", goerr.V("path", destPath))
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, rc); err != nil {
		return goerr.Wrap(err, "failed to copy file content", goerr.V("path", destPath))
	}

	return nil
}

package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/RukuLab/ruku/pkg/infra/storage"
)

func TestS3_WithRealEndpoint(t *testing.T) {
	// Integration test against an S3-compatible endpoint, e.g. a local MinIO
	endpoint := os.Getenv("TEST_S3_ENDPOINT")
	accessKey := os.Getenv("TEST_S3_ACCESS_KEY")
	secretKey := os.Getenv("TEST_S3_SECRET_KEY")

	if endpoint == "" || accessKey == "" || secretKey == "" {
		t.Skip("Test S3 credentials not provided via environment variables")
	}

	ctx := context.Background()
	store, err := storage.NewS3(ctx, endpoint, accessKey, secretKey, "ruku-test-mirror", false)
	gt.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "ruku_v0.0.1_linux_amd64.tar.gz")
	gt.NoError(t, os.WriteFile(path, []byte("archive content"), 0644))

	err = store.Put(ctx, "ruku/v0.0.1/ruku_v0.0.1_linux_amd64.tar.gz", path, "application/gzip")
	gt.NoError(t, err)
}

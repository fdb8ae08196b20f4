package storage

import (
	"context"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
)

type gcsStore struct {
	client *storage.Client
	bucket string
}

// NewGCS creates an artifact store backed by Google Cloud Storage. With an
// empty credentialsFile, application default credentials are used.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (interfaces.ArtifactStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GCS client")
	}

	return &gcsStore{client: client, bucket: bucket}, nil
}

// Put uploads the file at path under the given object key
func (s *gcsStore) Put(ctx context.Context, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return goerr.Wrap(err, "failed to open file for mirror", goerr.V("path", path))
	}
	defer f.Close()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return goerr.Wrap(err, "failed to write object",
			goerr.V("bucket", s.bucket), goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object",
			goerr.V("bucket", s.bucket), goerr.V("key", key))
	}
	return nil
}

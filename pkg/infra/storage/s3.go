// Package storage mirrors release archives to object storage. Two backends
// are supported: any S3-compatible endpoint and Google Cloud Storage.
package storage

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
)

type s3Store struct {
	client *minio.Client
	bucket string
}

// NewS3 creates an artifact store backed by an S3-compatible endpoint. The
// bucket is created when it does not exist.
func NewS3(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (interfaces.ArtifactStore, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create S3 client", goerr.V("endpoint", endpoint))
	}

	exists, err := mc.BucketExists(ctx, bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check bucket", goerr.V("bucket", bucket))
	}
	if !exists {
		if err := mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, goerr.Wrap(err, "failed to create bucket", goerr.V("bucket", bucket))
		}
		ctxlog.From(ctx).Info("Created mirror bucket", "bucket", bucket)
	}

	return &s3Store{client: mc, bucket: bucket}, nil
}

// Put uploads the file at path under the given object key
func (s *s3Store) Put(ctx context.Context, key, path, contentType string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to upload object",
			goerr.V("bucket", s.bucket), goerr.V("key", key))
	}
	return nil
}

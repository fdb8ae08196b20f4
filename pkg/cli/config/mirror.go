package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	"github.com/RukuLab/ruku/pkg/infra/storage"
)

// Mirror holds artifact mirror configuration. Mirroring is disabled when no
// backend is selected.
type Mirror struct {
	Backend            string
	Bucket             string
	S3Endpoint         string
	S3AccessKey        string `masq:"secret"`
	S3SecretKey        string `masq:"secret"`
	S3UseSSL           bool
	GCSCredentialsFile string
}

// Flags returns CLI flags for mirror configuration
func (c *Mirror) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mirror-backend",
			Usage:       "Artifact mirror backend (s3, gcs)",
			Destination: &c.Backend,
			Sources:     cli.EnvVars("RUKU_MIRROR_BACKEND"),
		},
		&cli.StringFlag{
			Name:        "mirror-bucket",
			Usage:       "Artifact mirror bucket",
			Destination: &c.Bucket,
			Sources:     cli.EnvVars("RUKU_MIRROR_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "mirror-s3-endpoint",
			Usage:       "S3-compatible endpoint for the mirror",
			Destination: &c.S3Endpoint,
			Sources:     cli.EnvVars("RUKU_MIRROR_S3_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:        "mirror-s3-access-key",
			Usage:       "S3 access key",
			Destination: &c.S3AccessKey,
			Sources:     cli.EnvVars("RUKU_MIRROR_S3_ACCESS_KEY"),
		},
		&cli.StringFlag{
			Name:        "mirror-s3-secret-key",
			Usage:       "S3 secret key",
			Destination: &c.S3SecretKey,
			Sources:     cli.EnvVars("RUKU_MIRROR_S3_SECRET_KEY"),
		},
		&cli.BoolFlag{
			Name:        "mirror-s3-ssl",
			Usage:       "Use TLS for the S3 endpoint",
			Value:       true,
			Destination: &c.S3UseSSL,
			Sources:     cli.EnvVars("RUKU_MIRROR_S3_SSL"),
		},
		&cli.StringFlag{
			Name:        "mirror-gcs-credentials",
			Usage:       "Path to GCS service account credentials",
			Destination: &c.GCSCredentialsFile,
			Sources:     cli.EnvVars("RUKU_MIRROR_GCS_CREDENTIALS"),
		},
	}
}

// Configure builds the artifact store, or returns nil when mirroring is not
// configured
func (c *Mirror) Configure(ctx context.Context) (interfaces.ArtifactStore, error) {
	switch c.Backend {
	case "":
		return nil, nil
	case "s3":
		if c.S3Endpoint == "" || c.Bucket == "" {
			return nil, goerr.New("s3 mirror requires --mirror-s3-endpoint and --mirror-bucket")
		}
		return storage.NewS3(ctx, c.S3Endpoint, c.S3AccessKey, c.S3SecretKey, c.Bucket, c.S3UseSSL)
	case "gcs":
		if c.Bucket == "" {
			return nil, goerr.New("gcs mirror requires --mirror-bucket")
		}
		return storage.NewGCS(ctx, c.Bucket, c.GCSCredentialsFile)
	default:
		return nil, goerr.New("unsupported mirror backend", goerr.V("backend", c.Backend))
	}
}

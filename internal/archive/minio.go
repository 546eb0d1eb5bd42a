package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultBucket = "project-sync"
	defaultRegion = "us-east-1"
	contentType   = "application/zip"
)

// Sink keeps a copy of a downloaded export archive.
type Sink interface {
	Store(ctx context.Context, surveyID string, data []byte) (string, error)
}

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	region          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{
		bucket: defaultBucket,
		region: defaultRegion,
		useSSL: true,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// MinioSink writes archives to an S3 compatible bucket as <survey id>/<time>.zip.
type MinioSink struct {
	cfg    *minioConfig
	client *minio.Client
	now    func() time.Time
}

func NewMinioSink(opts ...MinioOpts) (*MinioSink, error) {
	cfg := newConfig(opts...)

	minioClient, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
		Region: cfg.region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create object storage client")
	}

	return &MinioSink{cfg: cfg, client: minioClient, now: time.Now}, nil
}

func (s *MinioSink) Store(ctx context.Context, surveyID string, data []byte) (string, error) {
	key := ObjectKey(surveyID, s.now())

	info, err := s.client.PutObject(ctx, s.cfg.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to archive export of survey %s", surveyID)
	}

	zap.S().Named("archive").Infow("export archived", "bucket", s.cfg.bucket, "key", key, "size", info.Size)
	return key, nil
}

// ObjectKey names the object holding the export of surveyID taken at t.
func ObjectKey(surveyID string, t time.Time) string {
	return fmt.Sprintf("%s/%s.zip", surveyID, t.UTC().Format("20060102T150405Z"))
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		if bucket != "" {
			c.bucket = bucket
		}
	}
}

func WithRegion(region string) MinioOpts {
	return func(c *minioConfig) {
		if region != "" {
			c.region = region
		}
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}

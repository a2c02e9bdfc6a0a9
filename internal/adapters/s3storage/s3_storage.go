package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/port"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds the settings of an S3-compatible bucket.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: MinIO, R2, DO Spaces
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL overrides how object URLs are built, e.g. a CDN in front of the bucket.
	PublicBaseURL string
}

// publicBase is the URL prefix every object URL starts with, without a trailing slash.
func (c Config) publicBase() string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/")
	}
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
}

// S3Storage implements port.ObjectStoragePort on one bucket.
type S3Storage struct {
	client *s3.Client
	cfg    Config
}

var _ port.ObjectStoragePort = (*S3Storage)(nil)

func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Storage{client: client, cfg: cfg}, nil
}

// Upload stores body under path and returns the object's public URL.
func (s *S3Storage) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "S3Storage",
		"method":    "Upload",
		"path":      path,
	})

	// Images are small; buffering gives the SDK a seekable body for signing.
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload body: %w", err)
	}
	if size > 0 && int64(len(data)) != size {
		return "", fmt.Errorf("upload body is %d bytes, expected %d", len(data), size)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=3600"),
	})
	if err != nil {
		logger.Error("Failed to put object", err, nil)
		return "", fmt.Errorf("put object: %w", err)
	}

	logger.Debug("Object uploaded", port.Fields{"bytes": len(data)})
	return s.PublicURL(path), nil
}

func (s *S3Storage) Remove(ctx context.Context, path string) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "S3Storage",
		"method":    "Remove",
		"path":      path,
	})

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		logger.Error("Failed to delete object", err, nil)
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PublicURL returns the public URL for an object key.
func (s *S3Storage) PublicURL(path string) string {
	return s.cfg.publicBase() + "/" + strings.TrimLeft(path, "/")
}

// ObjectPath is the inverse of PublicURL. URLs outside the bucket report false.
func (s *S3Storage) ObjectPath(publicURL string) (string, bool) {
	return objectPath(s.cfg, publicURL)
}

func objectPath(cfg Config, publicURL string) (string, bool) {
	prefix := cfg.publicBase() + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	path := strings.TrimPrefix(publicURL, prefix)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "", false
	}
	return path, true
}

// Package storage mirrors downloaded attachments to S3-compatible object
// storage (Cloudflare R2 in production). The mirror is optional and
// best-effort; local disk remains the source of truth.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/regscope/regscope/internal/config"
	"github.com/regscope/regscope/internal/logger"
)

// R2Client uploads objects to a single configured bucket.
type R2Client struct {
	client *s3.Client
	bucket string
}

// NewR2Client builds the mirror from configuration. Returns nil with no
// error when R2 is not configured; callers treat a nil mirror as disabled.
func NewR2Client(ctx context.Context, cfg *config.Config) (*R2Client, error) {
	if cfg.R2Endpoint == "" || cfg.R2AccessKey == "" || cfg.R2SecretKey == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
	})

	logger.Get().Info().Str("bucket", cfg.R2Bucket).Msg("Object storage mirror enabled")
	return &R2Client{client: client, bucket: cfg.R2Bucket}, nil
}

// Put uploads one object under the given key.
func (r *R2Client) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

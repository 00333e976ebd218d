// Package archive stores HTML evidence snapshots in S3-compatible object
// storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ctiworks/threatboard/internal/config"
	"github.com/ctiworks/threatboard/internal/logger"
)

// Store uploads evidence snapshots. A nil Store (no endpoint configured)
// is valid and drops uploads.
type Store struct {
	client *s3.Client
	bucket string
}

// New builds the archive client from configuration. It returns nil when no
// endpoint is configured, which disables archiving.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg.ArchiveEndpoint == "" {
		logger.Get().Info().Msg("Evidence archiving disabled, no endpoint configured")
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.ArchiveRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.ArchiveEndpoint)
		o.UsePathStyle = true
	})

	logger.Get().Info().
		Str("endpoint", cfg.ArchiveEndpoint).
		Str("bucket", cfg.ArchiveBucket).
		Msg("Evidence archive initialized")

	return &Store{client: client, bucket: cfg.ArchiveBucket}, nil
}

// Upload stores one snapshot under a date-partitioned key and returns the
// full object key.
func (s *Store) Upload(ctx context.Context, key string, body []byte) (string, error) {
	objectKey := fmt.Sprintf("snapshots/%s/%s", time.Now().UTC().Format("2006/01/02"), key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}

	logger.Get().Debug().Str("key", objectKey).Int("bytes", len(body)).Msg("Archived snapshot")
	return objectKey, nil
}

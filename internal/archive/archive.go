// Package archive stores the original HTML of ingested messages in
// S3-compatible object storage, so the raw source of every booking stays
// retrievable even after mailbox retention expires.
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"bookingsync_backend/platform/config"
	"bookingsync_backend/platform/logger"
)

// MinIOService archives message bodies to MinIO. A nil service is a valid
// disabled archiver: all operations are no-ops.
type MinIOService struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewMinIOService creates the archiver, or (nil, nil) when no endpoint is
// configured so archival is simply off.
func NewMinIOService(cfg config.StorageConfig, log *logger.Logger) (*MinIOService, error) {
	if cfg.GetMinIOEndpoint() == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client: client,
		bucket: cfg.GetMinioBucketMessageArchive(),
		log:    log,
	}, nil
}

// EnsureBucketExists creates the archive bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	if s == nil {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// ArchiveMessageBody stores the HTML body under a key derived from the
// external message id. Overwrites are fine: the body for a given id never
// changes, so the write is idempotent.
func (s *MinIOService) ArchiveMessageBody(ctx context.Context, externalMessageID, htmlBody string) error {
	if s == nil || htmlBody == "" {
		return nil
	}

	key := fmt.Sprintf("messages/%s.html", externalMessageID)
	reader := strings.NewReader(htmlBody)

	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "text/html",
	})
	if err != nil {
		return fmt.Errorf("failed to archive message %s: %w", externalMessageID, err)
	}

	s.log.Debug("message body archived", "key", key)
	return nil
}

package exports

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"efficity_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Storage wraps the MinIO client for export artifacts.
type Storage struct {
	client *minio.Client
	bucket string
}

// NewStorage connects to MinIO and makes sure the exports bucket exists.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	s := &Storage{client: client, bucket: cfg.GetMinioBucketExports()}
	exists, err := client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("check exports bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create exports bucket: %w", err)
		}
	}
	return s, nil
}

// Upload stores one workbook under the given object key.
func (s *Storage) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return fmt.Errorf("upload export %s: %w", objectKey, err)
	}
	return nil
}

// PresignedURL returns a time-limited download link for an export.
func (s *Storage) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign export %s: %w", objectKey, err)
	}
	return u.String(), nil
}

// Remove deletes an export artifact.
func (s *Storage) Remove(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove export %s: %w", objectKey, err)
	}
	return nil
}

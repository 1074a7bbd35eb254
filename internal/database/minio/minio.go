package minio

import (
	"bytes"
	"context"
	"fmt"

	"DocuMind/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store keeps raw uploaded files in object storage so the original bytes
// survive independently of the extracted text.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore connects to MinIO and ensures the configured bucket exists.
func NewStore(ctx context.Context, cfg *config.MinIOConfig) (*Store, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := c.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket '%s': %w", cfg.Bucket, err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.Bucket, err)
		}
	}

	return &Store{client: c, bucket: cfg.Bucket}, nil
}

// PutDocument stores the raw bytes of an uploaded file under
// documents/<owner>/<document-id>/<filename> and returns the object key.
func (s *Store) PutDocument(ctx context.Context, ownerID, documentID, filename string, data []byte) (string, error) {
	key := fmt.Sprintf("documents/%s/%s/%s", ownerID, documentID, filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to store object '%s': %w", key, err)
	}
	return key, nil
}

// RemoveDocument deletes every stored object belonging to a document.
func (s *Store) RemoveDocument(ctx context.Context, ownerID, documentID string) error {
	prefix := fmt.Sprintf("documents/%s/%s/", ownerID, documentID)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects under '%s': %w", prefix, obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove object '%s': %w", obj.Key, err)
		}
	}
	return nil
}

// HealthCheck verifies connectivity and credentials.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("minio client is not initialized")
	}
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("minio health check failed: %w", err)
	}
	return nil
}

// Package storage provides the object store for report imagery.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"roadeye/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStorage uploads and removes report images
type ObjectStorage interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, objectKey string) error
	PublicURL(objectKey string) string
}

type minioStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewMinioStorage creates an object store backed by a MinIO (or any
// S3-compatible) endpoint, creating the bucket if it does not exist
func NewMinioStorage(ctx context.Context, cfg *config.Config) (ObjectStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &minioStorage{
		client:        client,
		bucket:        cfg.MinioBucket,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *minioStorage) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", objectKey, err)
	}
	return s.PublicURL(objectKey), nil
}

func (s *minioStorage) Remove(ctx context.Context, objectKey string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove object %s: %w", objectKey, err)
	}
	return nil
}

func (s *minioStorage) PublicURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, objectKey)
}

// ObjectKey builds the storage key for an uploaded report image
func ObjectKey(filename string) string {
	return fmt.Sprintf("reports/%d-%s", time.Now().UnixNano(), sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		name = "image"
	}
	return name
}

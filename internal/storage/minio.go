package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"career-copilot-go/internal/config"
	"career-copilot-go/internal/logger"
	"career-copilot-go/internal/types"
)

// MinIO keeps the raw bytes of ingested documents so the original text
// can always be re-processed, whatever happens to the derived data.
type MinIO struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinIO connects to the object store and ensures the raw-documents
// bucket exists.
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("minio config cannot be nil")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	m := &MinIO{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.Logger,
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Location}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		m.logger.Info().Str("bucket", cfg.Bucket).Msg("created raw-documents bucket")
	}
	return m, nil
}

// objectKey places documents under a per-type prefix.
func objectKey(docType types.DocumentType, documentID string) string {
	return fmt.Sprintf("%s/%s.txt", docType, documentID)
}

// PutRawDocument stores the raw text of a document and returns its
// object key.
func (m *MinIO) PutRawDocument(ctx context.Context, docType types.DocumentType, documentID, rawText string) (string, error) {
	key := objectKey(docType, documentID)
	data := []byte(rawText)

	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("put raw document %s: %w", key, err)
	}

	m.logger.Debug().
		Str("bucket", m.bucket).
		Str("object", key).
		Int("bytes", len(data)).
		Msg("stored raw document")
	return key, nil
}

// GetRawDocument loads the raw text stored under an object key.
func (m *MinIO) GetRawDocument(ctx context.Context, key string) (string, error) {
	object, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("get raw document %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return "", fmt.Errorf("read raw document %s: %w", key, err)
	}
	return string(data), nil
}

// DeleteRawDocument removes a document's raw bytes.
func (m *MinIO) DeleteRawDocument(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete raw document %s: %w", key, err)
	}
	return nil
}

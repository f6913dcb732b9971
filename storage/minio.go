package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"Bt1Zen/config"
	"Bt1Zen/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio initializes the MinIO client and ensures the audio bucket exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO client initialized",
		logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient returns the MinIO client instance.
func GetMinioClient() *minio.Client {
	return minioClient
}

// AudioObjectStore stores generated audio payloads as objects.
type AudioObjectStore struct {
	client *minio.Client
	bucket string
}

// NewAudioObjectStore creates an object store on the given bucket. A nil
// client falls back to the global MinIO client.
func NewAudioObjectStore(client *minio.Client, bucket string) *AudioObjectStore {
	if client == nil {
		client = minioClient
	}
	return &AudioObjectStore{client: client, bucket: bucket}
}

// AudioObjectKey builds the object key for one generated-audio entry.
func AudioObjectKey(entryID string) string {
	return fmt.Sprintf("generated/%s.wav", entryID)
}

// PutAudio uploads a payload under the given object key.
func (s *AudioObjectStore) PutAudio(ctx context.Context, objectKey string, payload []byte) error {
	if s.client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectKey,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "audio/wav"})
	if err != nil {
		return fmt.Errorf("failed to upload audio object %s: %w", objectKey, err)
	}

	logger.Debug("Uploaded generated audio object",
		logger.String("objectKey", objectKey),
		logger.Int("size", len(payload)))
	return nil
}

// GetAudio downloads the payload stored under the given object key.
func (s *AudioObjectStore) GetAudio(ctx context.Context, objectKey string) ([]byte, error) {
	if s.client == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}

	object, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get audio object %s: %w", objectKey, err)
	}
	defer object.Close()

	payload, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio object %s: %w", objectKey, err)
	}
	return payload, nil
}

// RemoveAudio deletes the object stored under the given key.
func (s *AudioObjectStore) RemoveAudio(ctx context.Context, objectKey string) error {
	if s.client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove audio object %s: %w", objectKey, err)
	}
	return nil
}

// Package blob provides image storage backed by MinIO. Objects are written
// by clients through presigned upload URLs and read through presigned GET
// URLs resolved at query time.
package blob

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"atelier/api/internal/util"
)

type Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	UploadTTL  time.Duration
	ResolveTTL time.Duration
}

// Store is the MinIO-backed blob store.
type Store struct {
	client     *minio.Client
	bucket     string
	uploadTTL  time.Duration
	resolveTTL time.Duration
	cache      *URLCache
}

// New creates a blob store and ensures the bucket exists.
func New(ctx context.Context, cfg Config, cache *URLCache) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	s := &Store{
		client:     client,
		bucket:     cfg.Bucket,
		uploadTTL:  cfg.UploadTTL,
		resolveTTL: cfg.ResolveTTL,
		cache:      cache,
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}

	return s, nil
}

// GenerateUploadURL issues a fresh storage id and a presigned PUT URL the
// client uploads bytes to directly.
func (s *Store) GenerateUploadURL(ctx context.Context) (string, string, error) {
	storageID := util.NewID("blob")
	u, err := s.client.PresignedPutObject(ctx, s.bucket, storageID, s.uploadTTL)
	if err != nil {
		return "", "", fmt.Errorf("presign upload: %w", err)
	}
	return storageID, u.String(), nil
}

// ResolveURL returns a retrievable URL for a stored blob, or empty when the
// object does not exist. Resolutions are cached with a TTL shorter than the
// presigned URL's validity.
func (s *Store) ResolveURL(ctx context.Context, storageID string) (string, error) {
	if storageID == "" {
		return "", nil
	}
	if cached, ok := s.cache.Get(ctx, storageID); ok {
		return cached, nil
	}

	if _, err := s.client.StatObject(ctx, s.bucket, storageID, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", nil
		}
		return "", fmt.Errorf("stat object: %w", err)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, storageID, s.resolveTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}

	resolved := u.String()
	if err := s.cache.Set(ctx, storageID, resolved); err != nil {
		log.Printf("blob: cache url for %s: %v", storageID, err)
	}
	return resolved, nil
}

// Delete removes a blob. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, storageID string) error {
	if storageID == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, storageID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	s.cache.Invalidate(ctx, storageID)
	return nil
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"givehub/api/internal/config"
)

// ObjectStore holds generated donation exports in an S3-compatible bucket.
type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.BucketExports)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.BucketExports, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.BucketExports, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.BucketExports, err)
		}
	}
	return nil
}

// PutExport stores a finished export and returns its object key.
func (s *ObjectStore) PutExport(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.cfg.BucketExports, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put export %s: %w", key, err)
	}
	return nil
}

// PresignExport returns a time-limited download URL for a stored export.
func (s *ObjectStore) PresignExport(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.cfg.BucketExports, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign export %s: %w", key, err)
	}
	return u.String(), nil
}

// PruneExports removes export objects older than the configured TTL.
func (s *ObjectStore) PruneExports(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.ExportTTL)
	pruned := 0

	for object := range s.client.ListObjects(ctx, s.cfg.BucketExports, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return pruned, object.Err
		}
		if object.LastModified.After(cutoff) {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.cfg.BucketExports, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return pruned, fmt.Errorf("remove export %s: %w", object.Key, err)
		}
		pruned++
	}
	return pruned, nil
}

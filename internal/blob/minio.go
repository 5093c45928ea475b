// Package blob stores file bodies in an S3-compatible bucket.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when the object key does not exist.
var ErrNotFound = errors.New("object not found")

type Config struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UseSSL       bool
	CreateBucket bool
}

// MinioStore implements the store's content interface on top of MinIO.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	breaker *breaker
	log     *zap.Logger
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("empty endpoint")
	}

	// "minio:9000", "http://minio:9000" and "https://minio:9000" are accepted.
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", false, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
		}
		if u.Host == "" {
			return "", false, errors.New("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, errors.New("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	return raw, false, nil
}

// New connects to the bucket described by cfg. The bucket must exist unless
// CreateBucket is set.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, errors.New("object storage configuration incomplete")
	}
	if log == nil {
		log = zap.NewNop()
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("object storage endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure || cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("bucket does not exist: %s", cfg.Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("bucket created", zap.String("bucket", cfg.Bucket))
	}

	return &MinioStore{
		client:  client,
		bucket:  cfg.Bucket,
		breaker: newBreaker(5, 30*time.Second),
		log:     log,
	}, nil
}

// Put writes data under key, replacing any existing object.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte) error {
	return s.breaker.do(func() error {
		_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		if err != nil {
			return fmt.Errorf("put object %s: %w", key, err)
		}
		return nil
	})
}

// Get reads the object stored under key.
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.breaker.do(func() error {
		obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return fmt.Errorf("get object %s: %w", key, err)
		}
		defer obj.Close()

		data, err = io.ReadAll(obj)
		if err != nil {
			if isNoSuchKey(err) {
				return ErrNotFound
			}
			return fmt.Errorf("read object %s: %w", key, err)
		}
		return nil
	})
	return data, err
}

// Remove deletes the object. Removing a missing key is not an error.
func (s *MinioStore) Remove(ctx context.Context, key string) error {
	return s.breaker.do(func() error {
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove object %s: %w", key, err)
		}
		return nil
	})
}

// Ping checks that the bucket is reachable. It bypasses the breaker so
// readiness reflects the backend itself.
func (s *MinioStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("object storage unreachable: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket does not exist: %s", s.bucket)
	}
	return nil
}

// BreakerState reports the circuit state for diagnostics.
func (s *MinioStore) BreakerState() string {
	return s.breaker.state().String()
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds connection settings for an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store stores index documents in a single bucket. The bucket is created
// on first use if it does not exist.
type S3Store struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{client: client, bucket: bucket, region: region}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

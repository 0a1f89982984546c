package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// Objects land in a bucket owned by another account.
	aclHeader         = "x-amz-acl"
	aclOwnerFullCntrl = "bucket-owner-full-control"

	streamPartSize = 16 << 20
)

// MinIOStore implements ObjectStore on any S3 compatible endpoint.
type MinIOStore struct {
	client     *minio.Client
	bucketName string
}

var _ ObjectStore = (*MinIOStore)(nil)

// MinIOConfig holds S3 connection settings. Credentials come from the role chain.
type MinIOConfig struct {
	Endpoint string // e.g., "s3.amazonaws.com" or "localhost:9000"
	Region   string
	Bucket   string
	UseSSL   bool
}

// NewMinIOStore creates a store session signed with creds.
func NewMinIOStore(cfg MinIOConfig, creds Credentials) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStore{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// Opener returns a SessionOpener producing MinIOStore sessions for cfg.
func (cfg MinIOConfig) Opener() SessionOpener {
	return func(_ context.Context, creds Credentials) (ObjectStore, error) {
		return NewMinIOStore(cfg, creds)
	}
}

func (m *MinIOStore) List(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list minio bucket: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Put streams data to key, replacing any existing object.
func (m *MinIOStore) Put(ctx context.Context, key string, data io.Reader) error {
	_, err := m.client.PutObject(ctx, m.bucketName, key, data, -1, minio.PutObjectOptions{
		ContentType:  "application/x-ndjson",
		UserMetadata: map[string]string{aclHeader: aclOwnerFullCntrl},
		PartSize:     streamPartSize,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to minio: %w", err)
	}

	return nil
}

func (m *MinIOStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove from minio: %w", err)
	}
	return nil
}

func (m *MinIOStore) UploadFile(ctx context.Context, key, localPath string) error {
	_, err := m.client.FPutObject(ctx, m.bucketName, key, localPath, minio.PutObjectOptions{
		UserMetadata: map[string]string{aclHeader: aclOwnerFullCntrl},
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to minio: %w", err)
	}
	return nil
}

func (m *MinIOStore) DownloadFile(ctx context.Context, key, localPath string) error {
	if err := m.client.FGetObject(ctx, m.bucketName, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download from minio: %w", err)
	}
	return nil
}

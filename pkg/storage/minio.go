package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tomasbasham/gcs-helpers/pkg/location"
)

// minPartSize is the smallest multipart part S3-compatible stores accept.
const minPartSize = 5 * 1024 * 1024

// MinioConfig holds the connection details for an S3-compatible store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// MaxRetries is the number of requests the client makes per call. Zero
	// means one, leaving retries to the caller's policy.
	MaxRetries int
}

// MinioBackend stores objects in an S3-compatible service. Each call makes
// MinioConfig.MaxRetries requests at most, so a coordinator attempt maps onto
// a single request by default.
type MinioBackend struct {
	client *minio.Client
}

func NewMinioBackend(cfg MinioConfig) (*MinioBackend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage: minio endpoint must be provided")
	}
	client, err := minio.New(cfg.Endpoint, minioOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create minio client: %w", err)
	}
	return &MinioBackend{client: client}, nil
}

func minioOptions(cfg MinioConfig) *minio.Options {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	return &minio.Options{
		Creds:      credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:     cfg.UseSSL,
		Region:     cfg.Region,
		MaxRetries: retries,
	}
}

func (b *MinioBackend) Scheme() string { return "s3" }

func (b *MinioBackend) Insert(ctx context.Context, req *InsertRequest) (*Object, error) {
	partSize := uint64(req.chunkSize())
	if partSize < minPartSize {
		partSize = minPartSize
	}

	info, err := b.client.PutObject(ctx, req.Location.Bucket, req.Location.Key, req.Content, req.Size, minio.PutObjectOptions{
		ContentType:  req.ContentType,
		UserMetadata: req.Metadata,
		PartSize:     partSize,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: upload failed for %q: %w", req.Location, minioError(err))
	}

	return &Object{
		Bucket:      info.Bucket,
		Name:        info.Key,
		ContentType: req.ContentType,
		Size:        info.Size,
		ETag:        info.ETag,
		Updated:     info.LastModified,
		Metadata:    req.Metadata,
	}, nil
}

func (b *MinioBackend) Download(ctx context.Context, loc location.Location, w io.Writer) error {
	obj, err := b.client.GetObject(ctx, loc.Bucket, loc.Key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("storage: failed to open %q: %w", loc, minioError(err))
	}
	defer func() {
		_ = obj.Close()
	}()

	if _, err := io.Copy(w, obj); err != nil {
		return fmt.Errorf("storage: failed to read %q: %w", loc, minioError(err))
	}
	return nil
}

func (b *MinioBackend) Lookup(ctx context.Context, loc location.Location) (*Object, error) {
	info, err := b.client.StatObject(ctx, loc.Bucket, loc.Key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to look up %q: %w", loc, minioError(err))
	}
	return &Object{
		Bucket:      loc.Bucket,
		Name:        info.Key,
		ContentType: info.ContentType,
		Size:        info.Size,
		ETag:        info.ETag,
		Updated:     info.LastModified,
		Metadata:    info.UserMetadata,
	}, nil
}

func minioError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %w", ErrPermission, err)
	}
	return classifyStatus(resp.StatusCode, err)
}

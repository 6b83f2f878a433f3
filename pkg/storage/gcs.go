package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tomasbasham/gcs-helpers/pkg/location"
)

// GCSBackend stores objects in Google Cloud Storage.
type GCSBackend struct {
	client *storage.Client
}

// NewGCSBackend creates a GCSBackend. opts are passed through to the
// underlying GCS client, allowing credential and project injection.
func NewGCSBackend(ctx context.Context, opts ...option.ClientOption) (*GCSBackend, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return &GCSBackend{client: client}, nil
}

// NewGCSBackendFromClient wraps an existing client.
func NewGCSBackendFromClient(client *storage.Client) *GCSBackend {
	return &GCSBackend{client: client}
}

func (b *GCSBackend) Scheme() string { return "gs" }

// Close releases the underlying client.
func (b *GCSBackend) Close() error {
	return b.client.Close()
}

// object returns a handle with the client's own retries disabled; the
// caller's retry policy decides whether a failed insert is attempted again.
func (b *GCSBackend) object(loc location.Location) *storage.ObjectHandle {
	return b.client.Bucket(loc.Bucket).Object(loc.Key).Retryer(storage.WithPolicy(storage.RetryNever))
}

// Insert performs a resumable upload. The writer flushes one chunk at a time
// and blocks until the chunk is acknowledged.
func (b *GCSBackend) Insert(ctx context.Context, req *InsertRequest) (*Object, error) {
	w := b.object(req.Location).NewWriter(ctx)
	w.ContentType = req.ContentType
	w.ChunkSize = req.chunkSize()
	w.Metadata = req.Metadata

	if _, err := io.Copy(w, req.Content); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("storage: upload write failed for %q: %w", req.Location, gcsError(err))
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("storage: upload close failed for %q: %w", req.Location, gcsError(err))
	}

	return objectFromAttrs(w.Attrs()), nil
}

func (b *GCSBackend) Download(ctx context.Context, loc location.Location, w io.Writer) error {
	r, err := b.object(loc).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("storage: failed to open %q: %w", loc, gcsError(err))
	}
	defer r.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("storage: failed to read %q: %w", loc, gcsError(err))
	}
	return nil
}

func (b *GCSBackend) Lookup(ctx context.Context, loc location.Location) (*Object, error) {
	attrs, err := b.object(loc).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to look up %q: %w", loc, gcsError(err))
	}
	return objectFromAttrs(attrs), nil
}

func objectFromAttrs(attrs *storage.ObjectAttrs) *Object {
	if attrs == nil {
		return nil
	}
	return &Object{
		Bucket:      attrs.Bucket,
		Name:        attrs.Name,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		MD5:         attrs.MD5,
		ETag:        attrs.Etag,
		Generation:  attrs.Generation,
		Updated:     attrs.Updated,
		Metadata:    attrs.Metadata,
	}
}

func gcsError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return errors.Join(ErrNotFound, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return classifyStatus(gerr.Code, err)
	}
	return err
}

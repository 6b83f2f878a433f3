// Package storage provides the narrow object-storage capability the transfer
// package depends on: a resumable insert, a download to a byte sink and an
// object lookup. The GCS implementation is the production backend; MinIO
// covers S3-compatible stores and the disk backend serves local use and
// testing.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/minio/minio-go/v7"
	"google.golang.org/api/googleapi"

	"github.com/tomasbasham/gcs-helpers/pkg/location"
)

// DefaultChunkSize is the size of each resumable upload chunk.
const DefaultChunkSize = 8 * 1024 * 1024

var (
	// ErrNotFound indicates the bucket or object does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrPermission indicates the caller is not authorised for the request.
	ErrPermission = errors.New("storage: permission denied")
)

// Backend is implemented by every storage provider.
type Backend interface {
	// Scheme is the URI scheme of objects held by the backend, e.g. "gs".
	Scheme() string

	// Insert uploads req.Content to req.Location. Content is sent in chunks
	// of req.ChunkSize bytes, each awaited before the next is sent.
	Insert(ctx context.Context, req *InsertRequest) (*Object, error)

	// Download writes the object at loc to w.
	Download(ctx context.Context, loc location.Location, w io.Writer) error

	// Lookup returns the attributes of the object at loc.
	Lookup(ctx context.Context, loc location.Location) (*Object, error)
}

type InsertRequest struct {
	Location location.Location

	// Content is the data to be uploaded.
	Content io.Reader

	// Size is the length of Content in bytes, or -1 if unknown.
	Size int64

	// ContentType is the MIME type of the content, e.g. "image/tiff".
	ContentType string

	// ChunkSize is the resumable chunk size. Zero uses DefaultChunkSize.
	ChunkSize int

	// Metadata is attached to the object as custom key/value pairs.
	Metadata map[string]string
}

func (r *InsertRequest) chunkSize() int {
	if r.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return r.ChunkSize
}

// Object describes a stored object as reported by the backend.
type Object struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"content_type,omitempty"`
	Size        int64             `json:"size"`
	MD5         []byte            `json:"md5,omitempty"`
	ETag        string            `json:"etag,omitempty"`
	Generation  int64             `json:"generation,omitempty"`
	Updated     time.Time         `json:"updated"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// TransientError marks an error as safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "storage: transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err so that IsRetryable reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsRetryable reports whether err is a transient backend fault. Cancellation,
// missing objects and authorisation failures are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPermission) {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.StatusCode != 0 {
		return retryableStatus(resp.StatusCode)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return retryableStatus(gerr.Code)
	}

	return storage.ShouldRetry(err)
}

func retryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	}
	return false
}

// classifyStatus maps authorisation and not-found status codes onto the
// package sentinels, leaving every other error untouched.
func classifyStatus(code int, err error) error {
	switch code {
	case http.StatusNotFound:
		return errors.Join(ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Join(ErrPermission, err)
	}
	return err
}

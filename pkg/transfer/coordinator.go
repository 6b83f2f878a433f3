// Package transfer moves files and in-memory data to and from object storage.
//
// An upload runs as a fixed sequence: resolve the destination, materialise
// in-memory data to a temporary file if needed, upload with bounded retry,
// then optionally remove the source. Nothing is kept between calls.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomasbasham/gcs-helpers/pkg/encode"
	"github.com/tomasbasham/gcs-helpers/pkg/location"
	"github.com/tomasbasham/gcs-helpers/pkg/operation"
	"github.com/tomasbasham/gcs-helpers/pkg/retry"
	"github.com/tomasbasham/gcs-helpers/pkg/storage"
)

// Config holds the coordinator's tuning. Zero fields take defaults.
type Config struct {
	// DefaultBucket receives uploads that name no destination at all.
	DefaultBucket string

	// DefaultContentType is used when none is given and none can be
	// detected.
	DefaultContentType string

	// ChunkSize is the resumable upload chunk size in bytes.
	ChunkSize int

	// TempDir holds materialised temporary files. Defaults to os.TempDir().
	TempDir string

	// Policy controls retries. Policy.Retryable decides which backend errors
	// are transient; it defaults to storage.IsRetryable.
	Policy retry.Policy

	// Store, if set, records every upload as an operation.
	Store operation.Store

	Logger *zerolog.Logger
}

// Coordinator uploads to a single storage backend.
type Coordinator struct {
	backend storage.Backend
	cfg     Config
	log     zerolog.Logger
}

// New creates a Coordinator for backend.
func New(backend storage.Backend, cfg Config) *Coordinator {
	if cfg.DefaultContentType == "" {
		cfg.DefaultContentType = encode.MimeJSON
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = storage.DefaultChunkSize
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy.MaxAttempts = retry.DefaultMaxAttempts
	}
	if cfg.Policy.Delay == nil {
		cfg.Policy.Delay = retry.Exponential(retry.DefaultMultiplier, retry.DefaultMaxDelay)
	}
	if cfg.Policy.Retryable == nil {
		cfg.Policy.Retryable = storage.IsRetryable
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Coordinator{
		backend: backend,
		cfg:     cfg,
		log:     log.With().Str("component", "transfer").Str("backend", backend.Scheme()).Logger(),
	}
}

// UploadRequest describes an upload of a file already on disk.
type UploadRequest struct {
	SourcePath string

	// Destination is a flat "bucket/key" or "scheme://bucket/key" path. When
	// Bucket is set, Destination is the key alone. When Destination is
	// empty the source base name is used as the key in Config.DefaultBucket.
	Destination string
	Folder      string
	Bucket      string

	// ContentType is detected from the file when empty.
	ContentType string

	// ReturnURI requests the canonical scheme://bucket/key in Result.URI.
	ReturnURI bool

	Metadata map[string]string
}

// Result is the outcome of a successful upload.
type Result struct {
	// URI is set when the request asked for it.
	URI string

	// Location is where the object was written.
	Location location.Location

	// Object is the backend's own description of the stored object.
	Object *storage.Object

	// Attempts is the number of backend calls made.
	Attempts int

	// OperationID identifies the operation record, if a store is configured.
	OperationID string
}

// UploadFile uploads the file at req.SourcePath.
func (c *Coordinator) UploadFile(ctx context.Context, req UploadRequest) (*Result, error) {
	loc, err := c.resolve(req.SourcePath, req.Destination, req.Folder, req.Bucket)
	if err != nil {
		return nil, err
	}
	return c.upload(ctx, req.SourcePath, loc, req.ContentType, req.Metadata, req.ReturnURI)
}

// MaterializeRequest describes an upload of encoder-produced data.
type MaterializeRequest struct {
	Destination string
	Folder      string
	Bucket      string

	// ContentType overrides the encoder's MIME type.
	ContentType string

	// TempName names the temporary file, without extension. A random token
	// is used when empty.
	TempName string

	// DeleteAfterUpload removes the uploaded file once the call returns,
	// whether the upload succeeded or not. For path inputs this is the
	// caller's own file.
	DeleteAfterUpload bool

	ReturnURI bool
}

// UploadMaterialized encodes data to a temporary file and uploads it. Data
// already on disk (an encode.Filer) is uploaded directly. Without a
// destination the object is named after the encoder (an encode.Namer) or the
// temporary file, inside Config.DefaultBucket.
func (c *Coordinator) UploadMaterialized(ctx context.Context, data encode.Encoder, req MaterializeRequest) (*Result, error) {
	var src string
	if f, ok := data.(encode.Filer); ok {
		src = f.Filename()
	}

	// The temporary path is chosen up front so that a missing destination
	// can be named after it, but nothing is written until the destination
	// has resolved.
	var temp string
	if src == "" {
		var err error
		if temp, err = tempPath(c.cfg.TempDir, req.TempName, data.Extension()); err != nil {
			return nil, err
		}
	}

	name := src
	if name == "" {
		name = temp
	}
	if n, ok := data.(encode.Namer); ok && req.Destination == "" && n.Name() != "" {
		name = n.Name()
	}

	loc, err := c.resolve(name, req.Destination, req.Folder, req.Bucket)
	if err != nil {
		return nil, err
	}

	if src == "" {
		if err := c.materialize(data, temp); err != nil {
			return nil, err
		}
		src = temp
	}
	if req.DeleteAfterUpload {
		defer c.remove(src)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = data.ContentType()
	}
	var metadata map[string]string
	if m, ok := data.(encode.Metadataer); ok {
		metadata = m.Metadata()
	}

	return c.upload(ctx, src, loc, contentType, metadata, req.ReturnURI)
}

func (c *Coordinator) resolve(src, dest, folder, bucket string) (location.Location, error) {
	if dest == "" && src != "" {
		dest = filepath.Base(src)
		if bucket == "" {
			bucket = c.cfg.DefaultBucket
		}
	}
	loc, err := location.Resolve(dest, folder, bucket)
	if err != nil {
		return location.Location{}, &InvalidPathError{Path: dest, Err: err}
	}
	return loc, nil
}

// materialize writes data to path. A file left incomplete by a failed
// encode is removed.
func (c *Coordinator) materialize(data encode.Encoder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("transfer: failed to create temporary file: %w", err)
	}
	err = data.Encode(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.remove(path)
		return &EncodingError{Format: data.Extension(), Err: err}
	}

	c.log.Debug().Str("path", path).Msg("materialised temporary file")
	return nil
}

func (c *Coordinator) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn().Err(err).Str("path", path).Msg("failed to remove source file")
	}
}

func (c *Coordinator) upload(ctx context.Context, src string, loc location.Location, contentType string, metadata map[string]string, returnURI bool) (*Result, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to stat source %q: %w", src, err)
	}
	if contentType == "" {
		contentType = c.detect(src)
	}

	uri := loc.URI(c.backend.Scheme())
	log := c.log.With().Str("bucket", loc.Bucket).Str("key", loc.Key).Logger()
	tracker := operation.Track(c.cfg.Store, src, uri)

	policy := c.cfg.Policy
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("upload attempt failed, retrying")
		if c.cfg.Policy.OnRetry != nil {
			c.cfg.Policy.OnRetry(attempt, err, delay)
		}
	}

	var obj *storage.Object
	attempts, err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		o, ierr := c.insert(ctx, src, info.Size(), loc, contentType, metadata)
		tracker.Attempt(ierr)
		if ierr != nil {
			return ierr
		}
		obj = o
		return nil
	})
	if err != nil {
		err = c.classify(loc, attempts, err)
		tracker.Done("", err)
		log.Error().Err(err).Int("attempts", attempts).Msg("upload failed")
		return nil, err
	}
	tracker.Done(uri, nil)
	log.Info().Int("attempts", attempts).Int64("size", info.Size()).Msg("upload complete")

	result := &Result{
		Location:    loc,
		Object:      obj,
		Attempts:    attempts,
		OperationID: tracker.ID(),
	}
	if returnURI {
		result.URI = uri
	}
	return result, nil
}

// insert performs one attempt, reading the source from byte zero.
func (c *Coordinator) insert(ctx context.Context, src string, size int64, loc location.Location, contentType string, metadata map[string]string) (*storage.Object, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to open source %q: %w", src, err)
	}
	defer f.Close()

	return c.backend.Insert(ctx, &storage.InsertRequest{
		Location:    loc,
		Content:     f,
		Size:        size,
		ContentType: contentType,
		ChunkSize:   c.cfg.ChunkSize,
		Metadata:    metadata,
	})
}

func (c *Coordinator) detect(src string) string {
	contentType, err := encode.DetectContentType(src)
	if err != nil || contentType == "" || contentType == "application/octet-stream" {
		return c.cfg.DefaultContentType
	}
	return contentType
}

func (c *Coordinator) classify(loc location.Location, attempts int, err error) error {
	var exhausted *retry.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		return &UploadFailedError{Location: loc, Attempts: exhausted.Attempts, Err: exhausted.Err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("transfer: upload to %s stopped after %d attempts: %w", loc, attempts, err)
	}
	return &BackendError{Op: "upload", Location: loc, Err: err}
}

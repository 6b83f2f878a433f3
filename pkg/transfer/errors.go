package transfer

import (
	"fmt"

	"github.com/tomasbasham/gcs-helpers/pkg/location"
)

// InvalidPathError reports a destination that does not resolve to a bucket
// and key.
type InvalidPathError struct {
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("transfer: invalid path %q: %v", e.Path, e.Err)
}

func (e *InvalidPathError) Unwrap() error {
	return e.Err
}

// UploadFailedError reports an upload whose retry budget was spent. Err is
// the error from the final attempt.
type UploadFailedError struct {
	Location location.Location
	Attempts int
	Err      error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("transfer: upload to %s failed after %d attempts: %v", e.Location, e.Attempts, e.Err)
}

func (e *UploadFailedError) Unwrap() error {
	return e.Err
}

// EncodingError reports a failure to materialise in-memory data.
type EncodingError struct {
	// Format is the file extension of the encoder that failed.
	Format string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("transfer: failed to encode %s: %v", e.Format, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// BackendError carries a non-retryable backend fault, such as a missing
// object or denied permission, unmodified.
type BackendError struct {
	Op       string
	Location location.Location
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("transfer: %s %s: %v", e.Op, e.Location, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

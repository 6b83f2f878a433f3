package transfer

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/tomasbasham/gcs-helpers/pkg/location"
	"github.com/tomasbasham/gcs-helpers/pkg/storage"
)

// Fetcher downloads objects from a storage backend. Downloads are not
// retried: a partially written sink cannot be rewound.
type Fetcher struct {
	backend storage.Backend
	tempDir string
}

// NewFetcher creates a Fetcher. Generated file names are placed in tempDir,
// or os.TempDir() when empty.
func NewFetcher(backend storage.Backend, tempDir string) *Fetcher {
	return &Fetcher{backend: backend, tempDir: tempDir}
}

// Bytes returns the content of the object at path.
func (f *Fetcher) Bytes(ctx context.Context, path string) ([]byte, error) {
	loc, err := parse(path)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.backend.Download(ctx, loc, &buf); err != nil {
		return nil, &BackendError{Op: "download", Location: loc, Err: err}
	}
	return buf.Bytes(), nil
}

// ToFile downloads the object at path to dest and returns dest. When dest is
// empty a random name with extension ext is generated. A partially written
// file is removed on failure.
func (f *Fetcher) ToFile(ctx context.Context, path, dest, ext string) (string, error) {
	loc, err := parse(path)
	if err != nil {
		return "", err
	}

	if dest == "" {
		if dest, err = tempPath(f.tempDir, "", ext); err != nil {
			return "", err
		}
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("transfer: failed to create %q: %w", dest, err)
	}

	if err := f.backend.Download(ctx, loc, out); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", &BackendError{Op: "download", Location: loc, Err: err}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("transfer: failed to close %q: %w", dest, err)
	}
	return dest, nil
}

// Lookup returns the backend's description of the object at path.
func (f *Fetcher) Lookup(ctx context.Context, path string) (*storage.Object, error) {
	loc, err := parse(path)
	if err != nil {
		return nil, err
	}

	obj, err := f.backend.Lookup(ctx, loc)
	if err != nil {
		return nil, &BackendError{Op: "lookup", Location: loc, Err: err}
	}
	return obj, nil
}

func parse(path string) (location.Location, error) {
	loc, err := location.Parse(path)
	if err != nil {
		return location.Location{}, &InvalidPathError{Path: path, Err: err}
	}
	return loc, nil
}

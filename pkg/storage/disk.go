package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tomasbasham/gcs-helpers/pkg/location"
)

// DiskBackend stores objects on the local filesystem under
// baseDir/bucket/key. There is no metadata store; Lookup sniffs the content
// type from the stored bytes.
type DiskBackend struct {
	baseDir string
}

// NewDiskBackend creates a DiskBackend rooted at baseDir. The directory is
// created if it does not already exist.
func NewDiskBackend(baseDir string) (*DiskBackend, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create local base directory %q: %w", baseDir, err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", baseDir, err)
	}
	return &DiskBackend{baseDir: abs}, nil
}

// Scheme reports "file". URIs built from it are logical, file://bucket/key,
// and do not name the path on disk; use Root to locate stored files.
func (b *DiskBackend) Scheme() string { return "file" }

// Root returns the absolute directory objects are stored under.
func (b *DiskBackend) Root() string { return b.baseDir }

// path maps loc onto the filesystem. Locations whose bucket or key would
// resolve outside baseDir are refused.
func (b *DiskBackend) path(loc location.Location) (string, error) {
	p := filepath.Join(b.baseDir, loc.Bucket, filepath.FromSlash(loc.Key))
	rel, err := filepath.Rel(b.baseDir, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %q", ErrPermission, loc, b.baseDir)
	}
	return p, nil
}

// Insert copies content chunk by chunk into a staging file, checking ctx
// between chunks, and moves it into place once complete.
func (b *DiskBackend) Insert(ctx context.Context, req *InsertRequest) (*Object, error) {
	dest, err := b.path(req.Location)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to write %q: %w", req.Location, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory for %q: %w", req.Location, err)
	}

	f, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create file for %q: %w", req.Location, err)
	}
	staged := f.Name()
	defer os.Remove(staged)

	written, err := copyChunks(ctx, f, req.Content, req.chunkSize())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to write %q: %w", req.Location, err)
	}

	if err := os.Rename(staged, dest); err != nil {
		return nil, fmt.Errorf("storage: failed to commit %q: %w", req.Location, err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to stat %q: %w", req.Location, err)
	}

	return &Object{
		Bucket:      req.Location.Bucket,
		Name:        req.Location.Key,
		ContentType: req.ContentType,
		Size:        written,
		Updated:     info.ModTime(),
		Metadata:    req.Metadata,
	}, nil
}

func (b *DiskBackend) Download(ctx context.Context, loc location.Location, w io.Writer) error {
	p, err := b.path(loc)
	if err != nil {
		return fmt.Errorf("storage: failed to open %q: %w", loc, err)
	}
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("storage: failed to open %q: %w", loc, diskError(err))
	}
	defer f.Close()

	if _, err := copyChunks(ctx, w, f, DefaultChunkSize); err != nil {
		return fmt.Errorf("storage: failed to read %q: %w", loc, err)
	}
	return nil
}

func (b *DiskBackend) Lookup(_ context.Context, loc location.Location) (*Object, error) {
	p, err := b.path(loc)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to look up %q: %w", loc, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to look up %q: %w", loc, diskError(err))
	}
	if info.IsDir() {
		return nil, fmt.Errorf("storage: failed to look up %q: %w", loc, ErrNotFound)
	}

	mtype, err := mimetype.DetectFile(p)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to detect content type of %q: %w", loc, err)
	}

	return &Object{
		Bucket:      loc.Bucket,
		Name:        loc.Key,
		ContentType: mtype.String(),
		Size:        info.Size(),
		Updated:     info.ModTime(),
	}, nil
}

// copyChunks copies src to dst in chunkSize pieces, returning early if ctx
// is done between chunks.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
		}
		switch {
		case err == io.EOF || err == io.ErrUnexpectedEOF:
			return written, nil
		case err != nil:
			return written, err
		}
	}
}

func diskError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return errors.Join(ErrPermission, err)
	}
	return err
}

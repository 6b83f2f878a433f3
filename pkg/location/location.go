// Package location resolves flat storage paths such as "gs://bucket/a/b.tif"
// or "bucket/a/b.tif" into a bucket and object key.
package location

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty is wrapped by errors returned when a path does not name both a
// bucket and a key.
var ErrEmpty = errors.New("location: empty bucket or key")

// Location identifies an object within a bucket. Key never begins with a
// path separator.
type Location struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// URI renders the location as scheme://bucket/key.
func (l Location) URI(scheme string) string {
	return fmt.Sprintf("%s://%s/%s", scheme, l.Bucket, l.Key)
}

func (l Location) String() string {
	return l.Bucket + "/" + l.Key
}

// Parse splits path into a bucket and key. Any scheme prefix is stripped
// before splitting.
func Parse(path string) (Location, error) {
	return Resolve(path, "", "")
}

// Resolve builds a Location from a destination path. When bucket is empty the
// first segment of path names the bucket and the remainder is the key. When
// folder is non-empty it is prepended to the key.
func Resolve(path, folder, bucket string) (Location, error) {
	key := StripScheme(path)
	if bucket == "" {
		bucket, key, _ = strings.Cut(key, "/")
	}
	if folder != "" {
		key = strings.TrimSuffix(folder, "/") + "/" + strings.TrimLeft(key, "/")
	}
	key = strings.TrimLeft(key, "/")

	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return Location{}, fmt.Errorf("%w: %q", ErrEmpty, path)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// StripScheme removes a leading "scheme://" from path, if present.
func StripScheme(path string) string {
	if i := strings.Index(path, "://"); i >= 0 && !strings.Contains(path[:i], "/") {
		return path[i+3:]
	}
	return path
}

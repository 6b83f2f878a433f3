package location

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		folder string
		bucket string
		want   Location
	}{
		{
			name: "scheme prefix",
			path: "gs://my-bucket/a/b.tif",
			want: Location{Bucket: "my-bucket", Key: "a/b.tif"},
		},
		{
			name: "bare path",
			path: "my-bucket/a/b/c.json",
			want: Location{Bucket: "my-bucket", Key: "a/b/c.json"},
		},
		{
			name:   "explicit bucket with folder",
			path:   "data.csv",
			folder: "exports",
			bucket: "b2",
			want:   Location{Bucket: "b2", Key: "exports/data.csv"},
		},
		{
			name:   "folder without bucket",
			path:   "my-bucket/data.csv",
			folder: "exports/2024/",
			want:   Location{Bucket: "my-bucket", Key: "exports/2024/data.csv"},
		},
		{
			name:   "explicit bucket keeps scheme stripping",
			path:   "s3://ignored/x.png",
			bucket: "b2",
			want:   Location{Bucket: "b2", Key: "ignored/x.png"},
		},
		{
			name:   "leading slash trimmed",
			path:   "/x.png",
			bucket: "b2",
			want:   Location{Bucket: "b2", Key: "x.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.path, tt.folder, tt.bucket)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.HasPrefix(got.Key, "/"))
		})
	}
}

func TestResolveFirstSegmentIsBucket(t *testing.T) {
	paths := []string{
		"a/b",
		"bucket/one/two/three.tif",
		"bucket-1/x.y.z",
		"b/c/d/e/f/g",
	}
	for _, p := range paths {
		parts := strings.Split(p, "/")
		got, err := Resolve(p, "", "")
		require.NoError(t, err, p)
		assert.Equal(t, parts[0], got.Bucket, p)
		assert.Equal(t, strings.Join(parts[1:], "/"), got.Key, p)
	}
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		folder string
		bucket string
	}{
		{name: "bucket only", path: "my-bucket"},
		{name: "bucket with trailing slash", path: "gs://my-bucket/"},
		{name: "empty", path: ""},
		{name: "empty with bucket", path: "", bucket: "b2"},
		{name: "folder without file", path: "my-bucket/", folder: "exports"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.path, tt.folder, tt.bucket)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEmpty)
		})
	}
}

func TestLocationURI(t *testing.T) {
	loc, err := Parse("gs://my-bucket/a/b.tif")
	require.NoError(t, err)
	assert.Equal(t, "gs://my-bucket/a/b.tif", loc.URI("gs"))
	assert.Equal(t, "s3://my-bucket/a/b.tif", loc.URI("s3"))
	assert.Equal(t, "my-bucket/a/b.tif", loc.String())
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "b/k", StripScheme("gs://b/k"))
	assert.Equal(t, "b/k", StripScheme("b/k"))
	assert.Equal(t, "b/k://x", StripScheme("b/k://x"))
}

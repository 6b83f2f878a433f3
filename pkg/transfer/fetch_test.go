package transfer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/gcs-helpers/pkg/encode"
	"github.com/tomasbasham/gcs-helpers/pkg/location"
	"github.com/tomasbasham/gcs-helpers/pkg/storage"
)

func newDiskFixture(t *testing.T) (*Coordinator, *Fetcher, string) {
	t.Helper()
	disk, err := storage.NewDiskBackend(t.TempDir())
	require.NoError(t, err)
	tempDir := t.TempDir()
	return New(disk, Config{TempDir: tempDir}), NewFetcher(disk, tempDir), tempDir
}

func TestFetcherRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, f, tempDir := newDiskFixture(t)

	_, err := c.UploadMaterialized(ctx, encode.CSV{Header: []string{"a"}, Rows: [][]string{{"1"}}}, MaterializeRequest{
		Destination:       "gs://bucket/tables/t.csv",
		DeleteAfterUpload: true,
	})
	require.NoError(t, err)

	data, err := f.Bytes(ctx, "gs://bucket/tables/t.csv")
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))

	dest, err := f.ToFile(ctx, "bucket/tables/t.csv", "", "csv")
	require.NoError(t, err)
	assert.Equal(t, tempDir, filepath.Dir(dest))
	assert.Equal(t, ".csv", filepath.Ext(dest))
	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(content))

	explicit := filepath.Join(t.TempDir(), "copy.csv")
	got, err := f.ToFile(ctx, "bucket/tables/t.csv", explicit, "")
	require.NoError(t, err)
	assert.Equal(t, explicit, got)

	obj, err := f.Lookup(ctx, "bucket/tables/t.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(4), obj.Size)
}

func TestFetcherNotFound(t *testing.T) {
	ctx := context.Background()
	_, f, tempDir := newDiskFixture(t)

	_, err := f.Bytes(ctx, "bucket/missing.json")
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "download", berr.Op)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.ToFile(ctx, "bucket/missing.json", "", "json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, dirEntries(t, tempDir), "partial download must be removed")

	_, err = f.Lookup(ctx, "bucket/missing.json")
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "lookup", berr.Op)
}

func TestFetcherInvalidPath(t *testing.T) {
	f := NewFetcher(&fakeBackend{}, t.TempDir())

	var perr *InvalidPathError
	_, err := f.Bytes(context.Background(), "gs://bucket-only")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "gs://bucket-only", perr.Path)
}

func TestFetcherPassesLocation(t *testing.T) {
	var got location.Location
	backend := &fakeBackend{DownloadFunc: func(_ context.Context, loc location.Location, w io.Writer) error {
		got = loc
		_, err := w.Write([]byte("ok"))
		return err
	}}
	f := NewFetcher(backend, t.TempDir())

	data, err := f.Bytes(context.Background(), "gs://b/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, location.Location{Bucket: "b", Key: "a/b/c.txt"}, got)

	backend.DownloadFunc = func(context.Context, location.Location, io.Writer) error {
		return errors.New("reset")
	}
	_, err = f.Bytes(context.Background(), "b/k")
	assert.Error(t, err)
}

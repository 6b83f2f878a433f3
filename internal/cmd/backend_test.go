package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/gcs-helpers/internal/config"
	"github.com/tomasbasham/gcs-helpers/pkg/storage"
)

type closingBackend struct {
	storage.Backend
	closed int
}

func (b *closingBackend) Close() error {
	b.closed++
	return nil
}

func TestCloseBackend(t *testing.T) {
	backend := &closingBackend{}
	closeBackend(backend)
	assert.Equal(t, 1, backend.closed)

	disk, err := storage.NewDiskBackend(t.TempDir())
	require.NoError(t, err)
	assert.NotPanics(t, func() { closeBackend(disk) })
}

func TestNewBackend(t *testing.T) {
	ctx := context.Background()

	backend, err := newBackend(ctx, &config.Config{
		Backend: config.BackendDisk,
		Disk:    config.DiskConfig{BaseDir: t.TempDir()},
	})
	require.NoError(t, err)
	assert.Equal(t, "file", backend.Scheme())

	backend, err = newBackend(ctx, &config.Config{
		Backend: config.BackendS3,
		Minio:   config.MinioConfig{Endpoint: "localhost:9000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", backend.Scheme())

	_, err = newBackend(ctx, &config.Config{Backend: "ftp"})
	assert.Error(t, err)
}

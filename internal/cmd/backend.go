package cmd

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/option"

	"github.com/tomasbasham/gcs-helpers/internal/config"
	"github.com/tomasbasham/gcs-helpers/pkg/storage"
)

// newBackend builds the storage backend named by cfg.
func newBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendGCS:
		var opts []option.ClientOption
		if cfg.Project != "" {
			opts = append(opts, option.WithQuotaProject(cfg.Project))
		}
		backend, err := storage.NewGCSBackend(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise GCS backend: %w", err)
		}
		return backend, nil

	case config.BackendS3:
		backend, err := storage.NewMinioBackend(storage.MinioConfig{
			Endpoint:   cfg.Minio.Endpoint,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			Region:     cfg.Minio.Region,
			UseSSL:     cfg.Minio.UseSSL,
			MaxRetries: cfg.Minio.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialise S3 backend: %w", err)
		}
		return backend, nil

	case config.BackendDisk:
		backend, err := storage.NewDiskBackend(cfg.Disk.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise local backend: %w", err)
		}
		return backend, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// closeBackend releases any connections held by backend.
func closeBackend(backend storage.Backend) {
	if c, ok := backend.(io.Closer); ok {
		_ = c.Close()
	}
}

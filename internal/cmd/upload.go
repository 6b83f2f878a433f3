package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/gcs-helpers/pkg/encode"
	"github.com/tomasbasham/gcs-helpers/pkg/operation"
	"github.com/tomasbasham/gcs-helpers/pkg/transfer"
)

type UploadOptions struct {
	root *GCSHOptions

	Source      string
	Destination string
	Folder      string
	Bucket      string
	ContentType string
	Delete      bool
	Raw         bool
	Sheet       string
	AsCSV       bool
}

var (
	uploadLong = templates.LongDesc(`
		Upload a local file to object storage.

		When no bucket is given, the first segment of DEST names the bucket.
		Failed uploads are retried with exponential backoff. Workbooks may be
		converted to CSV before upload with --as-csv.`)

	uploadExample = templates.Examples(`
		# Upload a file, keeping its name, into the configured default bucket
		gcsh upload scene.tif

		# Upload into a folder of an explicit bucket
		gcsh upload data.csv data.csv --bucket exports --folder 2024/01

		# Convert one sheet of a workbook to CSV and upload it
		gcsh upload orders.xlsx gs://my-bucket/orders.csv --as-csv --sheet Orders`)
)

func NewUploadOptions(root *GCSHOptions) *UploadOptions {
	return &UploadOptions{
		root: root,
	}
}

func NewUploadCommand(o *UploadOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "upload SRC [DEST]",
		DisableFlagsInUseLine: true,
		Short:                 "Upload a file to object storage",
		Long:                  uploadLong,
		Example:               uploadExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.Folder, "folder", "f", "", "Folder prefixed to the destination key")
	flags.StringVarP(&o.Bucket, "bucket", "b", "", "Bucket (default: first segment of DEST)")
	flags.StringVarP(&o.ContentType, "content-type", "t", "", "MIME type (default: detected)")
	flags.BoolVar(&o.Delete, "delete", false, "Delete the source file after the upload")
	flags.BoolVar(&o.Raw, "raw", false, "Print the stored object as JSON instead of its URI")
	flags.BoolVar(&o.AsCSV, "as-csv", false, "Convert an XLSX workbook to CSV before upload")
	flags.StringVar(&o.Sheet, "sheet", "", "Workbook sheet to convert (default: first sheet)")

	return cmd
}

func (o *UploadOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("SRC is required")
	}
	o.Source = args[0]
	if len(args) > 1 {
		o.Destination = args[1]
	}
	return nil
}

func (o *UploadOptions) Validate() error {
	if len(o.Source) == 0 {
		return fmt.Errorf("SRC is required")
	}
	if _, err := os.Stat(o.Source); err != nil {
		return fmt.Errorf("cannot read source: %w", err)
	}
	if o.Sheet != "" && !o.AsCSV {
		return fmt.Errorf("--sheet requires --as-csv")
	}
	return nil
}

func (o *UploadOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := o.root.loadConfig()
	if err != nil {
		return err
	}
	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend(backend)

	log := o.root.logger(cfg.LogLevel)
	store := operation.NewMemoryStore()
	coordinator := transfer.New(backend, transfer.Config{
		DefaultBucket:      cfg.DefaultBucket,
		DefaultContentType: cfg.DefaultContentType,
		ChunkSize:          cfg.ChunkSize,
		TempDir:            cfg.TempDir,
		Policy:             cfg.Policy(),
		Store:              store,
		Logger:             &log,
	})

	var result *transfer.Result
	if o.AsCSV {
		result, err = coordinator.UploadMaterialized(ctx, encode.Workbook{Path: o.Source, Sheet: o.Sheet}, transfer.MaterializeRequest{
			Destination:       o.Destination,
			Folder:            o.Folder,
			Bucket:            o.Bucket,
			ContentType:       o.ContentType,
			DeleteAfterUpload: true,
			ReturnURI:         true,
		})
	} else {
		result, err = coordinator.UploadFile(ctx, transfer.UploadRequest{
			SourcePath:  o.Source,
			Destination: o.Destination,
			Folder:      o.Folder,
			Bucket:      o.Bucket,
			ContentType: o.ContentType,
			ReturnURI:   true,
		})
	}
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	// The source is only removed once it is safely stored.
	if o.Delete {
		if err := os.Remove(o.Source); err != nil {
			return fmt.Errorf("failed to delete source: %w", err)
		}
	}

	if op, err := store.Get(result.OperationID); err == nil && op.Attempts > 1 {
		fmt.Fprintf(o.root.ErrOut, "Upload needed %d attempts\n", op.Attempts)
	}

	if o.Raw {
		out, err := json.MarshalIndent(result.Object, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal object: %w", err)
		}
		fmt.Fprintln(o.root.Out, string(out))
		return nil
	}

	fmt.Fprintln(o.root.Out, result.URI)
	return nil
}

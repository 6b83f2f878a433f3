package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/gcs-helpers/pkg/transfer"
)

type FetchOptions struct {
	root *GCSHOptions

	Path    string
	OutPath string
	Ext     string
	Stdout  bool
}

var (
	fetchLong = templates.LongDesc(`
		Download an object from object storage.

		Without --out the object is written to a randomly named file in the
		configured temporary directory and that file's path is printed.`)

	fetchExample = templates.Examples(`
		# Download to a named file
		gcsh fetch gs://my-bucket/scenes/scene.tif --out scene.tif

		# Download to a generated file name with a .json extension
		gcsh fetch my-bucket/meta/info.json --ext json

		# Print an object
		gcsh fetch gs://my-bucket/meta/info.json --stdout`)
)

func NewFetchOptions(root *GCSHOptions) *FetchOptions {
	return &FetchOptions{
		root: root,
	}
}

func NewFetchCommand(o *FetchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fetch PATH",
		Short:   "Download an object from object storage",
		Long:    fetchLong,
		Example: fetchExample,
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

	cmd.Flags().StringVarP(&o.OutPath, "out", "o", "", "Output file (default: generated name)")
	cmd.Flags().StringVarP(&o.Ext, "ext", "e", "", "Extension for generated file names")
	cmd.Flags().BoolVar(&o.Stdout, "stdout", false, "Write the object to stdout")

	return cmd
}

func (o *FetchOptions) Complete(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("PATH is required")
	}
	o.Path = args[0]
	return nil
}

func (o *FetchOptions) Validate() error {
	if len(o.Path) == 0 {
		return fmt.Errorf("PATH is required")
	}
	if o.Stdout && o.OutPath != "" {
		return fmt.Errorf("--stdout and --out are mutually exclusive")
	}
	return nil
}

func (o *FetchOptions) Run() error {
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
	fetcher := transfer.NewFetcher(backend, cfg.TempDir)

	if o.Stdout {
		data, err := fetcher.Bytes(ctx, o.Path)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		if _, err := o.root.Out.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	dest, err := fetcher.ToFile(ctx, o.Path, o.OutPath, o.Ext)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	fmt.Fprintln(o.root.Out, dest)
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/gcs-helpers/internal/config"
)

var (
	rootLong = templates.LongDesc(`
		Move files and data between the local machine and object storage.

		Uploads are retried on transient failures; destinations may be given as
		gs://bucket/key, s3://bucket/key or bucket/key.`)

	rootExamples = templates.Examples(`
		# Upload a GeoTIFF
		gcsh upload scene.tif gs://my-bucket/scenes/scene.tif

		# Download an object to stdout
		gcsh fetch gs://my-bucket/scenes/meta.json --stdout`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// GCSHOptions defines the options shared by every `gcsh` command.
type GCSHOptions struct {
	ConfigPath string
	Backend    string
	LogLevel   string

	iooption.IOStreams
}

// NewGCSHOptions provides an initialised GCSHOptions instance.
func NewGCSHOptions(streams iooption.IOStreams) *GCSHOptions {
	return &GCSHOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `gcsh` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewGCSHOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `gcsh` command and its nested
// children.
func NewRootCommandWithArgs(o *GCSHOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "gcsh [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Object storage transfer helpers",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	pflags := cmd.PersistentFlags()
	pflags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to a config file")
	pflags.StringVar(&o.Backend, "backend", "", "Storage backend: gcs, s3 or disk (overrides config)")
	pflags.StringVar(&o.LogLevel, "log-level", "", "Log level (overrides config)")

	cmd.AddCommand(NewUploadCommand(NewUploadOptions(o)))
	cmd.AddCommand(NewFetchCommand(NewFetchOptions(o)))
	cmd.AddCommand(NewProfileCommand(NewProfileOptions(o.IOStreams)))

	// The global normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

// loadConfig reads the config and applies command-line overrides.
func (o *GCSHOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger writes human-readable logs to the error stream.
func (o *GCSHOptions) logger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        o.ErrOut,
		TimeFormat: "2006-01-02 15:04:05",
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}

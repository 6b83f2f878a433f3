package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/gcs-helpers/pkg/raster"
)

type ProfileOptions struct {
	Params raster.Params
	Driver string

	iooption.IOStreams
}

var (
	profileLong = templates.LongDesc(`
		Print the raster profile of an image centred on a longitude and latitude.

		Only WGS84 (epsg:4326) output is supported from the command line; other
		coordinate systems need a projector supplied through the library.`)

	profileExample = templates.Examples(`
		# Profile a three band 256x256 image at 0.0001 degree resolution
		gcsh profile --lon -122.41 --lat 37.77 --resolution 0.0001 --count 3 --height 256 --width 256`)
)

func NewProfileOptions(streams iooption.IOStreams) *ProfileOptions {
	return &ProfileOptions{
		IOStreams: streams,
	}
}

func NewProfileCommand(o *ProfileOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Short:   "Print a raster profile as JSON",
		Long:    profileLong,
		Example: profileExample,
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
	flags.Float64Var(&o.Params.Lon, "lon", 0, "Longitude of the image centre")
	flags.Float64Var(&o.Params.Lat, "lat", 0, "Latitude of the image centre")
	flags.StringVar(&o.Params.CRS, "crs", raster.WGS84, "Coordinate reference system")
	flags.Float64Var(&o.Params.Resolution, "resolution", 0, "Pixel size in CRS units")
	flags.IntVar(&o.Params.Count, "count", 1, "Number of bands")
	flags.IntVar(&o.Params.Height, "height", 0, "Image height in pixels")
	flags.IntVar(&o.Params.Width, "width", 0, "Image width in pixels")
	flags.StringVar(&o.Params.DType, "dtype", "uint8", "Pixel data type")
	flags.StringVar(&o.Driver, "driver", string(raster.DriverGTiff), "Output driver: GTiff or PNG")

	return cmd
}

func (o *ProfileOptions) Complete(cmd *cobra.Command, args []string) error {
	o.Params.Driver = raster.Driver(o.Driver)
	return nil
}

func (o *ProfileOptions) Validate() error {
	switch o.Params.Driver {
	case raster.DriverGTiff, raster.DriverPNG:
	default:
		return fmt.Errorf("unknown driver %q", o.Driver)
	}
	return nil
}

func (o *ProfileOptions) Run() error {
	profile, err := raster.NewProfile(o.Params, raster.Identity)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	fmt.Fprintln(o.Out, string(out))
	return nil
}

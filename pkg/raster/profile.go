// Package raster builds the metadata profile describing a raster image: its
// pixel grid, coordinate reference system and encoding parameters.
//
// Coordinate transformation is left to a Projector supplied by the caller.
package raster

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Driver names the file format a raster is written with.
type Driver string

const (
	DriverGTiff Driver = "GTiff"
	DriverPNG   Driver = "PNG"
)

// WGS84 is the CRS of longitude/latitude inputs.
const WGS84 = "epsg:4326"

// Affine is a six-coefficient affine transform mapping pixel (col, row) to
// coordinates: x = A*col + B*row + C, y = D*col + E*row + F.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Apply maps pixel coordinates to world coordinates.
func (a Affine) Apply(col, row float64) (x, y float64) {
	return a.A*col + a.B*row + a.C, a.D*col + a.E*row + a.F
}

// Projector converts a longitude/latitude pair into the coordinates of crs.
type Projector func(lon, lat float64, crs string) (x, y float64, err error)

// Identity is a Projector for rasters whose CRS is already WGS84.
func Identity(lon, lat float64, crs string) (float64, float64, error) {
	if !strings.EqualFold(crs, WGS84) {
		return 0, 0, fmt.Errorf("raster: identity projector cannot project to %q", crs)
	}
	return lon, lat, nil
}

// Profile describes a raster file.
type Profile struct {
	Count     int      `json:"count"`
	Height    int      `json:"height"`
	Width     int      `json:"width"`
	CRS       string   `json:"crs"`
	Driver    Driver   `json:"driver"`
	DType     string   `json:"dtype"`
	NoData    *float64 `json:"nodata"`
	Transform Affine   `json:"transform"`

	// GTiff only.
	Compress   string `json:"compress,omitempty"`
	Interleave string `json:"interleave,omitempty"`
	Tiled      bool   `json:"tiled"`
}

// Params are the inputs to NewProfile. Shape follows (bands, rows, cols).
type Params struct {
	Lon, Lat   float64
	CRS        string
	Resolution float64
	Count      int
	Height     int
	Width      int
	DType      string
	Driver     Driver
}

// NewProfile builds a profile for an image centred on (Lon, Lat). The centre
// is projected into CRS and rounded half to even; the grid origin sits half
// the image width and height from it.
func NewProfile(p Params, project Projector) (Profile, error) {
	if p.Count <= 0 || p.Height <= 0 || p.Width <= 0 {
		return Profile{}, fmt.Errorf("raster: invalid shape (%d, %d, %d)", p.Count, p.Height, p.Width)
	}
	if p.Resolution <= 0 {
		return Profile{}, errors.New("raster: resolution must be positive")
	}
	if p.CRS == "" {
		return Profile{}, errors.New("raster: crs is required")
	}
	if project == nil {
		project = Identity
	}
	driver := p.Driver
	if driver == "" {
		driver = DriverGTiff
	}

	fx, fy, err := project(p.Lon, p.Lat, p.CRS)
	if err != nil {
		return Profile{}, fmt.Errorf("raster: failed to project centre: %w", err)
	}
	x, y := int(math.RoundToEven(fx)), int(math.RoundToEven(fy))
	xmin := x - p.Width/2
	ymin := y - p.Height/2

	profile := Profile{
		Count:  p.Count,
		Height: p.Height,
		Width:  p.Width,
		CRS:    p.CRS,
		Driver: driver,
		DType:  p.DType,
		Transform: Affine{
			A: p.Resolution, B: 0, C: float64(xmin),
			D: 0, E: -p.Resolution, F: float64(ymin),
		},
	}
	if driver == DriverGTiff {
		profile.Compress = "lzw"
		profile.Interleave = "pixel"
		profile.Tiled = false
	}
	return profile, nil
}

// Metadata flattens the profile into string pairs suitable for object
// metadata.
func (p Profile) Metadata() map[string]string {
	t := p.Transform
	m := map[string]string{
		"count":     strconv.Itoa(p.Count),
		"height":    strconv.Itoa(p.Height),
		"width":     strconv.Itoa(p.Width),
		"crs":       p.CRS,
		"driver":    string(p.Driver),
		"transform": fmt.Sprintf("%g,%g,%g,%g,%g,%g", t.A, t.B, t.C, t.D, t.E, t.F),
	}
	if p.DType != "" {
		m["dtype"] = p.DType
	}
	if p.NoData != nil {
		m["nodata"] = strconv.FormatFloat(*p.NoData, 'g', -1, 64)
	}
	if p.Compress != "" {
		m["compress"] = p.Compress
		m["interleave"] = p.Interleave
		m["tiled"] = strconv.FormatBool(p.Tiled)
	}
	return m
}

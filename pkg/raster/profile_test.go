package raster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedProjector(x, y float64) Projector {
	return func(float64, float64, string) (float64, float64, error) {
		return x, y, nil
	}
}

func TestNewProfileGTiff(t *testing.T) {
	p, err := NewProfile(Params{
		Lon: -122.4, Lat: 37.8,
		CRS:        "epsg:32610",
		Resolution: 10,
		Count:      3,
		Height:     256,
		Width:      255,
		DType:      "uint8",
	}, fixedProjector(551000.4, 4183000.6))
	require.NoError(t, err)

	assert.Equal(t, 3, p.Count)
	assert.Equal(t, 256, p.Height)
	assert.Equal(t, 255, p.Width)
	assert.Equal(t, DriverGTiff, p.Driver)
	assert.Equal(t, "uint8", p.DType)
	assert.Nil(t, p.NoData)
	assert.Equal(t, Affine{A: 10, B: 0, C: 551000 - 127, D: 0, E: -10, F: 4183001 - 128}, p.Transform)
	assert.Equal(t, "lzw", p.Compress)
	assert.Equal(t, "pixel", p.Interleave)
	assert.False(t, p.Tiled)
}

func TestNewProfilePNGHasNoTiffOptions(t *testing.T) {
	p, err := NewProfile(Params{
		CRS: WGS84, Resolution: 0.5, Count: 1, Height: 4, Width: 4, Driver: DriverPNG,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, DriverPNG, p.Driver)
	assert.Empty(t, p.Compress)
	assert.Empty(t, p.Interleave)
	_, ok := p.Metadata()["compress"]
	assert.False(t, ok)
}

func TestNewProfileRoundsHalfToEven(t *testing.T) {
	p, err := NewProfile(Params{
		CRS: "epsg:3857", Resolution: 1, Count: 1, Height: 2, Width: 2,
	}, fixedProjector(2.5, 3.5))
	require.NoError(t, err)
	assert.Equal(t, float64(2-1), p.Transform.C)
	assert.Equal(t, float64(4-1), p.Transform.F)
}

func TestNewProfileErrors(t *testing.T) {
	base := Params{CRS: WGS84, Resolution: 1, Count: 1, Height: 1, Width: 1}

	bad := base
	bad.Count = 0
	_, err := NewProfile(bad, nil)
	assert.Error(t, err)

	bad = base
	bad.Resolution = 0
	_, err = NewProfile(bad, nil)
	assert.Error(t, err)

	bad = base
	bad.CRS = ""
	_, err = NewProfile(bad, nil)
	assert.Error(t, err)

	bad = base
	bad.CRS = "epsg:32610"
	_, err = NewProfile(bad, nil)
	assert.Error(t, err, "identity projector must refuse other CRSs")

	boom := errors.New("boom")
	_, err = NewProfile(base, func(float64, float64, string) (float64, float64, error) { return 0, 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestAffineApply(t *testing.T) {
	a := Affine{A: 10, C: 100, E: -10, F: 50}
	x, y := a.Apply(2, 3)
	assert.Equal(t, 120.0, x)
	assert.Equal(t, 20.0, y)
}

func TestProfileMetadata(t *testing.T) {
	nodata := -9999.0
	p := Profile{
		Count: 1, Height: 2, Width: 3, CRS: WGS84, Driver: DriverGTiff, DType: "float32",
		NoData:    &nodata,
		Transform: Affine{A: 1, E: -1, C: 10, F: 20},
		Compress:  "lzw", Interleave: "pixel",
	}
	m := p.Metadata()
	assert.Equal(t, "1,0,10,0,-1,20", m["transform"])
	assert.Equal(t, "-9999", m["nodata"])
	assert.Equal(t, "false", m["tiled"])
	assert.Equal(t, "epsg:4326", m["crs"])
}

package encode

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/tiff"

	"github.com/tomasbasham/gcs-helpers/pkg/raster"
)

// tiffCompression is the only codec the TIFF writer produces besides none.
const tiffCompression = "deflate"

// Image encodes a raster image as Deflate-compressed TIFF, or PNG when PNG is
// set. When Profile is non-nil its grid must match the image bounds, and its
// fields travel with the upload as object metadata.
type Image struct {
	Image   image.Image
	Profile *raster.Profile
	PNG     bool
}

func (im Image) Encode(w io.Writer) error {
	if im.Image == nil {
		return fmt.Errorf("no image to encode")
	}
	if p := im.Profile; p != nil {
		b := im.Image.Bounds()
		if b.Dx() != p.Width || b.Dy() != p.Height {
			return fmt.Errorf("image is %dx%d but profile describes %dx%d", b.Dx(), b.Dy(), p.Width, p.Height)
		}
	}

	if im.PNG {
		return png.Encode(w, im.Image)
	}
	return tiff.Encode(w, im.Image, &tiff.Options{Compression: tiff.Deflate})
}

func (im Image) Extension() string {
	if im.PNG {
		return "png"
	}
	return "tif"
}

func (im Image) ContentType() string {
	if im.PNG {
		return MimePNG
	}
	return MimeTIFF
}

// Metadata returns the profile fields, with the encoding entries describing
// the bytes Encode writes rather than what the profile requested.
func (im Image) Metadata() map[string]string {
	if im.Profile == nil {
		return nil
	}
	m := im.Profile.Metadata()
	if im.PNG {
		m["driver"] = string(raster.DriverPNG)
		delete(m, "compress")
		delete(m, "interleave")
		delete(m, "tiled")
		return m
	}
	m["driver"] = string(raster.DriverGTiff)
	m["compress"] = tiffCompression
	m["interleave"] = "pixel"
	m["tiled"] = "false"
	return m
}

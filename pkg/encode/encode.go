// Package encode turns in-memory values into file bytes ahead of an upload.
// Each Encoder knows the file extension and MIME type of what it produces.
package encode

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MimeTIFF    = "image/tiff"
	MimePNG     = "image/png"
	MimeCSV     = "text/csv"
	MimeJSON    = "application/json"
	MimeGeoJSON = "application/geo+json"
)

// Encoder writes a value in a specific file format.
type Encoder interface {
	Encode(w io.Writer) error

	// Extension is the file extension without a leading dot, e.g. "tif".
	Extension() string

	// ContentType is the MIME type of the encoded bytes. An empty string
	// means the type should be detected from the bytes themselves.
	ContentType() string
}

// Filer is implemented by encoders whose data already lives on disk and
// needs no temporary file.
type Filer interface {
	Filename() string
}

// Namer is implemented by encoders that suggest an object name, used when
// an upload gives no destination.
type Namer interface {
	Name() string
}

// Metadataer is implemented by encoders carrying object metadata, such as a
// raster profile.
type Metadataer interface {
	Metadata() map[string]string
}

// Path is a file that is already on disk.
type Path string

func (p Path) Filename() string { return string(p) }

func (p Path) Encode(w io.Writer) error {
	f, err := os.Open(string(p))
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

func (p Path) Extension() string {
	return strings.TrimPrefix(filepath.Ext(string(p)), ".")
}

func (p Path) ContentType() string { return "" }

// DetectContentType sniffs the MIME type of the file at path.
func DetectContentType(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	return mtype.String(), nil
}

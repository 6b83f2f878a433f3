package encode

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSON encodes Value as JSON, or as GeoJSON when GeoJSON is set.
type JSON struct {
	Value   any
	GeoJSON bool
}

func (j JSON) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(j.Value)
}

func (j JSON) Extension() string {
	if j.GeoJSON {
		return "geojson"
	}
	return "json"
}

func (j JSON) ContentType() string {
	if j.GeoJSON {
		return MimeGeoJSON
	}
	return MimeJSON
}

// ReadJSON decodes the JSON file at path and descends through keyPath, one
// object key per element.
func ReadJSON(path string, keyPath ...string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("encode: failed to open %q: %w", path, err)
	}
	defer f.Close()

	var v any
	if err := json.NewDecoder(f).Decode(&v); err != nil {
		return nil, fmt.Errorf("encode: failed to decode %q: %w", path, err)
	}

	for _, k := range keyPath {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("encode: %q: value at %q is not an object", path, k)
		}
		if v, ok = obj[k]; !ok {
			return nil, fmt.Errorf("encode: %q: key %q not found", path, k)
		}
	}
	return v, nil
}

// WriteJSON writes v to path as JSON, replacing any existing file.
func WriteJSON(v any, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("encode: failed to create %q: %w", path, err)
	}
	if err := (JSON{Value: v}).Encode(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode: failed to write %q: %w", path, err)
	}
	return f.Close()
}

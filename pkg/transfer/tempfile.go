package transfer

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// tokenBytes is the entropy of generated temporary file names.
const tokenBytes = 16

// token returns a random URL-safe name.
func token() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("transfer: failed to generate name: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// tempPath builds the path of a temporary artefact. name defaults to a
// random token; bare names are placed in dir, anything with a directory
// component is used as given.
func tempPath(dir, name, ext string) (string, error) {
	if name == "" {
		t, err := token()
		if err != nil {
			return "", err
		}
		name = t
	}
	if ext != "" {
		name = name + "." + ext
	}
	if filepath.Base(name) != name {
		return name, nil
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, name), nil
}

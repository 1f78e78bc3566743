package editor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/michaelbrown/runpad/internal/lang"
)

// Download returns the file name and content the download action produces:
// code.<ext> for the current language, holding exactly the editor text.
func Download(s State, cat lang.Catalog) (string, []byte, error) {
	l, err := cat.Lookup(s.Language)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("code.%s", l.Ext), []byte(s.Code), nil
}

// SaveDownload writes the download into dir and returns the written path.
func SaveDownload(s State, cat lang.Catalog, dir string) (string, error) {
	name, data, err := Download(s, cat)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

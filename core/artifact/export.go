package artifact

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Exporter writes final, human-facing outputs of the convert command.
// Unlike Store, names are stable and an export overwrites the previous one.
type Exporter struct {
	dir string
}

// NewExporter creates an Exporter targeting dir (the working directory if empty).
func NewExporter(dir string) (*Exporter, error) {
	s, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	return &Exporter{dir: s.dir}, nil
}

// Flat writes output for single-page mode.
// Filename: domain_path.ext (e.g., example_com.md).
func (e *Exporter) Flat(rawURL string, data []byte, ext string) (string, error) {
	path := filepath.Join(e.dir, FilenameFromURL(rawURL)+ext)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Mirror writes output for whole-site mode, mirroring the URL path structure.
// Example: https://site.com/docs/intro → <dir>/docs/intro.md
func (e *Exporter) Mirror(rawURL string, data []byte, ext string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	urlPath := strings.TrimSuffix(parsed.Path, "/")
	if urlPath == "" {
		urlPath = "/index"
	}
	urlPath = strings.TrimPrefix(urlPath, "/")

	// Clean keeps "../" segments from escaping the export directory.
	fullPath := filepath.Join(e.dir, filepath.Clean("/"+urlPath)+ext)
	if err := writeAtomic(fullPath, data); err != nil {
		return "", err
	}
	return fullPath, nil
}

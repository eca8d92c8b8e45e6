// Package artifact implements the hand-off convention between capabilities.
// A stage writes its result to disk and returns a reference to it; the next
// stage receives the reference, never the content.
//
// Stored artifacts are content-addressed: the file name carries a hash of the
// bytes, so rewriting a stage with different content always produces a new
// address and a reference, once handed out, never changes meaning.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/pagegate/core"
)

// hashLen is the number of hex digits of the content hash kept in file names.
const hashLen = 12

// Ref addresses one artifact plus its provenance.
type Ref struct {
	URL      string         `json:"url"`
	Path     string         `json:"path"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Map renders the reference for inclusion in a capability output.
func (r Ref) Map() map[string]any {
	m := map[string]any{"url": r.URL, "path": r.Path}
	if len(r.Metadata) > 0 {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		m["metadata"] = meta
	}
	return m
}

// Store writes artifacts into a single directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating it if needed.
// If dir is empty, it defaults to the current working directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string { return s.dir }

// Write stores data produced by stage for sourceURL and returns its reference.
// File name: <source>_<stage>_<hash><ext>, e.g. example_com_docs_scraped_3f2a9c0d1b7e.html.
func (s *Store) Write(sourceURL, stage, ext string, data []byte, meta map[string]any) (Ref, error) {
	sum := sha256.Sum256(data)
	name := fmt.Sprintf("%s_%s_%s%s", FilenameFromURL(sourceURL), sanitize(stage), hex.EncodeToString(sum[:])[:hashLen], ext)
	path := filepath.Join(s.dir, name)

	if err := writeAtomic(path, data); err != nil {
		return Ref{}, err
	}

	m := map[string]any{"stage": stage, "bytes": len(data)}
	for k, v := range meta {
		m[k] = v
	}
	return Ref{URL: sourceURL, Path: path, Metadata: m}, nil
}

// Resolve checks that path names a readable, non-empty artifact. Failures
// wrap core.ErrMissingInput.
func Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("artifact path is empty: %w", core.ErrMissingInput)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("artifact %s: %v: %w", path, err, core.ErrMissingInput)
	}
	if info.IsDir() {
		return "", fmt.Errorf("artifact %s is a directory: %w", path, core.ErrMissingInput)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("artifact %s is empty: %w", path, core.ErrMissingInput)
	}
	return path, nil
}

// Read resolves path and returns its content.
func Read(path string) ([]byte, error) {
	if _, err := Resolve(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %v: %w", path, err, core.ErrMissingInput)
	}
	return data, nil
}

// ReadText is Read for text artifacts.
func ReadText(path string) (string, error) {
	data, err := Read(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PathFrom pulls the artifact path stored under key in a previous stage's
// output and resolves it. When key is absent, the output's "artifact"
// reference is used instead.
func PathFrom(output map[string]any, key string) (string, error) {
	if p, ok := output[key].(string); ok && p != "" {
		return Resolve(p)
	}
	switch ref := output["artifact"].(type) {
	case Ref:
		return Resolve(ref.Path)
	case map[string]any:
		if p, ok := ref["path"].(string); ok && p != "" {
			return Resolve(p)
		}
	}
	return "", fmt.Errorf("output has no %q reference: %w", key, core.ErrMissingInput)
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partial artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving file into %s: %w", path, err)
	}
	return nil
}

// FilenameFromURL converts a URL into a flat filename.
// Example: https://example.com/docs/intro → example_com_docs_intro
func FilenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return sanitize(rawURL)
	}

	parts := []string{sanitize(parsed.Host)}
	path := strings.Trim(parsed.Path, "/")
	if path != "" {
		for _, seg := range strings.Split(path, "/") {
			parts = append(parts, sanitize(seg))
		}
	}
	return strings.Join(parts, "_")
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

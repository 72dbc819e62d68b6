// Package assets stores images referenced from report sections. Files live
// flat in a hidden directory under the managed root so they never show up
// as a category.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/uxr/internal/apperr"
	"github.com/starford/uxr/internal/storage"
)

const (
	// Dir is the asset directory name relative to the managed root.
	Dir = ".assets"
	// URLPrefix is where the HTTP API serves assets.
	URLPrefix = "/api/assets/"
	// MaxSize caps a single asset.
	MaxSize = 10 << 20 // 10 MB
)

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true,
	}

	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

	// ErrUnsupported is returned for files that are not an accepted image.
	ErrUnsupported = errors.New("unsupported asset")
)

// Asset describes a stored asset.
type Asset struct {
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	URL           string `json:"url"`
	MarkdownImage string `json:"markdown_image"`
}

// Store keeps assets in <root>/.assets.
type Store struct {
	dir string
}

// NewStore returns the asset store for a managed root.
func NewStore(root string) *Store {
	return &Store{dir: filepath.Join(root, Dir)}
}

// Save validates and writes an asset. An existing file with the same name
// fails with apperr.ErrConflict.
func (s *Store) Save(name string, data []byte, fallbackExt string) (Asset, error) {
	if len(data) > MaxSize {
		return Asset{}, fmt.Errorf("assets: %d bytes exceeds %d: %w", len(data), MaxSize, ErrUnsupported)
	}
	if name == "" {
		ext := fallbackExt
		if ext == "" {
			ext = ".bin"
		}
		name = uuid.New().String() + ext
	}
	name = SanitizeFilename(name)

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return Asset{}, fmt.Errorf("assets: extension %q (allowed: png, jpg, jpeg, gif, webp, svg): %w", ext, ErrUnsupported)
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return Asset{}, err
	}

	abs := filepath.Join(s.dir, name)
	if _, err := os.Stat(abs); err == nil {
		return Asset{}, fmt.Errorf("assets: %s already exists: %w", name, apperr.ErrConflict)
	}
	if err := storage.WriteAtomic(abs, data); err != nil {
		return Asset{}, err
	}
	url := URLPrefix + name
	return Asset{
		Name:          name,
		Size:          int64(len(data)),
		URL:           url,
		MarkdownImage: fmt.Sprintf("![%s](%s)", strings.TrimSuffix(name, filepath.Ext(name)), url),
	}, nil
}

// Path resolves name to a file inside the asset directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("assets: filename is required: %w", apperr.ErrPathEscape)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.HasPrefix(cleaned, ".") {
		return "", fmt.Errorf("assets: invalid filename %q: %w", name, apperr.ErrPathEscape)
	}
	abs := filepath.Join(s.dir, cleaned)
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("assets: %s: %w", name, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("assets: stat %s: %w: %w", name, apperr.ErrIO, err)
	}
	return abs, nil
}

// SanitizeFilename strips path separators and unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(filepath.ToSlash(name))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = uuid.New().String()
	}
	return name
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	if ext == ".svg" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("assets: content is not an SVG: %w", ErrUnsupported)
		}
		return nil
	}

	detected := http.DetectContentType(data)
	got := mimeToExt[strings.Split(detected, ";")[0]]
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if got != ext {
		return fmt.Errorf("assets: content does not match %s (detected %s): %w", ext, detected, ErrUnsupported)
	}
	return nil
}

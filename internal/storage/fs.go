package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/uxr/internal/apperr"
	"github.com/starford/uxr/internal/checksum"
	"github.com/starford/uxr/internal/models"
	"github.com/starford/uxr/internal/report"
)

const tempPattern = ".uxr-tmp-*"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the managed root
}

// NewFS creates a new FS provider rooted at the given directory, creating it
// if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute managed root.
func (f *FS) Root() string { return f.root }

// IsReport reports whether name is a report file name.
func IsReport(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".md") && !strings.HasPrefix(name, ".")
}

// IsReportPath reports whether rel (slash-separated) addresses a report: a
// report file directly inside a non-hidden category directory.
func IsReportPath(rel string) bool {
	dir, name, ok := strings.Cut(rel, "/")
	return ok && dir != "" && !strings.HasPrefix(dir, ".") && !strings.Contains(name, "/") && IsReport(name)
}

// Rel converts an absolute path under the root into a slash-separated
// relative one.
func (f *FS) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return "", fmt.Errorf("storage: %w: %s", apperr.ErrPathEscape, abs)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("storage: %w: %s", apperr.ErrPathEscape, abs)
	}
	return rel, nil
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("storage: %w: empty path", apperr.ErrPathEscape)
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", fmt.Errorf("storage: %w: %s", apperr.ErrPathEscape, rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %w: %s", apperr.ErrPathEscape, rel)
	}
	return abs, nil
}

// reportFile resolves rel like safePath and additionally requires it to
// address a report. Anything else under the root reads as missing.
func (f *FS) reportFile(rel string) (string, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return "", err
	}
	slashed, err := f.Rel(abs)
	if err != nil {
		return "", err
	}
	if !IsReportPath(slashed) {
		return "", fmt.Errorf("storage: %s: not a report: %w", rel, apperr.ErrNotFound)
	}
	return abs, nil
}

// List returns the reports directly inside every category directory, most
// recently modified first.
func (f *FS) List(limit int) ([]models.ReportMeta, error) {
	cats, err := f.Categories()
	if err != nil {
		return nil, err
	}
	var out []models.ReportMeta
	for _, cat := range cats {
		entries, err := os.ReadDir(filepath.Join(f.root, cat))
		if err != nil {
			return nil, ioErr("list "+cat, err)
		}
		for _, e := range entries {
			if e.IsDir() || !IsReport(e.Name()) {
				continue
			}
			meta, err := f.Stat(path.Join(cat, e.Name()))
			if errors.Is(err, apperr.ErrNotFound) {
				continue // removed while listing
			}
			if err != nil {
				return nil, err
			}
			out = append(out, meta)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].Path < out[j].Path
		}
		return out[i].LastModified.After(out[j].LastModified)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stat returns the metadata of one report, including its checksum.
func (f *FS) Stat(rel string) (models.ReportMeta, error) {
	abs, err := f.reportFile(rel)
	if err != nil {
		return models.ReportMeta{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.ReportMeta{}, ioErr("stat "+rel, err)
	}
	if info.IsDir() {
		return models.ReportMeta{}, fmt.Errorf("storage: stat %s: %w", rel, apperr.ErrNotFound)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.ReportMeta{}, ioErr("read "+rel, err)
	}
	slashed, _ := f.Rel(abs)
	return models.ReportMeta{
		Name:         info.Name(),
		Category:     path.Dir(slashed),
		Path:         slashed,
		LastModified: info.ModTime(),
		Checksum:     checksum.Sum(data),
		Size:         info.Size(),
	}, nil
}

// Read returns the raw bytes of a report.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.reportFile(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, ioErr("read "+rel, err)
	}
	return data, nil
}

// Write stores req.Content as <category>/<file name>. When req.CurrentPath
// names a report already inside the category, that file is overwritten
// instead; saving into another category always creates a new file.
func (f *FS) Write(req models.WriteRequest) (string, error) {
	if err := report.ValidateCategory(req.Category); err != nil {
		return "", fmt.Errorf("storage: category %q: %w: %v", req.Category, apperr.ErrInvalidCategory, err)
	}
	name := req.FileName
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || !IsReport(name) {
		return "", fmt.Errorf("storage: %w: file name %q", apperr.ErrPathEscape, name)
	}
	target := ResolveTarget(req)
	abs, err := f.safePath(target)
	if err != nil {
		return "", err
	}
	if err := WriteAtomic(abs, req.Content); err != nil {
		return "", err
	}
	return target, nil
}

// ResolveTarget returns the relative path a write request lands on: the
// current path when it is a report inside the requested category, otherwise
// <category>/<file name>.
func ResolveTarget(req models.WriteRequest) string {
	if cur := req.CurrentPath; cur != "" {
		cur = path.Clean(filepath.ToSlash(cur))
		if path.Dir(cur) == req.Category && IsReport(path.Base(cur)) {
			return cur
		}
	}
	return path.Join(req.Category, req.FileName)
}

// Delete removes a report.
func (f *FS) Delete(rel string) error {
	abs, err := f.reportFile(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return ioErr("delete "+rel, err)
	}
	return nil
}

// Export copies a report to destination.
func (f *FS) Export(rel, destination string) error {
	data, err := f.Read(rel)
	if err != nil {
		return err
	}
	dst, err := filepath.Abs(destination)
	if err != nil {
		return fmt.Errorf("storage: resolve destination: %w", err)
	}
	return WriteAtomic(dst, data)
}

// Categories lists the non-hidden directories directly under the root.
func (f *FS) Categories() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, ioErr("read root", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// WriteAtomic writes content to abs: tmp file → fsync → rename.
func WriteAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioErr("mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return ioErr("create temp", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return ioErr("write temp", err)
	}
	if err := tmp.Sync(); err != nil {
		return ioErr("fsync", err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("close temp", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return ioErr("rename", err)
	}
	success = true
	return nil
}

func ioErr(action string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s: %w", action, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s: %w: %w", action, apperr.ErrIO, err)
}

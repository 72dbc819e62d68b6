// Package storage persists report files beneath a managed root directory,
// one subdirectory per category.
package storage

import "github.com/starford/uxr/internal/models"

// Provider is the interface for report file operations. Paths are
// slash-separated and relative to the managed root.
type Provider interface {
	// List returns up to limit reports, newest first. limit <= 0 means all.
	List(limit int) ([]models.ReportMeta, error)
	// Stat returns the metadata of one report.
	Stat(path string) (models.ReportMeta, error)
	// Read returns the raw bytes of a report.
	Read(path string) ([]byte, error)
	// Write stores a report and returns the path it was written to.
	Write(req models.WriteRequest) (string, error)
	// Delete removes a report.
	Delete(path string) error
	// Export copies a report to destination, an absolute file path that may
	// lie outside the root.
	Export(path, destination string) error
	// Categories returns the names of the category directories on disk.
	Categories() ([]string, error)
}

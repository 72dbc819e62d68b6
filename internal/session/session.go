// Package session holds the report being edited: the active document, the
// file it was loaded from and its category.
package session

import (
	"context"
	"fmt"
	"path"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/starford/uxr/internal/apperr"
	"github.com/starford/uxr/internal/report"
	"github.com/starford/uxr/internal/reportservice"
)

// Backend is the part of the report service a session needs.
type Backend interface {
	NewDocument() *report.Document
	AddCategory(ctx context.Context, name string) (string, error)
	Open(ctx context.Context, p, categoryHint string) (*reportservice.LoadedReport, error)
	Save(ctx context.Context, req reportservice.SaveRequest) (*reportservice.SaveResult, error)
}

// Session serialises edits to one document. At most one save runs at a
// time; a second one fails with apperr.ErrSaveInProgress.
type Session struct {
	backend Backend
	saving  *semaphore.Weighted

	mu       sync.Mutex
	doc      *report.Document
	path     string
	checksum string
	// gen changes whenever a different document is opened, so a save that
	// finishes late does not attach its path to the wrong document.
	gen uint64
}

// New starts a session on a fresh document.
func New(backend Backend) *Session {
	return &Session{
		backend: backend,
		saving:  semaphore.NewWeighted(1),
		doc:     backend.NewDocument(),
	}
}

// Document returns a copy of the active document.
func (s *Session) Document() *report.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Path returns the file the document was loaded from or last saved to, or
// "" for a report that has never been saved.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Category returns the active document's category.
func (s *Session) Category() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Category
}

// Reset discards the active document and starts a new one.
func (s *Session) Reset() {
	doc := s.backend.NewDocument()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc, s.path, s.checksum = doc, "", ""
	s.gen++
}

// Load replaces the active document with the report at p. On failure the
// session is unchanged.
func (s *Session) Load(ctx context.Context, p string) error {
	loaded, err := s.backend.Open(ctx, p, "")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc, s.path, s.checksum = loaded.Document, loaded.Path, loaded.Checksum
	s.gen++
	return nil
}

// Update applies fn to a copy of the document and keeps the result only if
// fn succeeds.
func (s *Session) Update(fn func(d *report.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// SetCategory switches the document's category, registering it when new.
func (s *Session) SetCategory(ctx context.Context, name string) error {
	name, err := s.backend.AddCategory(ctx, name)
	if err != nil {
		return err
	}
	return s.Update(func(d *report.Document) error {
		d.Category = name
		return nil
	})
}

// Save writes a snapshot of the document taken when the save starts. Edits
// made while it runs are kept and are not part of the saved file. If another
// report is loaded or a new one started meanwhile, the result is returned but
// not recorded against the active document.
func (s *Session) Save(ctx context.Context) (*reportservice.SaveResult, error) {
	if !s.saving.TryAcquire(1) {
		return nil, fmt.Errorf("session: save: %w", apperr.ErrSaveInProgress)
	}
	defer s.saving.Release(1)

	s.mu.Lock()
	gen := s.gen
	req := reportservice.SaveRequest{Document: s.doc.Clone(), CurrentPath: s.path}
	if s.path != "" && path.Dir(s.path) == req.Document.Category {
		req.IfMatch = s.checksum
	}
	s.mu.Unlock()

	res, err := s.backend.Save(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.path, s.checksum = res.Path, res.Checksum
	}
	return res, nil
}

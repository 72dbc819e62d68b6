// Package reportservice coordinates storage, the index, the codec and the
// category list. Every front end goes through it.
package reportservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/starford/uxr/internal/apperr"
	"github.com/starford/uxr/internal/categories"
	"github.com/starford/uxr/internal/checksum"
	"github.com/starford/uxr/internal/index"
	"github.com/starford/uxr/internal/markdown"
	"github.com/starford/uxr/internal/models"
	"github.com/starford/uxr/internal/report"
	"github.com/starford/uxr/internal/storage"
)

// ListLimit caps report listings.
const ListLimit = 50

// Notifier receives change notifications, typically the SSE broker.
type Notifier interface {
	PublishReportEvent(kind, path string)
	PublishCategoryAdded(name string)
}

type nopNotifier struct{}

func (nopNotifier) PublishReportEvent(string, string) {}
func (nopNotifier) PublishCategoryAdded(string)       {}

// Chooser asks the user where to export a report. ok is false when the user
// declines.
type Chooser func(ctx context.Context, suggestedName string) (destination string, ok bool, err error)

// ReportSummary is one entry of a report listing.
type ReportSummary struct {
	models.ReportMeta
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	Date   string `json:"date,omitempty"`
}

// LoadedReport is a decoded report together with where it came from.
type LoadedReport struct {
	Path     string           `json:"path"`
	Category string           `json:"category"`
	Checksum string           `json:"checksum"`
	Document *report.Document `json:"document"`
	Markdown string           `json:"markdown"`
}

// SaveRequest describes one save.
type SaveRequest struct {
	Document *report.Document
	// CurrentPath is the file the document was loaded from, if any.
	CurrentPath string
	// IfMatch, when set, must match the checksum of the file being
	// overwritten.
	IfMatch string
	// Date stamps the front matter and the file name; zero means now.
	Date time.Time
}

// SaveResult reports where a save landed.
type SaveResult struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Checksum string `json:"checksum"`
	Created  bool   `json:"created"`
}

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       index.ReportIndex
	cats     *categories.Store
	notifier Notifier
	logger   *slog.Logger
	locks    *pathLocks
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the clock used for save dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new report service.
func NewService(store storage.Provider, db index.ReportIndex, cats *categories.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		cats:     cats,
		notifier: nopNotifier{},
		logger:   logger,
		locks:    newPathLocks(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDocument returns a fresh report in the first known category.
func (s *Service) NewDocument() *report.Document {
	return report.New(s.cats.First())
}

// Categories returns the known categories in order.
func (s *Service) Categories() []string {
	return s.cats.List()
}

// AddCategory registers a category and announces it when it is new.
func (s *Service) AddCategory(_ context.Context, name string) (string, error) {
	name, added, err := s.cats.Add(name)
	if err != nil {
		return "", err
	}
	if added {
		s.notifier.PublishCategoryAdded(name)
	}
	return name, nil
}

// List returns up to ListLimit reports, newest first. Titles come from the
// index when the report is indexed.
func (s *Service) List(_ context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	metas, err := s.store.List(limit)
	if err != nil {
		return nil, err
	}
	out := make([]ReportSummary, len(metas))
	for i, m := range metas {
		out[i] = ReportSummary{ReportMeta: m, Title: m.Name}
		if row, err := s.db.GetReport(m.Path); err == nil {
			out[i].Title = row.Title
			out[i].Author = row.Author
			out[i].Date = row.Date
		}
	}
	return out, nil
}

// ListCategory returns up to ListLimit indexed reports in category, most
// recently modified first.
func (s *Service) ListCategory(_ context.Context, category string, limit int) ([]ReportSummary, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	rows, err := s.db.ListReports(category, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ReportSummary, len(rows))
	for i, row := range rows {
		out[i] = ReportSummary{
			ReportMeta: models.ReportMeta{
				Name:         row.Name,
				Category:     row.Category,
				Path:         row.Path,
				LastModified: row.UpdatedAt,
				Checksum:     row.Checksum,
			},
			Title:  row.Title,
			Author: row.Author,
			Date:   row.Date,
		}
	}
	return out, nil
}

// Open reads and decodes a report. categoryHint fills in a missing
// front-matter category; it defaults to the report's directory.
func (s *Service) Open(_ context.Context, p, categoryHint string) (*LoadedReport, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	dir := path.Dir(path.Clean(p))
	if categoryHint == "" {
		categoryHint = dir
	}
	text := string(data)
	return &LoadedReport{
		Path:     path.Clean(p),
		Category: dir,
		Checksum: checksum.Sum(data),
		Document: markdown.Decode(text, categoryHint),
		Markdown: text,
	}, nil
}

// Raw returns the stored bytes of a report with its metadata.
func (s *Service) Raw(_ context.Context, p string) ([]byte, models.ReportMeta, error) {
	meta, err := s.store.Stat(p)
	if err != nil {
		return nil, models.ReportMeta{}, err
	}
	data, err := s.store.Read(p)
	if err != nil {
		return nil, models.ReportMeta{}, err
	}
	return data, meta, nil
}

// Render encodes doc without saving it.
func (s *Service) Render(doc *report.Document, date time.Time) string {
	if date.IsZero() {
		date = s.now()
	}
	return markdown.Encode(doc, date)
}

// Save encodes and stores a document. Its category is registered on first
// use. Writes to the same path are serialised; a stale IfMatch fails with
// apperr.ErrConflict and a new file landing on another report's name fails
// with apperr.ErrExists. Either way the stored file is left untouched.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if req.Document == nil {
		return nil, errors.New("reportservice: save: document is required")
	}
	doc := req.Document.Clone()
	if doc.Category == "" {
		doc.Category = s.cats.First()
	}
	category, err := s.AddCategory(ctx, doc.Category)
	if err != nil {
		return nil, err
	}
	doc.Category = category

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}
	content := []byte(markdown.Encode(doc, date))
	wr := models.WriteRequest{
		Category:    category,
		FileName:    report.FileName(doc.Title, date),
		Content:     content,
		CurrentPath: req.CurrentPath,
	}
	target := storage.ResolveTarget(wr)

	unlock := s.locks.lock(target)
	defer unlock()

	existing, err := s.store.Read(target)
	exists := err == nil
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	inPlace := req.CurrentPath != "" && target == path.Clean(req.CurrentPath)
	if exists && !inPlace {
		return nil, fmt.Errorf("reportservice: save %s: %w", target, apperr.ErrExists)
	}
	if exists && req.IfMatch != "" && !checksum.Match(req.IfMatch, checksum.Sum(existing)) {
		return nil, fmt.Errorf("reportservice: save %s: %w", target, apperr.ErrConflict)
	}

	written, err := s.store.Write(wr)
	if err != nil {
		return nil, err
	}
	s.reindex(written, content)

	kind := "created"
	if exists {
		kind = "updated"
	}
	s.notifier.PublishReportEvent(kind, written)
	s.logger.Info("report saved", slog.String("path", written), slog.String("op", kind))

	return &SaveResult{
		Path:     written,
		Category: category,
		Checksum: checksum.Sum(content),
		Created:  !exists,
	}, nil
}

// Delete removes a report from storage and the index. A non-empty ifMatch
// must match the stored checksum.
func (s *Service) Delete(_ context.Context, p, ifMatch string) error {
	p = path.Clean(p)
	unlock := s.locks.lock(p)
	defer unlock()

	if ifMatch != "" {
		data, err := s.store.Read(p)
		if err != nil {
			return err
		}
		if !checksum.Match(ifMatch, checksum.Sum(data)) {
			return fmt.Errorf("reportservice: delete %s: %w", p, apperr.ErrConflict)
		}
	}
	if err := s.store.Delete(p); err != nil {
		return err
	}
	if err := s.db.DeleteReport(p); err != nil {
		s.logger.Warn("report deleted but index not updated", slog.String("path", p), slog.String("error", err.Error()))
	}
	s.notifier.PublishReportEvent("deleted", p)
	s.logger.Info("report deleted", slog.String("path", p))
	return nil
}

// Download exports a report to a destination picked by choose. It returns
// apperr.ErrCanceled when the user declines.
func (s *Service) Download(ctx context.Context, p, suggestedName string, choose Chooser) (string, error) {
	if _, err := s.store.Stat(p); err != nil {
		return "", err
	}
	if suggestedName == "" {
		suggestedName = path.Base(p)
	}
	dest, ok, err := choose(ctx, suggestedName)
	if err != nil {
		return "", fmt.Errorf("reportservice: choose destination: %w", err)
	}
	if !ok || dest == "" {
		return "", apperr.ErrCanceled
	}
	if err := s.store.Export(p, dest); err != nil {
		return "", err
	}
	s.logger.Info("report exported", slog.String("path", p), slog.String("destination", dest))
	return dest, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Ready reports whether the index is reachable.
func (s *Service) Ready(_ context.Context) error {
	return s.db.Ping()
}

// Sync brings the index up to date with the disk and registers every
// category directory found there.
func (s *Service) Sync(_ context.Context) error {
	dirs, err := s.store.Categories()
	if err != nil {
		return err
	}
	if err := s.cats.Ensure(dirs...); err != nil {
		return err
	}
	return index.Sync(s.db, s.store, s.logger)
}

// reindex refreshes the index entry for a report the service just wrote.
// Failures are logged; the watcher and the next sync catch up.
func (s *Service) reindex(p string, content []byte) {
	meta, err := s.store.Stat(p)
	if err != nil {
		meta = models.ReportMeta{Path: p, LastModified: s.now()}
	}
	if err := index.IndexReport(s.db, meta, content); err != nil {
		s.logger.Warn("report saved but index not updated", slog.String("path", p), slog.String("error", err.Error()))
	}
}

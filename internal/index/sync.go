package index

import (
	"log/slog"
	"path"
	"time"

	"github.com/starford/uxr/internal/checksum"
	"github.com/starford/uxr/internal/markdown"
	"github.com/starford/uxr/internal/models"
	"github.com/starford/uxr/internal/storage"
)

// Sync lists the managed root and brings the index up to date:
//   - new/changed reports are decoded and upserted
//   - reports removed from disk are deleted from the index
func Sync(db ReportIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List(0)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexReport(db, m, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteReport(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexReport decodes data and upserts it into the DB. The category is the
// directory the file lives in, whatever its front matter says.
func IndexReport(db ReportIndex, meta models.ReportMeta, data []byte) error {
	category := meta.Category
	if category == "" {
		category = path.Dir(meta.Path)
	}
	text := string(data)
	fm, _, _ := markdown.Split(text)
	doc := markdown.Decode(text, category)

	cs := meta.Checksum
	if cs == "" {
		cs = checksum.Sum(data)
	}
	updated := meta.LastModified
	if updated.IsZero() {
		updated = time.Now()
	}
	name := meta.Name
	if name == "" {
		name = path.Base(meta.Path)
	}
	return db.UpsertReport(ReportRow{
		Path:      meta.Path,
		Name:      name,
		Category:  category,
		Title:     doc.DisplayTitle(),
		Author:    doc.Author,
		Date:      fm.Date,
		Summary:   doc.Summary,
		Checksum:  cs,
		UpdatedAt: updated,
	}, doc.PlainText())
}

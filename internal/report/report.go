// Package report defines the in-memory report document: top-level metadata
// plus an ordered list of titled rich-text sections.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/starford/uxr/internal/richtext"
)

const (
	// UntitledTitle is shown and written when a report has no title.
	UntitledTitle = "Untitled Report"
	// UntitledSection is shown and written for a section with no title.
	UntitledSection = "Section"

	fallbackSlug = "ux-report"
	dateLayout   = "2006-01-02"
)

// DefaultSections are the section titles of a freshly created report.
var DefaultSections = []string{"Background", "Objectives", "Methodology", "Findings", "Recommendations"}

// Section is one titled block of rich text.
type Section struct {
	Title   string            `json:"title"`
	Content richtext.Fragment `json:"content"`
}

// HeadingTitle returns the title as it appears in the rendered heading.
func (s Section) HeadingTitle() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return UntitledSection
}

// Document is a complete report.
type Document struct {
	Title    string    `json:"title"`
	Author   string    `json:"author,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	Category string    `json:"category"`
	Sections []Section `json:"sections"`
}

// New returns a fresh document in category with the default empty sections.
func New(category string) *Document {
	d := &Document{Category: category}
	for _, t := range DefaultSections {
		d.Sections = append(d.Sections, Section{Title: t})
	}
	return d
}

// DisplayTitle returns the title, or UntitledTitle when it is blank.
func (d *Document) DisplayTitle() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return UntitledTitle
}

// AddSection appends an empty section and returns its index.
func (d *Document) AddSection(title string) int {
	d.Sections = append(d.Sections, Section{Title: title})
	return len(d.Sections) - 1
}

// RemoveSection deletes the section at i.
func (d *Document) RemoveSection(i int) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	d.Sections = append(d.Sections[:i], d.Sections[i+1:]...)
	return nil
}

// MoveSection moves the section at from so that it ends up at index to.
func (d *Document) MoveSection(from, to int) error {
	if err := d.checkIndex(from); err != nil {
		return err
	}
	if err := d.checkIndex(to); err != nil {
		return err
	}
	s := d.Sections[from]
	d.Sections = append(d.Sections[:from], d.Sections[from+1:]...)
	d.Sections = append(d.Sections[:to], append([]Section{s}, d.Sections[to:]...)...)
	return nil
}

// RenameSection sets the title of the section at i.
func (d *Document) RenameSection(i int, title string) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	d.Sections[i].Title = title
	return nil
}

// SetContent replaces the rich text of the section at i.
func (d *Document) SetContent(i int, content richtext.Fragment) error {
	if err := d.checkIndex(i); err != nil {
		return err
	}
	d.Sections[i].Content = content
	return nil
}

func (d *Document) checkIndex(i int) error {
	if i < 0 || i >= len(d.Sections) {
		return fmt.Errorf("report: section index %d out of range [0,%d)", i, len(d.Sections))
	}
	return nil
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	out := *d
	out.Sections = make([]Section, len(d.Sections))
	for i, s := range d.Sections {
		out.Sections[i] = Section{Title: s.Title, Content: s.Content.Clone()}
	}
	return &out
}

// Normalize returns a copy of d with every section's content in canonical
// form.
func (d *Document) Normalize() *Document {
	out := d.Clone()
	for i := range out.Sections {
		out.Sections[i].Content = richtext.Normalize(out.Sections[i].Content)
	}
	return out
}

// Validate checks every section's rich-text structure.
func (d *Document) Validate() error {
	for i, s := range d.Sections {
		if err := s.Content.Validate(); err != nil {
			return fmt.Errorf("report: section %d (%s): %w", i, s.HeadingTitle(), err)
		}
	}
	return nil
}

// PlainText returns the searchable text of the document: summary followed by
// every section title and its content.
func (d *Document) PlainText() string {
	parts := make([]string, 0, 1+2*len(d.Sections))
	if s := strings.TrimSpace(d.Summary); s != "" {
		parts = append(parts, s)
	}
	for _, s := range d.Sections {
		parts = append(parts, s.HeadingTitle())
		if t := s.Content.PlainText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

var slugRe = regexp.MustCompile(`[^A-Za-z0-9-]+`)
var dashRunRe = regexp.MustCompile(`-+`)

// Slug converts title into a file-name stem. Runs of characters outside
// [A-Za-z0-9-] collapse to one dash and edge dashes are dropped; a title
// with nothing left becomes "ux-report".
func Slug(title string) string {
	s := dashRunRe.ReplaceAllString(slugRe.ReplaceAllString(title, "-"), "-")
	if s = strings.Trim(s, "-"); s == "" {
		return fallbackSlug
	}
	return s
}

// FileName returns the file name a report titled title is saved under on
// date.
func FileName(title string, date time.Time) string {
	return Slug(title) + "-" + date.Format(dateLayout) + ".md"
}

// FormatDate renders date the way front matter stores it.
func FormatDate(date time.Time) string {
	return date.Format(dateLayout)
}

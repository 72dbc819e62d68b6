package markdown

import (
	"strings"

	"github.com/starford/uxr/internal/report"
	"github.com/starford/uxr/internal/richtext"
)

type sectionBuf struct {
	title string
	lines []string
}

// Decode parses a report file. It never fails: missing front matter or
// headings leave the corresponding fields empty. categoryHint is used when
// the front matter names no category.
func Decode(text, categoryHint string) *report.Document {
	fm, body, _ := Split(text)

	var (
		heading     string
		seenHeading bool
		summary     []string
		sections    []sectionBuf
		cur         *sectionBuf
	)
	flush := func() {
		if cur != nil {
			sections = append(sections, *cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(body, "\n") {
		switch {
		case !seenHeading && strings.HasPrefix(line, "# "):
			heading = strings.TrimSpace(line[2:])
			seenHeading = true
		case strings.HasPrefix(line, "## "):
			flush()
			cur = &sectionBuf{title: strings.TrimSpace(line[3:])}
		case cur != nil:
			cur.lines = append(cur.lines, line)
		case len(summary) > 0 || strings.TrimSpace(line) != "":
			summary = append(summary, line)
		}
	}
	flush()

	doc := &report.Document{
		Title:    fm.Title,
		Author:   fm.Author,
		Summary:  strings.TrimSpace(strings.Join(summary, "\n")),
		Category: fm.Category,
		Sections: make([]report.Section, 0, len(sections)),
	}
	if doc.Title == "" {
		doc.Title = heading
	}
	if doc.Category == "" {
		doc.Category = categoryHint
	}
	for _, s := range sections {
		doc.Sections = append(doc.Sections, report.Section{
			Title:   s.title,
			Content: richtext.ParseBlock(strings.TrimSpace(strings.Join(s.lines, "\n"))),
		})
	}
	return doc
}

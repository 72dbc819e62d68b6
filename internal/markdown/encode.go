package markdown

import (
	"strings"
	"time"

	"github.com/starford/uxr/internal/report"
	"github.com/starford/uxr/internal/richtext"
)

// Encode renders d as a report file dated date. The document is normalised
// first; Encode never fails.
func Encode(d *report.Document, date time.Time) string {
	doc := d.Normalize()
	title := singleLine(doc.DisplayTitle())

	blocks := []string{
		FrontMatter{
			Title:    title,
			Date:     report.FormatDate(date),
			Category: doc.Category,
			Author:   doc.Author,
		}.String(),
		"# " + title,
	}
	if s := strings.TrimSpace(doc.Summary); s != "" {
		blocks = append(blocks, s)
	}
	for _, s := range doc.Sections {
		blocks = append(blocks, "## "+singleLine(s.HeadingTitle()))
		if body := richtext.Render(s.Content); body != "" {
			blocks = append(blocks, body)
		}
	}

	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimRight(block, " \t\r\n"))
	}
	b.WriteByte('\n')
	return b.String()
}

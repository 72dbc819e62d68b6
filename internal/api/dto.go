package api

import (
	"fmt"
	"time"

	"github.com/starford/uxr/internal/index"
	"github.com/starford/uxr/internal/report"
	"github.com/starford/uxr/internal/reportservice"
	"github.com/starford/uxr/internal/richtext"
)

// SectionInput is one section of a document sent by a client. Content may
// be given as a node tree or as editor HTML; HTML wins when both are set.
type SectionInput struct {
	Title   string            `json:"title" example:"Findings"`
	Content richtext.Fragment `json:"content,omitempty"`
	HTML    string            `json:"html,omitempty" example:"<p>Most users <strong>skipped</strong> the tour.</p>"`
}

// DocumentInput is a report document sent by a client.
type DocumentInput struct {
	Title    string         `json:"title" example:"Checkout usability study"`
	Author   string         `json:"author,omitempty" example:"Ana"`
	Summary  string         `json:"summary,omitempty"`
	Category string         `json:"category" example:"Usability"`
	Sections []SectionInput `json:"sections"`
}

func (in DocumentInput) toDocument() (*report.Document, error) {
	d := &report.Document{
		Title:    in.Title,
		Author:   in.Author,
		Summary:  in.Summary,
		Category: in.Category,
		Sections: make([]report.Section, 0, len(in.Sections)),
	}
	for i, s := range in.Sections {
		content := s.Content
		if s.HTML != "" {
			var err error
			if content, err = richtext.FromHTML(s.HTML); err != nil {
				return nil, fmt.Errorf("section %d: %w", i, err)
			}
		}
		d.Sections = append(d.Sections, report.Section{Title: s.Title, Content: content})
	}
	return d, nil
}

// SaveReportRequest is the request body for saving a report.
type SaveReportRequest struct {
	Document DocumentInput `json:"document" validate:"required"`
	// CurrentPath is the file the document was loaded from, if any.
	CurrentPath string `json:"current_path,omitempty" example:"Usability/Checkout-usability-study-2024-03-09.md"`
	// Date overrides the save date (YYYY-MM-DD).
	Date string `json:"date,omitempty" example:"2024-03-09"`
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// RenderRequest is the request body for encoding a document without saving.
type RenderRequest struct {
	Document DocumentInput `json:"document" validate:"required"`
	Date     string        `json:"date,omitempty" example:"2024-03-09"`
}

// RenderResponse carries the encoded markdown file.
type RenderResponse struct {
	Markdown string `json:"markdown" validate:"required"`
}

// ReportResponse is a decoded report plus the HTML of each section for
// editor front ends.
type ReportResponse struct {
	*reportservice.LoadedReport
	SectionsHTML []string `json:"sections_html"`
}

func newReportResponse(r *reportservice.LoadedReport) ReportResponse {
	out := ReportResponse{LoadedReport: r, SectionsHTML: make([]string, len(r.Document.Sections))}
	for i, s := range r.Document.Sections {
		out.SectionsHTML[i] = richtext.ToHTML(s.Content)
	}
	return out
}

// ReportListResponse wraps report listings.
type ReportListResponse struct {
	Reports []reportservice.ReportSummary `json:"reports" validate:"required"`
	Total   int                           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// CategoriesResponse lists the known categories in order.
type CategoriesResponse struct {
	Categories []string `json:"categories" validate:"required"`
}

// AddCategoryRequest is the request body for adding a category.
type AddCategoryRequest struct {
	Name string `json:"name" example:"Diary Study" validate:"required"`
}

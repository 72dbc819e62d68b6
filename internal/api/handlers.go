package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/uxr/internal/checksum"
	"github.com/starford/uxr/internal/index"
	"github.com/starford/uxr/internal/preview"
	"github.com/starford/uxr/internal/reportservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *reportservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *reportservice.Service) *Handler {
	return &Handler{svc: svc}
}

// reportPath extracts the report path from the URL (everything after
// /api/reports/). Supports encoded slashes from OpenAPI clients
// (e.g. Usability%2Freport.md).
func reportPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func ifMatch(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("If-Match"))
}

// ListReports handles GET /api/reports.
//
//	@Summary		List reports, newest first
//	@Tags			reports
//	@Produce		json
//	@Param			limit		query		int		false	"Page size (max 50)"
//	@Param			category	query		string	false	"Only reports in this category"
//	@Success		200			{object}	ReportListResponse
//	@Security		BearerAuth
//	@Router			/reports [get]
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var (
		items []reportservice.ReportSummary
		err   error
	)
	if category := q.Get("category"); category != "" {
		items, err = h.svc.ListCategory(r.Context(), category, limit)
	} else {
		items, err = h.svc.List(r.Context(), limit)
	}
	if err != nil {
		writeError(w, "list reports", err)
		return
	}
	if items == nil {
		items = []reportservice.ReportSummary{}
	}
	writeJSON(w, http.StatusOK, ReportListResponse{Reports: items, Total: len(items)})
}

// GetReport handles GET /api/reports/*, including the /download and
// /preview sub-resources.
//
//	@Summary		Get a decoded report
//	@Tags			reports
//	@Produce		json
//	@Param			path		path		string	true	"Report path"
//	@Param			category	query		string	false	"Category used when the file has none"
//	@Success		200			{object}	ReportResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports/{path} [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	p := reportPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if rest, ok := strings.CutSuffix(p, "/download"); ok {
		h.download(w, r, rest)
		return
	}
	if rest, ok := strings.CutSuffix(p, "/preview"); ok {
		h.preview(w, r, rest)
		return
	}

	loaded, err := h.svc.Open(r.Context(), p, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, "get report", err)
		return
	}
	w.Header().Set("ETag", checksum.Quote(loaded.Checksum))
	writeJSON(w, http.StatusOK, newReportResponse(loaded))
}

// download handles GET /api/reports/{path}/download.
//
//	@Summary		Download the stored markdown file
//	@Tags			reports
//	@Produce		text/markdown
//	@Param			path	path	string	true	"Report path"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports/{path}/download [get]
func (h *Handler) download(w http.ResponseWriter, r *http.Request, p string) {
	data, meta, err := h.svc.Raw(r.Context(), p)
	if err != nil {
		writeError(w, "download report", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(meta.Path)}))
	w.Header().Set("ETag", checksum.Quote(meta.Checksum))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// preview handles GET /api/reports/{path}/preview.
//
//	@Summary		Render a report as HTML
//	@Tags			reports
//	@Produce		html
//	@Param			path	path	string	true	"Report path"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports/{path}/preview [get]
func (h *Handler) preview(w http.ResponseWriter, r *http.Request, p string) {
	data, _, err := h.svc.Raw(r.Context(), p)
	if err != nil {
		writeError(w, "preview report", err)
		return
	}
	out, err := preview.Render(string(data))
	if err != nil {
		writeError(w, "preview report", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// SaveReport handles POST /api/reports.
//
//	@Summary		Save a report document
//	@Description	Writes to current_path when it lies in the document's category, otherwise to a new file.
//	@Tags			reports
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header		string				false	"Checksum of the file being overwritten"
//	@Param			body		body		SaveReportRequest	true	"Document to save"
//	@Success		200			{object}	reportservice.SaveResult
//	@Success		201			{object}	reportservice.SaveResult
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports [post]
func (h *Handler) SaveReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SaveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	doc, err := req.Document.toDocument()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}

	res, err := h.svc.Save(r.Context(), reportservice.SaveRequest{
		Document:    doc,
		CurrentPath: req.CurrentPath,
		IfMatch:     ifMatch(r),
		Date:        date,
	})
	if err != nil {
		writeError(w, "save report", err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	w.Header().Set("ETag", checksum.Quote(res.Checksum))
	writeJSON(w, status, res)
}

// DeleteReport handles DELETE /api/reports/*.
//
//	@Summary		Delete a report
//	@Tags			reports
//	@Param			path		path	string	true	"Report path"
//	@Param			If-Match	header	string	false	"Checksum the file must still have"
//	@Success		204			"Report deleted"
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports/{path} [delete]
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	p := reportPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), p, ifMatch(r)); err != nil {
		writeError(w, "delete report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across reports
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List categories in order
//	@Tags			categories
//	@Produce		json
//	@Success		200	{object}	CategoriesResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: h.svc.Categories()})
}

// AddCategory handles POST /api/categories.
//
//	@Summary		Add a category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddCategoryRequest	true	"Category name"
//	@Success		200		{object}	CategoriesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories [post]
func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req AddCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if _, err := h.svc.AddCategory(r.Context(), req.Name); err != nil {
		writeError(w, "add category", err)
		return
	}
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: h.svc.Categories()})
}

// Render handles POST /api/render.
//
//	@Summary		Encode a document as markdown without saving it
//	@Tags			reports
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderRequest	true	"Document to encode"
//	@Success		200		{object}	RenderResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	doc, err := req.Document.toDocument()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{Markdown: h.svc.Render(doc, date)})
}

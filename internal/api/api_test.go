package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/uxr/internal/assets"
	"github.com/starford/uxr/internal/reportservice"
	"github.com/starford/uxr/internal/testutil"
)

// testEnv sets up a temp root, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (http.Handler, string) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (http.Handler, string) {
	t.Helper()
	root, store := testutil.TestRoot(t)
	db := testutil.TestDB(t)
	svc := reportservice.NewService(store, db, testutil.TestCategories(t, db), testutil.Logger())
	return NewRouter(svc, assets.NewStore(root), authEnabled, token, sseHandler), root
}

func do(t *testing.T, router http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func saveBody(title, category, currentPath string) SaveReportRequest {
	return SaveReportRequest{
		Document: DocumentInput{
			Title:    title,
			Author:   "Ana",
			Summary:  "Eight sessions.",
			Category: category,
			Sections: []SectionInput{
				{Title: "Findings", HTML: "<p>Most users <strong>skipped</strong> the tour.</p><ul><li>one</li><li>two</li></ul>"},
				{Title: "Recommendations"},
			},
		},
		CurrentPath: currentPath,
		Date:        "2024-03-09",
	}
}

func decodeSave(t *testing.T, w *httptest.ResponseRecorder) reportservice.SaveResult {
	t.Helper()
	var res reportservice.SaveResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode save: %v (%s)", err, w.Body.String())
	}
	return res
}

func TestSaveAndGetReport(t *testing.T) {
	router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/reports", saveBody("Tour study", "Usability", ""))
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decodeSave(t, w)
	if res.Path != "Usability/Tour-study-2024-03-09.md" {
		t.Errorf("path = %q", res.Path)
	}
	if w.Header().Get("ETag") != `"`+res.Checksum+`"` {
		t.Errorf("ETag = %q", w.Header().Get("ETag"))
	}

	w = do(t, router, http.MethodGet, "/reports/"+res.Path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var got struct {
		Path         string   `json:"path"`
		Checksum     string   `json:"checksum"`
		Markdown     string   `json:"markdown"`
		SectionsHTML []string `json:"sections_html"`
		Document     struct {
			Title    string `json:"title"`
			Category string `json:"category"`
			Sections []struct {
				Title string `json:"title"`
			} `json:"sections"`
		} `json:"document"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Document.Title != "Tour study" || got.Document.Category != "Usability" || len(got.Document.Sections) != 2 {
		t.Errorf("document = %+v", got.Document)
	}
	if !strings.Contains(got.Markdown, "- one\n- two") {
		t.Errorf("markdown = %q", got.Markdown)
	}
	if got.SectionsHTML[0] != "<p>Most users <strong>skipped</strong> the tour.</p><ul><li>one</li><li>two</li></ul>" {
		t.Errorf("sections_html[0] = %q", got.SectionsHTML[0])
	}
	if got.Checksum != res.Checksum {
		t.Errorf("checksum = %q, want %q", got.Checksum, res.Checksum)
	}
}

func TestSaveInPlaceWithIfMatch(t *testing.T) {
	router, _ := testEnv(t, "")

	first := decodeSave(t, do(t, router, http.MethodPost, "/reports", saveBody("Tour study", "Usability", "")))

	// Retitled within the same category: same file, 200.
	w := do(t, router, http.MethodPost, "/reports", saveBody("Tour study v2", "Usability", first.Path),
		"If-Match", `"`+first.Checksum+`"`)
	if w.Code != http.StatusOK {
		t.Fatalf("in-place save = %d, body = %s", w.Code, w.Body.String())
	}
	second := decodeSave(t, w)
	if second.Path != first.Path {
		t.Errorf("in-place path = %q, want %q", second.Path, first.Path)
	}

	// The old checksum is stale now.
	w = do(t, router, http.MethodPost, "/reports", saveBody("Tour study v3", "Usability", first.Path),
		"If-Match", first.Checksum)
	if w.Code != http.StatusConflict {
		t.Errorf("stale save = %d, want 409", w.Code)
	}

	// Moving to another category creates a new file.
	w = do(t, router, http.MethodPost, "/reports", saveBody("Tour study v2", "Discovery", first.Path))
	if w.Code != http.StatusCreated {
		t.Fatalf("new category save = %d", w.Code)
	}
	if p := decodeSave(t, w).Path; p != "Discovery/Tour-study-v2-2024-03-09.md" {
		t.Errorf("new category path = %q", p)
	}
}

func TestSaveReport_DuplicateNameConflicts(t *testing.T) {
	router, _ := testEnv(t, "")
	_ = decodeSave(t, do(t, router, http.MethodPost, "/reports", saveBody("Tour study", "Usability", "")))

	w := do(t, router, http.MethodPost, "/reports", saveBody("Tour study", "Usability", ""))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate save = %d, want 409", w.Code)
	}
	var body errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Error != "a report with this title already exists for this date" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestSaveReport_BadRequests(t *testing.T) {
	router, _ := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}

	body := saveBody("x", "Usability", "")
	body.Date = "09/03/2024"
	if w := do(t, router, http.MethodPost, "/reports", body); w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}

	if w := do(t, router, http.MethodPost, "/reports", saveBody("x", "../etc", "")); w.Code != http.StatusBadRequest {
		t.Errorf("bad category = %d, want 400", w.Code)
	}
}

func TestDownloadAndPreview(t *testing.T) {
	router, _ := testEnv(t, "")
	res := decodeSave(t, do(t, router, http.MethodPost, "/reports", saveBody("Tour study", "Usability", "")))

	w := do(t, router, http.MethodGet, "/reports/"+res.Path+"/download", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename=Tour-study-2024-03-09.md` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "---\ntitle: \"Tour study\"\ndate: 2024-03-09\n") {
		t.Errorf("download body = %q", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/reports/"+res.Path+"/preview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<h2>Findings</h2>") || strings.Contains(w.Body.String(), "title:") {
		t.Errorf("preview body = %s", w.Body.String())
	}

	if w := do(t, router, http.MethodGet, "/reports/Usability/nope.md/download", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing download = %d, want 404", w.Code)
	}
}

func TestDeleteReport(t *testing.T) {
	router, _ := testEnv(t, "")
	res := decodeSave(t, do(t, router, http.MethodPost, "/reports", saveBody("Tour study", "Usability", "")))

	if w := do(t, router, http.MethodDelete, "/reports/"+res.Path, nil, "If-Match", "stale"); w.Code != http.StatusConflict {
		t.Errorf("stale delete = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/reports/"+res.Path, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/reports/"+res.Path, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/reports/"+res.Path, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestGetReport_PathEscape(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/reports/..%2F..%2Fetc%2Fpasswd", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("traversal = %d, want 400", w.Code)
	}
	var body errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Error != "invalid report path" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestListReports(t *testing.T) {
	router, _ := testEnv(t, "")
	_ = do(t, router, http.MethodPost, "/reports", saveBody("A", "Usability", ""))
	_ = do(t, router, http.MethodPost, "/reports", saveBody("B", "Discovery", ""))

	w := do(t, router, http.MethodGet, "/reports", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp ReportListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Reports) != 2 {
		t.Errorf("list = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/reports?category=Discovery", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Reports[0].Title != "B" {
		t.Errorf("category list = %+v", resp)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")
	_ = do(t, router, http.MethodPost, "/reports", saveBody("Tour study", "Usability", ""))

	w := do(t, router, http.MethodGet, "/search?q=skipped", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Category != "Usability" {
		t.Errorf("results = %+v", resp.Results)
	}

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestCategories(t *testing.T) {
	router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/categories", AddCategoryRequest{Name: "Diary Study"})
	if w.Code != http.StatusOK {
		t.Fatalf("add = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/categories", nil)
	var resp CategoriesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	want := []string{"General", "Discovery", "Usability", "Concept Test", "Diary Study"}
	if strings.Join(resp.Categories, ",") != strings.Join(want, ",") {
		t.Errorf("categories = %v", resp.Categories)
	}

	if w := do(t, router, http.MethodPost, "/categories", AddCategoryRequest{Name: "a/b"}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid category = %d, want 400", w.Code)
	}
}

func TestRender(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/render", RenderRequest{
		Document: DocumentInput{Title: `Say "hi"`, Category: "General"},
		Date:     "2024-01-02",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("render = %d", w.Code)
	}
	var resp RenderResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	want := "---\ntitle: \"Say \\\"hi\\\"\"\ndate: 2024-01-02\ncategory: \"General\"\n---\n\n# Say \"hi\"\n"
	if resp.Markdown != want {
		t.Errorf("markdown = %q, want %q", resp.Markdown, want)
	}
}

func TestAuthMiddleware(t *testing.T) {
	router, _ := testEnv(t, "secret123")

	if w := do(t, router, http.MethodGet, "/reports", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/reports", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/reports", nil, "Authorization", "Bearer secret123"); w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/reports", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _ := testEnvWithSSE(t, true, "secret", blockingSSE)
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router, _ := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// Asset tests.

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeAsset(t *testing.T) {
	router, root := testEnv(t, "")

	w := uploadFile(t, router, "screen.png", pngHeader)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var a assets.Asset
	_ = json.Unmarshal(w.Body.Bytes(), &a)
	if a.URL != "/api/assets/screen.png" {
		t.Errorf("url = %q", a.URL)
	}
	if _, err := os.Stat(filepath.Join(root, ".assets", "screen.png")); err != nil {
		t.Fatalf("asset not on disk: %v", err)
	}

	w = do(t, router, http.MethodGet, "/assets/screen.png", nil)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), pngHeader) {
		t.Errorf("serve = %d, %d bytes", w.Code, w.Body.Len())
	}

	// A second upload with the same name conflicts.
	if w := uploadFile(t, router, "screen.png", pngHeader); w.Code != http.StatusConflict {
		t.Errorf("duplicate upload = %d, want 409", w.Code)
	}
}

func TestUploadAsset_Rejected(t *testing.T) {
	router, _ := testEnv(t, "")
	if w := uploadFile(t, router, "notes.txt", []byte("hello")); w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("text upload = %d, want 415", w.Code)
	}
	if w := uploadFile(t, router, "fake.png", []byte("not an image")); w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("fake png = %d, want 415", w.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestServeAsset_Missing(t *testing.T) {
	router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/assets/nope.png", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing asset = %d, want 404", w.Code)
	}
}

func TestAssetsDirIsNotACategory(t *testing.T) {
	router, _ := testEnv(t, "")
	_ = uploadFile(t, router, "screen.png", pngHeader)
	w := do(t, router, http.MethodGet, "/reports", nil)
	var resp ReportListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 0 {
		t.Errorf("assets listed as reports: %+v", resp.Reports)
	}
}

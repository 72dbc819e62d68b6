package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/uxr/internal/assets"
	"github.com/starford/uxr/internal/reportservice"
	"github.com/starford/uxr/internal/testutil"
)

const sampleReport = `---
title: "Kiosk study"
category: "Usability"
author: "Ana"
---

# Kiosk study

Six sessions at the station.

## Findings

- Users missed the **refund** button
`

func testServer(t *testing.T) *Server {
	t.Helper()
	root, store := testutil.TestRoot(t)
	db := testutil.TestDB(t)
	svc := reportservice.NewService(store, db, testutil.TestCategories(t, db), testutil.Logger())
	return New(svc, assets.NewStore(root), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no call-tool test helper, so the handlers are called
	// directly.
	var (
		result *mcp.CallToolResult
		err    error
	)
	switch name {
	case "list_reports":
		result, err = srv.listReports(ctx, req)
	case "read_report":
		result, err = srv.readReport(ctx, req)
	case "save_report":
		result, err = srv.saveReport(ctx, req)
	case "delete_report":
		result, err = srv.deleteReport(ctx, req)
	case "search_reports":
		result, err = srv.searchReports(ctx, req)
	case "list_categories":
		result, err = srv.listCategories(ctx, req)
	case "add_category":
		result, err = srv.addCategory(ctx, req)
	case "get_report_format":
		result, err = srv.getReportFormat(ctx, req)
	case "upload_asset":
		result, err = srv.uploadAsset(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func saveSample(t *testing.T, srv *Server) reportservice.SaveResult {
	t.Helper()
	r := callTool(t, srv, "save_report", map[string]any{"content": sampleReport})
	if r.IsError {
		t.Fatalf("save_report: %s", resultText(r))
	}
	var res reportservice.SaveResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res
}

func TestSaveAndReadReport(t *testing.T) {
	srv := testServer(t)
	res := saveSample(t, srv)
	if !strings.HasPrefix(res.Path, "Usability/Kiosk-study-") || !res.Created {
		t.Errorf("save result = %+v", res)
	}

	r := callTool(t, srv, "read_report", map[string]any{"path": res.Path})
	text := resultText(r)
	for _, want := range []string{`title: "Kiosk study"`, "author: \"Ana\"", "## Findings", "- Users missed the **refund** button"} {
		if !strings.Contains(text, want) {
			t.Errorf("read result missing %q:\n%s", want, text)
		}
	}

	// Saving again from the same path overwrites in place.
	r = callTool(t, srv, "save_report", map[string]any{"content": text, "current_path": res.Path})
	var again reportservice.SaveResult
	_ = json.Unmarshal([]byte(resultText(r)), &again)
	if again.Path != res.Path || again.Created {
		t.Errorf("resave = %+v", again)
	}
}

func TestSaveReport_CategoryFallback(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "save_report", map[string]any{"content": "# Loose notes\n", "category": "Field Visits"})
	if r.IsError {
		t.Fatalf("save: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"category": "Field Visits"`) {
		t.Errorf("result = %s", resultText(r))
	}
	cats := resultText(callTool(t, srv, "list_categories", nil))
	if !strings.HasSuffix(cats, "\nField Visits") {
		t.Errorf("categories = %q", cats)
	}
}

func TestListAndSearchReports(t *testing.T) {
	srv := testServer(t)
	res := saveSample(t, srv)

	text := resultText(callTool(t, srv, "list_reports", map[string]any{}))
	if !strings.HasPrefix(text, res.Path+"\t") || !strings.HasSuffix(text, "\tKiosk study") {
		t.Errorf("list = %q", text)
	}
	text = resultText(callTool(t, srv, "list_reports", map[string]any{"category": "Discovery"}))
	if text != "no reports found" {
		t.Errorf("filtered list = %q", text)
	}

	text = resultText(callTool(t, srv, "search_reports", map[string]any{"query": "refund"}))
	if !strings.Contains(text, res.Path) {
		t.Errorf("search = %s", text)
	}
}

func TestDeleteReport(t *testing.T) {
	srv := testServer(t)
	res := saveSample(t, srv)

	r := callTool(t, srv, "delete_report", map[string]any{"path": res.Path})
	if resultText(r) != "deleted: "+res.Path {
		t.Errorf("delete = %q", resultText(r))
	}
	r = callTool(t, srv, "read_report", map[string]any{"path": res.Path})
	if !r.IsError || resultText(r) != "report not found" {
		t.Errorf("read after delete = %v %q", r.IsError, resultText(r))
	}
}

func TestReadReport_Errors(t *testing.T) {
	srv := testServer(t)
	if r := callTool(t, srv, "read_report", map[string]any{}); !r.IsError {
		t.Error("missing path accepted")
	}
	r := callTool(t, srv, "read_report", map[string]any{"path": "../../etc/passwd"})
	if !r.IsError || resultText(r) != "invalid report path" {
		t.Errorf("traversal = %v %q", r.IsError, resultText(r))
	}
}

func TestAddCategory(t *testing.T) {
	srv := testServer(t)
	if r := callTool(t, srv, "add_category", map[string]any{"name": " Diary "}); resultText(r) != "category: Diary" {
		t.Errorf("add = %q", resultText(r))
	}
	if r := callTool(t, srv, "add_category", map[string]any{"name": ".hidden"}); !r.IsError {
		t.Error("dot category accepted")
	}
}

func TestGetReportFormat(t *testing.T) {
	srv := testServer(t)
	if text := resultText(callTool(t, srv, "get_report_format", nil)); text != ReportFormatContract {
		t.Error("contract mismatch")
	}
	contents, err := srv.readReportFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != "uxr://report-format" {
		t.Errorf("resource contents = %+v", contents[0])
	}
}

func TestUploadAsset(t *testing.T) {
	srv := testServer(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	r := callTool(t, srv, "upload_asset", map[string]any{"url": uri, "filename": "flow.png"})
	if r.IsError {
		t.Fatalf("upload: %s", resultText(r))
	}
	var a assets.Asset
	_ = json.Unmarshal([]byte(resultText(r)), &a)
	if a.MarkdownImage != "![flow](/api/assets/flow.png)" {
		t.Errorf("asset = %+v", a)
	}

	r = callTool(t, srv, "upload_asset", map[string]any{"url": "http://127.0.0.1/x.png"})
	if !r.IsError {
		t.Error("loopback fetch accepted")
	}
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the report tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/uxr/internal/apperr"
	"github.com/starford/uxr/internal/assets"
	"github.com/starford/uxr/internal/markdown"
	"github.com/starford/uxr/internal/reportservice"
)

const formatURI = "uxr://report-format"

// Server wraps the MCP server with the report tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *reportservice.Service
	assets *assets.Store
}

// New creates a new MCP server with all report tools registered.
func New(svc *reportservice.Service, store *assets.Store, version string) *Server {
	s := &Server{svc: svc, assets: store}

	s.mcp = server.NewMCPServer(
		"uxr",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_reports",
		mcp.WithDescription("List reports, newest first (at most 50)."),
		mcp.WithString("category", mcp.Description("Optional category to list (empty for all)")),
	), s.listReports)

	s.mcp.AddTool(mcp.NewTool("read_report",
		mcp.WithDescription("Read the stored Markdown of a report."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the report (e.g. Usability/Checkout-study-2024-03-09.md)")),
	), s.readReport)

	s.mcp.AddTool(mcp.NewTool("save_report",
		mcp.WithDescription("Save a report. Content MUST follow the report format contract; "+
			"read it first via the get_report_format tool or the "+formatURI+" resource. "+
			"Pass current_path to overwrite the report it was read from."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown following the report format contract")),
		mcp.WithString("current_path", mcp.Description("Path the report was read from, if any")),
		mcp.WithString("category", mcp.Description("Category to use when the content has none")),
	), s.saveReport)

	s.mcp.AddTool(mcp.NewTool("delete_report",
		mcp.WithDescription("Delete a report."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the report")),
	), s.deleteReport)

	s.mcp.AddTool(mcp.NewTool("search_reports",
		mcp.WithDescription("Full-text search through report titles, authors and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchReports)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List the known report categories in order."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("add_category",
		mcp.WithDescription("Add a report category."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Category name (no path separators)")),
	), s.addCategory)

	s.mcp.AddTool(mcp.NewTool("get_report_format",
		mcp.WithDescription("Returns the report format contract. "+
			"Call this before saving reports to ensure correct structure."),
	), s.getReportFormat)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image for use in a report from an http(s) URL or a base64 data URI. "+
			"Returns a markdown_image snippet."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the image")),
		mcp.WithString("filename", mcp.Description("Optional file name to store it under")),
	), s.uploadAsset)

	// Resource: report format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Report Format Contract",
			mcp.WithResourceDescription("Markdown format that all reports must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readReportFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(apperr.Message(err))
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listReports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		items []reportservice.ReportSummary
		err   error
	)
	if category := req.GetString("category", ""); category != "" {
		items, err = s.svc.ListCategory(ctx, category, 0)
	} else {
		items, err = s.svc.List(ctx, 0)
	}
	if err != nil {
		return toolError(err), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no reports found"), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%s\t%s\t%s", it.Path, it.Date, it.Title)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _, err := s.svc.Raw(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) saveReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category := req.GetString("category", "")
	if category == "" {
		category = s.svc.Categories()[0]
	}
	res, err := s.svc.Save(ctx, reportservice.SaveRequest{
		Document:    markdown.Decode(content, category),
		CurrentPath: req.GetString("current_path", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) deleteReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, path, ""); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) searchReports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) listCategories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.svc.Categories(), "\n")), nil
}

func (s *Server) addCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err = s.svc.AddCategory(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("category: %s", name)), nil
}

func (s *Server) getReportFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ReportFormatContract), nil
}

func (s *Server) readReportFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ReportFormatContract,
		},
	}, nil
}

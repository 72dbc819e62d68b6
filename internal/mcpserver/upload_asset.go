package mcpserver

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/uxr/internal/assets"
)

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, name, ext, err := assets.Fetch(ctx, rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if v := req.GetString("filename", ""); v != "" {
		name = v
	}

	asset, err := s.assets.Save(name, data, ext)
	if err != nil {
		if errors.Is(err, assets.ErrUnsupported) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolError(err), nil
	}
	return jsonResult(asset), nil
}

package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	previewURI = "linkbio://preview"
	sessionURI = "linkbio://session"
)

func (s *Server) registerResources() {
	// ── linkbio://preview ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		previewURI,
		"Rendered page preview",
		mcp.WithMIMEType("text/html"),
	), s.handlePreviewResource)

	// ── linkbio://session ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		sessionURI,
		"Blocks and style of the page being edited",
		mcp.WithMIMEType("application/json"),
	), s.handleSessionResource)
}

func (s *Server) handlePreviewResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	html, err := s.editor.Preview()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: previewURI, MIMEType: "text/html", Text: html},
	}, nil
}

func (s *Server) handleSessionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snap, err := s.editor.Snapshot()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: sessionURI, MIMEType: "application/json", Text: string(data)},
	}, nil
}

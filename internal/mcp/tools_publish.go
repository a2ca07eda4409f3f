package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPublishTools() {
	s.mcp.AddTool(mcp.NewTool("publish_page",
		mcp.WithDescription("Upload pending images and publish the page. Republishing keeps the same public URL."),
	), s.handlePublishPage)

	s.mcp.AddTool(mcp.NewTool("export_page",
		mcp.WithDescription("Upload pending images and save the page as a standalone HTML file"),
		mcp.WithString("dir", mcp.Description("Destination directory (optional)")),
	), s.handleExportPage)

	s.mcp.AddTool(mcp.NewTool("page_stats",
		mcp.WithDescription("View count of the published page (premium plan)"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handlePageStats)
}

func (s *Server) handlePublishPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.editor.Session()
	if err != nil {
		return toolError(err), nil
	}
	res, err := s.publisher.Publish(ctx, sess)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleExportPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.editor.Session()
	if err != nil {
		return toolError(err), nil
	}
	dir := getString(req.GetArguments(), "dir", s.exportDir)
	path, err := s.publisher.ExportToFile(ctx, sess, dir)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]string{"path": path})
}

func (s *Server) handlePageStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.editor.Session()
	if err != nil {
		return toolError(err), nil
	}
	stats, err := s.pages.Stats(ctx, sess.User.ID, sess.Plan)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(stats)
}

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"linkbio/internal/domain"
)

func (s *Server) registerPageTools() {
	// ── set_page_style ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_page_style",
		mcp.WithDescription("Change page-level settings: backgroundColor, title, titleColor, subtitle, subtitleColor, topLinksBackground, topLinksColor."),
		mcp.WithString("patch", mcp.Description("JSON object with the settings to change"), mcp.Required()),
	), s.handleSetPageStyle)

	// ── toggle_social_icon ─────────────────────────────
	platforms := make([]string, len(domain.Platforms))
	for i, p := range domain.Platforms {
		platforms[i] = string(p)
	}
	s.mcp.AddTool(mcp.NewTool("toggle_social_icon",
		mcp.WithDescription("Show or hide a social icon in the top row. When url is given the icon is shown with that link."),
		mcp.WithString("platform", mcp.Description("Platform"), mcp.Enum(platforms...), mcp.Required()),
		mcp.WithString("url", mcp.Description("Profile URL (optional)")),
	), s.handleToggleSocialIcon)

	// ── get_preview ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_preview",
		mcp.WithDescription("Render the page as the editor preview shows it (HTML)"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetPreview)
}

func (s *Server) handleSetPageStyle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok, err := jsonArg(req.GetArguments(), "patch")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("patch is required")
	}
	var p domain.PageStylePatch
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return toolError(fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)), nil
	}
	if err := s.editor.UpdateStyle(ctx, p); err != nil {
		return toolError(err), nil
	}
	return textResult("Page style updated"), nil
}

func (s *Server) handleToggleSocialIcon(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name, err := requireString(args, "platform")
	if err != nil {
		return nil, err
	}
	platform := domain.Platform(name)
	url := getString(args, "url", "")

	snap, err := s.editor.Snapshot()
	if err != nil {
		return toolError(err), nil
	}
	shown := snap.Style.HasSocialIcon(platform)
	// a url means "show with this link": never toggle an active icon off
	if !shown || url == "" {
		if err := s.editor.ToggleSocialIcon(ctx, platform); err != nil {
			return toolError(err), nil
		}
		shown = !shown
	}
	if shown && url != "" {
		if err := s.editor.SetSocialURL(ctx, platform, url); err != nil {
			return toolError(err), nil
		}
	}
	if shown {
		return textResult(fmt.Sprintf("%s icon shown", platform)), nil
	}
	return textResult(fmt.Sprintf("%s icon hidden", platform)), nil
}

func (s *Server) handleGetPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	html, err := s.editor.Preview()
	if err != nil {
		return toolError(err), nil
	}
	return textResult(html), nil
}

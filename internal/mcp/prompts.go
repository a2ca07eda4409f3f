package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("build_link_page",
		mcp.WithPromptDescription("Guide through building and publishing a link-in-bio page"),
		mcp.WithArgument("owner",
			mcp.ArgumentDescription("Person or brand the page is for"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("links",
			mcp.ArgumentDescription("Links to include, one per line as 'label - url'"),
			mcp.RequiredArgument(),
		),
	), s.handleBuildPagePrompt)
}

func (s *Server) handleBuildPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	owner := req.Params.Arguments["owner"]
	links := req.Params.Arguments["links"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a link page for: %s", owner),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a link-in-bio page for "%s".

1. Call get_session to see the plan, the block quota and the current blocks.
2. Use set_page_style to set the title to the owner's name and a short subtitle.
3. Insert one link block per line below with insert_block (kind "link", patch {"label": ..., "href": ...}).
   The page shows the newest block first, so insert the most important link last.
   Stop when the quota is reached and tell the user which links were left out.
4. Turn on social icons with toggle_social_icon when a link points to a known platform.
5. Check the result with get_preview, then call publish_page and report the URL.

Links:
%s`, owner, links),
				},
			},
		},
	}, nil
}

package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"linkbio/internal/domain"
)

func (s *Server) registerBlockTools() {
	// ── get_session ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Show the page being edited: plan, block quota, page style and blocks in display order (newest first)."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetSession)

	// ── insert_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("insert_block",
		mcp.WithDescription("Add a block to the page. Plans limit the number of blocks (free 5, basic 16)."),
		mcp.WithString("kind",
			mcp.Description("Block kind"),
			mcp.Enum(string(domain.BlockKindLink), string(domain.BlockKindText), string(domain.BlockKindImage), string(domain.BlockKindTracking)),
			mcp.Required(),
		),
		mcp.WithNumber("position", mcp.Description("Insertion index in the list (optional, appends when omitted)")),
		mcp.WithString("patch", mcp.Description(`Initial fields as JSON, same shape as update_block (e.g. {"label":"Site","href":"https://..."})`)),
	), s.handleInsertBlock)

	// ── update_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Change fields of a block. Link: label, href, backgroundColor, textColor, borderColor, showIcon, iconBackgroundColor, iconColor. "+
			"Text: content, size (text-sm..text-3xl), bold, align (text-left|text-center|text-right), textColor. Image: src, alt. Tracking: pixelMarkup."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("patch", mcp.Description("JSON object with the fields to change"), mcp.Required()),
	), s.handleUpdateBlock)

	// ── remove_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a block. Requires user approval."),
		mcp.WithString("blockId", mcp.Description("Block ID to remove"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveBlock)

	// ── reorder_block ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reorder_block",
		mcp.WithDescription("Move a block to the list position currently held by another block"),
		mcp.WithString("fromId", mcp.Description("Block to move"), mcp.Required()),
		mcp.WithString("toId", mcp.Description("Block whose position it takes"), mcp.Required()),
	), s.handleReorderBlock)
}

// ── Handlers ───────────────────────────────────────────────

type sessionView struct {
	Plan   domain.PlanTier  `json:"plan"`
	Quota  int              `json:"quota"` // -1 for unlimited
	Style  domain.PageStyle `json:"style"`
	Blocks []blockSummary   `json:"blocks"`
}

func (s *Server) handleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.editor.Snapshot()
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(sessionView{
		Plan:   snap.Plan,
		Quota:  snap.Plan.BlockQuota(),
		Style:  snap.Style,
		Blocks: summarizeBlocks(displayOrder(snap.Blocks)),
	})
}

func (s *Server) handleInsertBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	kind, err := requireString(args, "kind")
	if err != nil {
		return nil, err
	}
	patch, hasPatch, err := jsonArg(args, "patch")
	if err != nil {
		return nil, err
	}

	block, err := s.editor.Insert(ctx, domain.BlockKind(kind), int(getFloat(args, "position", -1)))
	if err != nil {
		return toolError(err), nil
	}
	if hasPatch {
		if _, err := s.editor.UpdateJSON(ctx, block.ID, patch); err != nil {
			return toolError(fmt.Errorf("block %s created, patch not applied: %w", block.ID, err)), nil
		}
	}
	snap, _ := s.editor.Snapshot()
	for _, b := range snap.Blocks {
		if b.ID == block.ID {
			block = b
		}
	}
	return jsonResult(block)
}

func (s *Server) handleUpdateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	patch, ok, err := jsonArg(args, "patch")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("patch is required")
	}

	found, err := s.editor.UpdateJSON(ctx, id, patch)
	if err != nil {
		return toolError(err), nil
	}
	if !found {
		return toolError(fmt.Errorf("block %s: %w", id, domain.ErrNotFound)), nil
	}
	return textResult(fmt.Sprintf("Block %s updated", id)), nil
}

func (s *Server) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	sess, err := s.editor.Session()
	if err != nil {
		return toolError(err), nil
	}
	block, ok := sess.List.Get(id)
	if !ok {
		return toolError(fmt.Errorf("block %s: %w", id, domain.ErrNotFound)), nil
	}

	// Require approval (with metadata for frontend highlight)
	meta := fmt.Sprintf(`{"blockIds":[%q]}`, id)
	if err := s.approval.Request(ctx, "remove_block", fmt.Sprintf("Remove %s block %q", block.Kind, block.Summary()), meta); err != nil {
		return textResult("Action not approved: " + err.Error()), nil
	}

	removed, err := s.editor.Remove(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if !removed {
		return textResult(fmt.Sprintf("Block %s was already removed", id)), nil
	}
	return textResult(fmt.Sprintf("Block %s removed", id)), nil
}

func (s *Server) handleReorderBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	from, err := requireString(args, "fromId")
	if err != nil {
		return nil, err
	}
	to, err := requireString(args, "toId")
	if err != nil {
		return nil, err
	}
	moved, err := s.editor.Reorder(ctx, from, to)
	if err != nil {
		return toolError(err), nil
	}
	if !moved {
		return textResult("Nothing moved (unknown id or same position)"), nil
	}
	snap, _ := s.editor.Snapshot()
	ids := make([]string, 0, len(snap.Blocks))
	for _, b := range displayOrder(snap.Blocks) {
		ids = append(ids, b.ID)
	}
	return textResult("Display order: " + strings.Join(ids, ", ")), nil
}

// displayOrder returns blocks as the page shows them, newest first.
func displayOrder(blocks []domain.Block) []domain.Block {
	out := make([]domain.Block, len(blocks))
	for i, b := range blocks {
		out[len(blocks)-1-i] = b
	}
	return out
}

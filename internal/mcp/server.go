package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"linkbio/internal/domain"
	"linkbio/internal/logging"
	"linkbio/internal/service"
	"linkbio/internal/storage"
)

// Server is the MCP server for the page editor.
// It exposes tools, resources, and prompts so AI agents can build a link page.
type Server struct {
	mcp      *server.MCPServer
	emitter  service.EventEmitter
	approval *ApprovalQueue
	logger   *zap.Logger

	// Services (injected from app layer)
	editor    *service.EditorService
	publisher *service.PublishService
	pages     *service.PageService

	exportDir string
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter   service.EventEmitter
	Editor    *service.EditorService
	Publisher *service.PublishService
	Pages     *service.PageService
	// When set, approvals go through the mcp_approvals table (standalone mode)
	Approvals *storage.ApprovalStore
	ExportDir string
	Logger    *zap.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := logging.OrNop(deps.Logger).Named("mcp")
	approval := NewApprovalQueue(deps.Emitter, logger)
	if deps.Approvals != nil {
		approval.SetStore(deps.Approvals)
	}
	s := &Server{
		emitter:   deps.Emitter,
		approval:  approval,
		logger:    logger,
		editor:    deps.Editor,
		publisher: deps.Publisher,
		pages:     deps.Pages,
		exportDir: deps.ExportDir,
	}

	s.mcp = server.NewMCPServer(
		"linkbio-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerBlockTools()
	s.registerPageTools()
	s.registerPublishTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) bool {
	return s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) bool {
	return s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// toolError reports a rejected operation to the agent as a tool error, so
// quota and validation failures are visible without failing the protocol.
func toolError(err error) *mcp.CallToolResult {
	n := service.NoticeFor(err)
	msg := n.Message
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		msg = fmt.Sprintf("%s (%v)", n.Message, err)
	}
	return mcp.NewToolResultError(msg)
}

func getString(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// jsonArg returns a JSON object argument. Agents send either an object or
// a string holding one.
func jsonArg(args map[string]any, key string) (json.RawMessage, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	if s, isString := v.(string); isString {
		if s == "" {
			return nil, false, nil
		}
		if !json.Valid([]byte(s)) {
			return nil, false, fmt.Errorf("%s: invalid JSON", key)
		}
		return json.RawMessage(s), true, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", key, err)
	}
	return data, true, nil
}

func boolPtr(v bool) *bool { return &v }

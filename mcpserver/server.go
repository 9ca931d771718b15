// Package mcpserver exposes the note service as Model Context Protocol tools
// so agents can read, create, tag and summarize notes.
package mcpserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kbukum/voicenotes/errors"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/note"
)

// Tool names.
const (
	ToolListNotes      = "list_notes"
	ToolGetNote        = "get_note"
	ToolCreateNote     = "create_note"
	ToolGenerateTags   = "generate_tags"
	ToolSummarizeNotes = "summarize_notes"
)

// Server serves the note tools.
type Server struct {
	notes *note.Service
	mcp   *server.MCPServer
	log   *logger.Logger
}

// New registers every tool on a fresh MCP server.
func New(notes *note.Service, name, version string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		notes: notes,
		log:   log.WithComponent("mcp"),
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.mcp.AddTools(s.Tools()...)
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio answers JSON-RPC requests read from in until ctx is done or
// in is closed. Nothing but protocol messages is written to out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.Info("MCP server listening on stdio", logger.Fields("tools", len(s.Tools())))
	err := server.NewStdioServer(s.mcp).Listen(ctx, in, out)
	if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Tools lists the tool definitions with their handlers.
func (s *Server) Tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolListNotes,
				mcp.WithDescription("List notes, newest first. Optionally filter by a case-insensitive search over title, content and tags."),
				mcp.WithString("query", mcp.Description("Search text")),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.listNotes,
		},
		{
			Tool: mcp.NewTool(ToolGetNote,
				mcp.WithDescription("Get one note by id."),
				mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.getNote,
		},
		{
			Tool: mcp.NewTool(ToolCreateNote,
				mcp.WithDescription("Create a note."),
				mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
				mcp.WithString("content", mcp.Description("Note body")),
				mcp.WithArray("tags", mcp.Description("Tags"), mcp.Items(map[string]any{"type": "string"})),
			),
			Handler: s.createNote,
		},
		{
			Tool: mcp.NewTool(ToolGenerateTags,
				mcp.WithDescription("Generate tags with the configured language model. With note_id the tags are merged into that note; otherwise tags are generated for content."),
				mcp.WithString("content", mcp.Description("Text to tag")),
				mcp.WithString("note_id", mcp.Description("Note to tag and update")),
			),
			Handler: s.generateTags,
		},
		{
			Tool: mcp.NewTool(ToolSummarizeNotes,
				mcp.WithDescription("Summarize notes with the configured language model. Without ids every note is summarized."),
				mcp.WithArray("ids", mcp.Description("Note ids"), mcp.Items(map[string]any{"type": "string"})),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.summarizeNotes,
		},
	}
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.notes.List(ctx, note.Query{Search: req.GetString("query", "")})
	if err != nil {
		return s.toolError(ctx, ToolListNotes, err), nil
	}
	return jsonResult(notes)
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.Get(ctx, id)
	if err != nil {
		return s.toolError(ctx, ToolGetNote, err), nil
	}
	return jsonResult(n)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := note.Input{
		Title:   req.GetString("title", ""),
		Content: req.GetString("content", ""),
		Tags:    req.GetStringSlice("tags", nil),
	}
	n, err := s.notes.Create(ctx, in)
	if err != nil {
		return s.toolError(ctx, ToolCreateNote, err), nil
	}
	return jsonResult(n)
}

func (s *Server) generateTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := req.GetString("note_id", ""); id != "" {
		n, err := s.notes.ApplyGeneratedTags(ctx, id)
		if err != nil {
			return s.toolError(ctx, ToolGenerateTags, err), nil
		}
		return jsonResult(n)
	}
	tags, err := s.notes.GenerateTags(ctx, req.GetString("content", ""))
	if err != nil {
		return s.toolError(ctx, ToolGenerateTags, err), nil
	}
	return jsonResult(map[string][]string{"tags": tags})
}

func (s *Server) summarizeNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.notes.Summarize(ctx, req.GetStringSlice("ids", nil))
	if err != nil {
		return s.toolError(ctx, ToolSummarizeNotes, err), nil
	}
	return mcp.NewToolResultText(summary), nil
}

// toolError reports err to the model as a failed tool call. AppError
// messages are already written for users; anything else is logged and
// hidden.
func (s *Server) toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	appErr := errors.From(err)
	if appErr.HTTPStatus >= 500 {
		s.log.WithContext(ctx).Warn("Tool call failed", logger.Fields("tool", tool, "code", string(appErr.Code), "error", err.Error()))
	}
	return mcp.NewToolResultError(string(appErr.Code) + ": " + appErr.Message)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

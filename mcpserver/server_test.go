package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kbukum/voicenotes/llm"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/note"
)

type fakeLLM struct{}

func (fakeLLM) Name() string { return "fake" }

func (f fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f.CompleteStructured(ctx, req, nil)
}

func (fakeLLM) CompleteStructured(_ context.Context, req llm.CompletionRequest, _ map[string]any) (*llm.CompletionResponse, error) {
	if strings.HasPrefix(req.Messages[len(req.Messages)-1].Content, "Summarize") {
		return &llm.CompletionResponse{Content: `{"summary":"all good"}`}, nil
	}
	return &llm.CompletionResponse{Content: `{"tags":["errand"]}`}, nil
}

func newTestServer(t *testing.T, withLLM bool) *Server {
	t.Helper()
	opts := []note.Option{note.WithLogger(logger.Nop())}
	if withLLM {
		opts = append(opts, note.WithLLM(fakeLLM{}))
	}
	svc := note.NewService(note.NewMemoryRepository(note.WithSeed()), opts...)
	return New(svc, "voicenotes", "test", logger.Nop())
}

func call(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	for _, tool := range s.Tools() {
		if tool.Tool.Name != name {
			continue
		}
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args
		res, err := tool.Handler(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return res
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %+v", res.Content)
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return tc.Text
}

func TestNoteTools(t *testing.T) {
	s := newTestServer(t, true)

	var notes []note.Note
	if err := json.Unmarshal([]byte(text(t, call(t, s, ToolListNotes, nil))), &notes); err != nil {
		t.Fatal(err)
	}
	if len(notes) != 3 {
		t.Fatalf("notes = %d", len(notes))
	}

	res := call(t, s, ToolListNotes, map[string]any{"query": "grocery"})
	if !strings.Contains(text(t, res), "Grocery List") || strings.Contains(text(t, res), "Meeting Notes") {
		t.Errorf("filtered list = %s", text(t, res))
	}

	res = call(t, s, ToolCreateNote, map[string]any{
		"title": "Call plumber", "content": "kitchen sink", "tags": []any{"home", "home"},
	})
	if res.IsError {
		t.Fatalf("create: %s", text(t, res))
	}
	var created note.Note
	if err := json.Unmarshal([]byte(text(t, res)), &created); err != nil {
		t.Fatal(err)
	}
	if created.Title != "Call plumber" || len(created.Tags) != 1 {
		t.Errorf("created = %+v", created)
	}

	res = call(t, s, ToolGetNote, map[string]any{"id": created.ID})
	if res.IsError || !strings.Contains(text(t, res), "kitchen sink") {
		t.Errorf("get = %s", text(t, res))
	}

	res = call(t, s, ToolGenerateTags, map[string]any{"note_id": created.ID})
	if res.IsError || !strings.Contains(text(t, res), "errand") {
		t.Errorf("generate_tags(note_id) = %s", text(t, res))
	}
	res = call(t, s, ToolGenerateTags, map[string]any{"content": "buy stamps"})
	if text(t, res) != "{\n  \"tags\": [\n    \"errand\"\n  ]\n}" {
		t.Errorf("generate_tags(content) = %s", text(t, res))
	}

	res = call(t, s, ToolSummarizeNotes, map[string]any{"ids": []any{created.ID}})
	if res.IsError || text(t, res) != "all good" {
		t.Errorf("summarize = %s", text(t, res))
	}
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t, false)
	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"missing id", ToolGetNote, nil, "id"},
		{"unknown note", ToolGetNote, map[string]any{"id": "nope"}, "NOTE_NOT_FOUND"},
		{"blank title", ToolCreateNote, map[string]any{"title": " "}, "Title is required."},
		{"empty content", ToolGenerateTags, map[string]any{"content": ""}, "EMPTY_CONTENT"},
		{"no model", ToolSummarizeNotes, nil, "SUMMARY_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, s, tt.tool, tt.args)
			if !res.IsError {
				t.Fatalf("expected tool error, got %s", text(t, res))
			}
			if got := text(t, res); !strings.Contains(got, tt.want) {
				t.Errorf("error = %q, want it to mention %q", got, tt.want)
			}
		})
	}
}

func TestServeStdio(t *testing.T) {
	s := newTestServer(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- s.ServeStdio(ctx, inR, outW) }()

	lines := bufio.NewScanner(outR)
	roundTrip := func(id int, method, params string) map[string]any {
		t.Helper()
		msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":%q,"params":%s}`+"\n", id, method, params)
		if _, err := io.WriteString(inW, msg); err != nil {
			t.Fatal(err)
		}
		if !lines.Scan() {
			t.Fatalf("no response to %s: %v", method, lines.Err())
		}
		var resp map[string]any
		if err := json.Unmarshal(lines.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s: %v", lines.Text(), err)
		}
		return resp
	}

	initResp := roundTrip(1, "initialize",
		`{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}`)
	if _, ok := initResp["result"]; !ok {
		t.Fatalf("initialize = %v", initResp)
	}
	_, _ = io.WriteString(inW, `{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n")

	list := roundTrip(2, "tools/list", `{}`)
	result, _ := list["result"].(map[string]any)
	tools, _ := result["tools"].([]any)
	if len(tools) != 5 {
		t.Errorf("tools = %v", list)
	}

	cancel()
	_ = inW.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeStdio: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ServeStdio did not return")
	}
}

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/voicenotes/llm"
)

func TestCompleteStructuredSendsSchema(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(chatResponse{
			Model:           "llama3.2",
			Message:         chatMessage{Role: "assistant", Content: `{"tags":["groceries"]}`},
			Done:            true,
			PromptEvalCount: 7,
			EvalCount:       3,
		})
	}))
	defer srv.Close()

	p, err := New(llm.Config{BaseURL: srv.URL, Temperature: 0.1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req := llm.UserPrompt("Tags:")
	req.SystemPrompt = "sys"
	resp, err := p.CompleteStructured(context.Background(), req, map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("CompleteStructured: %v", err)
	}
	if resp.Content != `{"tags":["groceries"]}` || resp.Usage.TotalTokens != 10 {
		t.Errorf("resp = %+v", resp)
	}

	if got.Model != defaultModel || got.Stream {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != llm.RoleSystem {
		t.Errorf("messages = %+v", got.Messages)
	}
	format, ok := got.Format.(map[string]any)
	if !ok || format["type"] != "object" {
		t.Errorf("format = %v", got.Format)
	}
	if got.Options == nil || got.Options.Temperature != 0.1 {
		t.Errorf("options = %+v", got.Options)
	}
}

func TestJSONModeWithoutSchema(t *testing.T) {
	p, _ := New(llm.Config{})
	req := p.(*Provider).buildChatRequest(llm.UserPrompt("x"), "json")
	if req.Format != "json" {
		t.Errorf("format = %v", req.Format)
	}
	if req.Options != nil {
		t.Errorf("options = %+v, want nil", req.Options)
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p, _ := New(llm.Config{BaseURL: srv.URL})
	if _, err := p.Complete(context.Background(), llm.UserPrompt("x")); err == nil {
		t.Fatal("expected error")
	}
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p, _ := New(llm.Config{BaseURL: srv.URL})
	if !p.(*Provider).Available(context.Background()) {
		t.Error("expected available")
	}
	srv.Close()
	if p.(*Provider).Available(context.Background()) {
		t.Error("expected unavailable after shutdown")
	}
}

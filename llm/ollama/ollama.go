// Package ollama is the llm provider for a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kbukum/voicenotes/llm"
)

// ProviderName is the registered provider name.
const ProviderName = "ollama"

const (
	defaultURL   = "http://localhost:11434"
	defaultModel = "llama3.2"
)

func init() { llm.Register(ProviderName, New) }

// Provider implements llm.Provider with Ollama's /api/chat endpoint.
type Provider struct {
	cfg    llm.Config
	client *http.Client
}

var _ llm.Provider = (*Provider)(nil)

func New(cfg llm.Config) (llm.Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (p *Provider) Name() string { return ProviderName }

// Available reports whether the server answers /api/tags.
func (p *Provider) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/api/tags", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.chat(ctx, p.buildChatRequest(req, nil))
	if err != nil {
		return nil, fmt.Errorf("ollama complete: %w", err)
	}
	return resp, nil
}

// CompleteStructured passes schema as Ollama's format constraint, or plain
// JSON mode when schema is nil.
func (p *Provider) CompleteStructured(ctx context.Context, req llm.CompletionRequest, schema map[string]any) (*llm.CompletionResponse, error) {
	var format any = "json"
	if schema != nil {
		format = schema
	}
	resp, err := p.chat(ctx, p.buildChatRequest(req, format))
	if err != nil {
		return nil, fmt.Errorf("ollama complete structured: %w", err)
	}
	return resp, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   any           `json:"format,omitempty"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

func (p *Provider) buildChatRequest(req llm.CompletionRequest, format any) chatRequest {
	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	msgs := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: llm.RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}

	opts := chatOptions{Temperature: p.cfg.Temperature, NumPredict: p.cfg.MaxTokens}
	if req.Temperature != 0 {
		opts.Temperature = req.Temperature
	}
	if req.MaxTokens != 0 {
		opts.NumPredict = req.MaxTokens
	}
	out := chatRequest{Model: model, Messages: msgs, Format: format}
	if opts != (chatOptions{}) {
		out.Options = &opts
	}
	return out
}

func (p *Provider) chat(ctx context.Context, req chatRequest) (*llm.CompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close() //nolint:errcheck // read-only body

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &llm.CompletionResponse{
		Content: resp.Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

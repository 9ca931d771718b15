// Package gemini is the Google Gemini llm provider.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kbukum/voicenotes/llm"
)

// ProviderName is the registered provider name.
const ProviderName = "gemini"

const defaultModel = "gemini-2.5-flash"

func init() { llm.Register(ProviderName, New) }

// Provider calls the Gemini API through the genai SDK.
type Provider struct {
	client *genai.Client
	cfg    llm.Config
}

var _ llm.Provider = (*Provider)(nil)

// New creates a Gemini provider. An empty API key falls back to the SDK's
// environment lookup (GEMINI_API_KEY / GOOGLE_API_KEY).
func New(cfg llm.Config) (llm.Provider, error) {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	clientCfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		clientCfg.APIKey = key
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		clientCfg.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{client: client, cfg: cfg}, nil
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model, contents, config := p.build(req)
	return p.generate(ctx, model, contents, config)
}

func (p *Provider) CompleteStructured(ctx context.Context, req llm.CompletionRequest, schema map[string]any) (*llm.CompletionResponse, error) {
	model, contents, config := p.build(req)
	config.ResponseMIMEType = "application/json"
	if schema != nil {
		config.ResponseJsonSchema = schema
	}
	return p.generate(ctx, model, contents, config)
}

func (p *Provider) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*llm.CompletionResponse, error) {
	response, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	text := strings.TrimSpace(response.Text())
	if text == "" {
		return nil, errors.New("gemini: response output is empty")
	}
	out := &llm.CompletionResponse{Content: text, Model: model}
	if usage := response.UsageMetadata; usage != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

// build maps a request to genai contents. System prompts and system
// messages become the system instruction.
func (p *Provider) build(req llm.CompletionRequest) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}

	var system []string
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		system = append(system, s)
	}
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	temperature := p.cfg.Temperature
	if req.Temperature != 0 {
		temperature = req.Temperature
	}
	if temperature != 0 {
		t := float32(temperature)
		config.Temperature = &t
	}
	maxTokens := p.cfg.MaxTokens
	if req.MaxTokens != 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	return model, contents, config
}

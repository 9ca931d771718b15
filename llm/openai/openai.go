// Package openai is the OpenAI llm provider, built on the Responses API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/kbukum/voicenotes/llm"
)

// ProviderName is the registered provider name.
const ProviderName = "openai"

const defaultModel = "gpt-4o-mini"

func init() { llm.Register(ProviderName, New) }

// Provider calls the OpenAI Responses API.
type Provider struct {
	client openai.Client
	cfg    llm.Config
}

var _ llm.Provider = (*Provider)(nil)

// New creates an OpenAI provider. An empty API key falls back to
// OPENAI_API_KEY.
func New(cfg llm.Config) (llm.Provider, error) {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	opts := []option.RequestOption{option.WithMaxRetries(1)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Provider{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return p.run(ctx, p.params(req))
}

func (p *Provider) CompleteStructured(ctx context.Context, req llm.CompletionRequest, schema map[string]any) (*llm.CompletionResponse, error) {
	params := p.params(req)
	if schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   "structured_output",
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}
	return p.run(ctx, params)
}

func (p *Provider) run(ctx context.Context, params responses.ResponseNewParams) (*llm.CompletionResponse, error) {
	response, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: create response: %w", err)
	}
	text := strings.TrimSpace(response.OutputText())
	if text == "" {
		return nil, errors.New("openai: response output is empty")
	}
	return &llm.CompletionResponse{
		Content: text,
		Model:   string(response.Model),
		Usage: llm.Usage{
			PromptTokens:     int(response.Usage.InputTokens),
			CompletionTokens: int(response.Usage.OutputTokens),
			TotalTokens:      int(response.Usage.TotalTokens),
		},
	}, nil
}

func (p *Provider) params(req llm.CompletionRequest) responses.ResponseNewParams {
	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}

	items := make(responses.ResponseInputParam, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		items = append(items, responses.ResponseInputItemParamOfMessage(req.SystemPrompt, responses.EasyInputMessageRoleSystem))
	}
	for _, m := range req.Messages {
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, role(m.Role)))
	}

	params := responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
		Model: shared.ResponsesModel(model),
	}
	temperature := p.cfg.Temperature
	if req.Temperature != 0 {
		temperature = req.Temperature
	}
	if temperature != 0 {
		params.Temperature = openai.Float(temperature)
	}
	maxTokens := p.cfg.MaxTokens
	if req.MaxTokens != 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(maxTokens))
	}
	return params
}

func role(r string) responses.EasyInputMessageRole {
	switch r {
	case llm.RoleSystem:
		return responses.EasyInputMessageRoleSystem
	case llm.RoleAssistant:
		return responses.EasyInputMessageRoleAssistant
	default:
		return responses.EasyInputMessageRoleUser
	}
}

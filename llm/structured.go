package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a strict, inlined JSON schema for T.
func SchemaFor[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var value T
	schema := reflector.Reflect(value)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("llm: unmarshal schema: %w", err)
	}
	// Providers reject the draft marker and the reflected id.
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}

// Generate sends req expecting JSON that matches T and decodes the answer.
func Generate[T any](ctx context.Context, p Provider, req CompletionRequest) (T, *CompletionResponse, error) {
	var out T
	schema, err := SchemaFor[T]()
	if err != nil {
		return out, nil, err
	}
	resp, err := p.CompleteStructured(ctx, req, schema)
	if err != nil {
		return out, nil, err
	}
	content := extractJSON(resp.Content)
	if content == "" {
		return out, resp, fmt.Errorf("llm: %s returned an empty response", p.Name())
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return out, resp, fmt.Errorf("llm: unmarshal structured response: %w", err)
	}
	return out, resp, nil
}

// extractJSON pulls a JSON object out of output that may be wrapped in
// markdown fences or surrounding prose.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		if _, body, found := strings.Cut(rest, "\n"); found {
			s = body
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

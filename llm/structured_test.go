package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type tagsOutput struct {
	Tags []string `json:"tags" jsonschema:"description=Relevant tags"`
}

type scriptedProvider struct {
	content string
	err     error
	schema  map[string]any
	req     CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.req = req
	return &CompletionResponse{Content: p.content}, p.err
}

func (p *scriptedProvider) CompleteStructured(_ context.Context, req CompletionRequest, schema map[string]any) (*CompletionResponse, error) {
	p.req = req
	p.schema = schema
	if p.err != nil {
		return nil, p.err
	}
	return &CompletionResponse{Content: p.content, Model: "m"}, nil
}

func TestSchemaFor(t *testing.T) {
	schema, err := SchemaFor[tagsOutput]()
	if err != nil {
		t.Fatalf("SchemaFor: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("type = %v", schema["type"])
	}
	if schema["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v, want false", schema["additionalProperties"])
	}
	if _, ok := schema["$schema"]; ok {
		t.Error("$schema should be stripped")
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties = %T", schema["properties"])
	}
	tags, ok := props["tags"].(map[string]any)
	if !ok || tags["type"] != "array" {
		t.Errorf("tags property = %v", props["tags"])
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{"plain json", `{"tags":["work","meeting"]}`, []string{"work", "meeting"}, false},
		{"fenced", "```json\n{\"tags\":[\"a\"]}\n```", []string{"a"}, false},
		{"prose around", `Sure! {"tags":["x"]} Hope that helps.`, []string{"x"}, false},
		{"empty", "  ", nil, true},
		{"not json", "tags: a, b", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{content: tt.content}
			out, _, err := Generate[tagsOutput](context.Background(), p, UserPrompt("note"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if strings.Join(out.Tags, ",") != strings.Join(tt.want, ",") {
				t.Errorf("tags = %v, want %v", out.Tags, tt.want)
			}
			if p.schema == nil {
				t.Error("schema not passed to provider")
			}
			if p.req.Messages[0].Role != RoleUser || p.req.Messages[0].Content != "note" {
				t.Errorf("request = %+v", p.req)
			}
		})
	}
}

func TestGenerateProviderError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := Generate[tagsOutput](context.Background(), &scriptedProvider{err: boom}, UserPrompt("x"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestRegistry(t *testing.T) {
	Register("scripted-test", func(cfg Config) (Provider, error) {
		return &scriptedProvider{content: cfg.Model}, nil
	})
	p, err := New(Config{Provider: "scripted-test", Model: "m1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "scripted" {
		t.Errorf("name = %q", p.Name())
	}
	if _, err := New(Config{Provider: "nope"}); err == nil {
		t.Error("expected unknown provider error")
	}
	if _, err := New(Config{Provider: "scripted-test", Temperature: 5}); err == nil {
		t.Error("expected validation error")
	}

	found := false
	for _, name := range Providers() {
		if name == "scripted-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("Providers() = %v", Providers())
	}
}

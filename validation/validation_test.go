package validation

import (
	"regexp"
	"testing"

	"github.com/kbukum/voicenotes/errors"
)

type noteInput struct {
	Title   string   `json:"title" validate:"notblank"`
	Content string   `json:"content"`
	Tags    []string `json:"tags" validate:"max=3"`
}

func TestValidateStructRequiredTitle(t *testing.T) {
	err := Validate(noteInput{Title: "  "})
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("code = %s", appErr.Code)
	}
	if appErr.Message != "Title is required." {
		t.Errorf("message = %q", appErr.Message)
	}
	fields, _ := appErr.Details["fields"].([]FieldError)
	if len(fields) != 1 || fields[0].Field != "title" {
		t.Errorf("fields = %v", appErr.Details["fields"])
	}
}

func TestValidateStructOK(t *testing.T) {
	if err := Validate(noteInput{Title: "Groceries", Tags: []string{"a"}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStructMaxItems(t *testing.T) {
	err := Validate(noteInput{Title: "t", Tags: []string{"a", "b", "c", "d"}})
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Message != "Tags must have at most 3 items." {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestFluentValidator(t *testing.T) {
	surface := regexp.MustCompile(`^[a-z0-9-]+$`)
	tests := []struct {
		name    string
		run     func() *Validator
		wantErr bool
	}{
		{"required ok", func() *Validator { return New().Required("surface", "note-1") }, false},
		{"required blank", func() *Validator { return New().Required("surface", "   ") }, true},
		{"pattern ok", func() *Validator { return New().Pattern("surface", "note-1", surface) }, false},
		{"pattern bad", func() *Validator { return New().Pattern("surface", "Note 1", surface) }, true},
		{"max length", func() *Validator { return New().MaxLength("surface", "abcdef", 3) }, true},
		{"one of", func() *Validator { return New().OneOf("provider", "azure", "gemini", "openai") }, true},
		{"custom", func() *Validator { return New().Custom(false, "ids", "must not repeat") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run().Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

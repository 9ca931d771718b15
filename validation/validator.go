// Package validation validates request payloads and reports failures as
// AppErrors carrying per-field details.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kbukum/voicenotes/errors"
)

// FieldError is a validation failure for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects field errors fluently:
//
//	err := validation.New().Required("surface", id).MaxLength("surface", id, 64).Validate()
type Validator struct {
	errors []FieldError
}

func New() *Validator {
	return &Validator{}
}

// AddError records a failure for field.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

func (v *Validator) Errors() []FieldError { return v.errors }

// Validate returns nil or an AppError listing every recorded failure.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}
	return toAppError(v.errors)
}

func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	if len(value) > maxLen {
		v.AddError(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return v
}

// Pattern checks a non-empty value against a regular expression.
func (v *Validator) Pattern(field, value string, re *regexp.Regexp) *Validator {
	if value != "" && !re.MatchString(value) {
		v.AddError(field, "does not match required format")
	}
	return v
}

func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, "must be one of: "+strings.Join(allowed, ", "))
	return v
}

func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

func toAppError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = sentence(f)
	}
	appErr := errors.Validation(strings.Join(messages, " "))
	appErr.WithDetail("fields", fields)
	return appErr
}

// sentence renders {title, is required} as "Title is required."
func sentence(f FieldError) string {
	name := strings.ReplaceAll(f.Field, "_", " ")
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return name + " " + f.Message + "."
}

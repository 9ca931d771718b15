// Package note holds the note model, its repositories and the service that
// adds validation, AI tagging, summaries, export and change events on top.
package note

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Note is one stored note. Tags form an unordered set.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input carries the caller-editable fields of a note.
type Input struct {
	Title   string   `json:"title" validate:"notblank,max=200"`
	Content string   `json:"content" validate:"max=100000"`
	Tags    []string `json:"tags" validate:"max=50,dive,max=64"`
}

// Query filters List.
type Query struct {
	// Search matches title, content or any tag, case-insensitively.
	Search string
}

// Repository persists notes. Get and Update report a missing id with
// errors.NoteNotFound; Delete reports it by returning false.
type Repository interface {
	List(ctx context.Context, q Query) ([]Note, error)
	Get(ctx context.Context, id string) (*Note, error)
	Create(ctx context.Context, in Input) (*Note, error)
	Update(ctx context.Context, id string, in Input) (*Note, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Matches reports whether the note satisfies q.
func (n *Note) Matches(q Query) bool {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), needle) || strings.Contains(strings.ToLower(n.Content), needle) {
		return true
	}
	return slices.ContainsFunc(n.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), needle)
	})
}

// Clone returns a deep copy.
func (n *Note) Clone() *Note {
	c := *n
	c.Tags = slices.Clone(n.Tags)
	return &c
}

// NormalizeTags trims tags, drops empty ones and removes duplicates while
// keeping the first occurrence.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// MergeTags is the set union of existing and generated, existing first.
func MergeTags(existing, generated []string) []string {
	return NormalizeTags(append(slices.Clone(existing), generated...))
}

// SortByUpdatedDesc orders notes newest first.
func SortByUpdatedDesc(notes []Note) {
	slices.SortStableFunc(notes, func(a, b Note) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}

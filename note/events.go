package note

import (
	"context"
	"time"
)

// EventType names a note change.
type EventType string

const (
	EventCreated EventType = "note.created"
	EventUpdated EventType = "note.updated"
	EventDeleted EventType = "note.deleted"
)

// ChangeEvent is published after a successful write. Note is nil for deletes.
type ChangeEvent struct {
	Type       EventType `json:"type"`
	NoteID     string    `json:"noteId"`
	Note       *Note     `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers change events. Delivery failures never fail the write.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev ChangeEvent) error

func (f PublisherFunc) Publish(ctx context.Context, ev ChangeEvent) error { return f(ctx, ev) }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ChangeEvent) error { return nil }

package kafka

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/voicenotes/note"
)

// Event is the envelope written for every note change.
type Event struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Source    string           `json:"source"`
	Subject   string           `json:"subject"`
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
	Data      note.ChangeEvent `json:"data"`
}

// NotePublisher implements note.Publisher. Messages are keyed by note id so
// every change to one note lands on the same partition in order.
type NotePublisher struct {
	producer *Producer
	source   string
	newID    func() string
}

var _ note.Publisher = (*NotePublisher)(nil)

func NewNotePublisher(p *Producer, source string) *NotePublisher {
	return &NotePublisher{producer: p, source: source, newID: uuid.NewString}
}

func (p *NotePublisher) Publish(ctx context.Context, ev note.ChangeEvent) error {
	env := Event{
		ID:        p.newID(),
		Type:      string(ev.Type),
		Source:    p.source,
		Subject:   ev.NoteID,
		Version:   "1.0",
		Timestamp: ev.OccurredAt,
		Data:      ev,
	}
	return p.producer.SendJSON(ctx, ev.NoteID, env,
		kafkago.Header{Key: "event-id", Value: []byte(env.ID)},
		kafkago.Header{Key: "event-type", Value: []byte(env.Type)},
	)
}

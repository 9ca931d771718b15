package sse

import (
	"context"

	"github.com/kbukum/voicenotes/dictation"
	"github.com/kbukum/voicenotes/observability"
)

// DictationTopic is the topic carrying events for one dictation surface.
func DictationTopic(surface string) string { return "dictation:" + surface }

// DictationSink publishes dictation output to each surface's topic and
// counts state changes and errors.
type DictationSink struct {
	hub     *Hub
	metrics *observability.Metrics
}

var _ dictation.Sink = (*DictationSink)(nil)

func NewDictationSink(hub *Hub) *DictationSink {
	return &DictationSink{hub: hub, metrics: observability.DefaultMetrics()}
}

func (s *DictationSink) Transcript(surface, text string) {
	s.hub.Publish(DictationTopic(surface), Event{
		Type: EventTypeTranscript,
		Data: TranscriptEvent{Surface: surface, Text: text},
	})
}

func (s *DictationSink) State(surface string, state dictation.State) {
	s.metrics.RecordDictationState(context.Background(), string(state))
	s.hub.Publish(DictationTopic(surface), Event{
		Type: EventTypeState,
		Data: StateEvent{Surface: surface, State: string(state)},
	})
}

func (s *DictationSink) Error(surface string, kind dictation.ErrorKind, message string) {
	s.metrics.RecordDictationError(context.Background(), string(kind))
	s.hub.Publish(DictationTopic(surface), Event{
		Type: EventTypeDictationError,
		Data: DictationErrorEvent{Surface: surface, Kind: string(kind), Message: message},
	})
}

func (s *DictationSink) Notify(surface, title, description string) {
	s.hub.Publish(DictationTopic(surface), Event{
		Type: EventTypeNotification,
		Data: NotificationEvent{Surface: surface, Title: title, Description: description},
	})
}

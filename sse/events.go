package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event names written on the "event:" line of each frame.
const (
	EventTypeConnected      = "connected"
	EventTypeTranscript     = "transcript"
	EventTypeState          = "state"
	EventTypeDictationError = "dictation_error"
	EventTypeNotification   = "notification"
)

// Event is a named SSE event with a JSON payload.
type Event struct {
	Type string
	Data any
}

// Encode renders the event as one SSE frame.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	var buf bytes.Buffer
	if e.Type != "" {
		fmt.Fprintf(&buf, "event: %s\n", e.Type)
	}
	fmt.Fprintf(&buf, "data: %s\n\n", data)
	return buf.Bytes(), nil
}

// ConnectedEvent is the first event every client receives.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

// TranscriptEvent carries the full display transcript of a surface.
type TranscriptEvent struct {
	Surface string `json:"surface"`
	Text    string `json:"text"`
}

// StateEvent reports a dictation state transition.
type StateEvent struct {
	Surface string `json:"surface"`
	State   string `json:"state"`
}

// DictationErrorEvent reports a recognizer failure.
type DictationErrorEvent struct {
	Surface string `json:"surface"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NotificationEvent is a user-facing toast.
type NotificationEvent struct {
	Surface     string `json:"surface"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

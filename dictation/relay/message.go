package relay

import (
	"fmt"

	"github.com/kbukum/voicenotes/dictation"
)

// Message types accepted from clients.
const (
	TypeResult = "result"
	TypeError  = "error"
	TypeEnd    = "end"
)

// Message is the JSON body a client posts for each recognizer callback.
//
//	{"type":"result","result_index":1,"results":[{"alternatives":["hi"],"final":true}]}
//	{"type":"error","error":"not-allowed"}
//	{"type":"end"}
type Message struct {
	Type        string             `json:"type" binding:"required,oneof=result error end"`
	ResultIndex int                `json:"result_index" binding:"gte=0"`
	Results     []dictation.Result `json:"results"`
	Error       string             `json:"error"`
	Message     string             `json:"message"`
}

// Event converts the message to a recognizer event.
func (m Message) Event() (dictation.Event, error) {
	switch m.Type {
	case TypeResult:
		if m.ResultIndex > len(m.Results) {
			return dictation.Event{}, fmt.Errorf("result_index %d beyond %d results", m.ResultIndex, len(m.Results))
		}
		return dictation.ResultEvent(m.ResultIndex, m.Results...), nil
	case TypeError:
		if m.Error == "" {
			return dictation.Event{}, fmt.Errorf("error message without code")
		}
		return dictation.ErrorEvent(m.Error, m.Message), nil
	case TypeEnd:
		return dictation.EndEvent(), nil
	default:
		return dictation.Event{}, fmt.Errorf("unknown message type %q", m.Type)
	}
}

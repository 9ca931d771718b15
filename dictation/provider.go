package dictation

import (
	"context"
	"errors"
)

// Config is passed to a Capability when a session constructs its recognizer.
type Config struct {
	// Surface identifies the editing surface that owns the session.
	Surface        string `json:"surface" mapstructure:"-"`
	Continuous     bool   `json:"continuous" mapstructure:"continuous"`
	InterimResults bool   `json:"interim_results" mapstructure:"interim_results"`
	Locale         string `json:"locale" mapstructure:"locale"`
}

// DefaultConfig is continuous recognition with interim results in en-US.
func DefaultConfig() Config {
	return Config{Continuous: true, InterimResults: true, Locale: "en-US"}
}

// Capability is the injected speech-recognition capability. When Available
// reports false the manager never calls New.
type Capability interface {
	Available() bool
	New(cfg Config) (Recognizer, error)
}

// Recognizer is one provider instance. It is used for exactly one session.
//
// Events must be delivered in emission order and the channel must be closed
// once the recognizer has been released. An EventEnd is expected after Stop
// and after any error.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Event
	Close() error
}

// AudioSink is implemented by recognizers that consume raw audio pushed by
// the caller rather than capturing it themselves.
type AudioSink interface {
	SendAudio(chunk []byte) error
}

// EventSink is implemented by recognizers whose events are produced outside
// the process and pushed in, such as a browser relaying its own recognizer.
type EventSink interface {
	Push(ev Event) error
}

var (
	// ErrPermissionDenied is returned by Recognizer.Start when microphone or
	// service access was refused.
	ErrPermissionDenied = errors.New("dictation: permission denied")
	// ErrAudioNotSupported is returned when audio is pushed to a recognizer
	// that captures its own.
	ErrAudioNotSupported = errors.New("dictation: recognizer does not accept audio")
	// ErrPushNotSupported is returned when events are pushed to a recognizer
	// that produces its own.
	ErrPushNotSupported = errors.New("dictation: recognizer does not accept pushed events")
	// ErrNoSession is returned when audio arrives with no live session.
	ErrNoSession = errors.New("dictation: no active session")
)

// EventKind discriminates recognizer events.
type EventKind int

const (
	EventResult EventKind = iota + 1
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Result is one recognition result. Alternatives are ordered by confidence.
type Result struct {
	Alternatives []string `json:"alternatives"`
	Final        bool     `json:"final"`
}

// Text returns the best alternative.
func (r Result) Text() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0]
}

// Event is emitted by a Recognizer.
//
// For EventResult, Results holds the provider's result list and StartIndex
// the first entry that changed since the previous event.
type Event struct {
	Kind       EventKind
	Results    []Result
	StartIndex int
	Code       string
	Message    string
}

// ResultEvent builds an EventResult.
func ResultEvent(startIndex int, results ...Result) Event {
	return Event{Kind: EventResult, Results: results, StartIndex: startIndex}
}

// Interim and Final build single-result events.
func Interim(text string) Event { return ResultEvent(0, Result{Alternatives: []string{text}}) }
func Final(text string) Event {
	return ResultEvent(0, Result{Alternatives: []string{text}, Final: true})
}

// ErrorEvent builds an EventError with a provider error code.
func ErrorEvent(code, message string) Event {
	return Event{Kind: EventError, Code: code, Message: message}
}

// EndEvent builds an EventEnd.
func EndEvent() Event { return Event{Kind: EventEnd} }

// Provider error codes, as reported by browser speech recognition.
const (
	CodeNotAllowed        = "not-allowed"
	CodeServiceNotAllowed = "service-not-allowed"
	CodeNetwork           = "network"
	CodeNoSpeech          = "no-speech"
	CodeAborted           = "aborted"
	CodeAudioCapture      = "audio-capture"
)

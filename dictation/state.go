// Package dictation drives speech-recognition sessions for note editing
// surfaces. A Manager owns at most one live recognizer, turns its ordered
// result events into a running transcript, and reports errors to the
// caller through settable handlers.
package dictation

// State of a Manager.
type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateStopping State = "stopping"
)

// ErrorKind classifies failures surfaced to the error handler.
type ErrorKind string

const (
	KindUnavailable      ErrorKind = "unavailable"
	KindPermissionDenied ErrorKind = "permission-denied"
	KindProvider         ErrorKind = "provider"
)

// kindForCode maps a provider error code to the kind callers act on.
func kindForCode(code string) ErrorKind {
	switch code {
	case CodeNotAllowed, CodeServiceNotAllowed:
		return KindPermissionDenied
	default:
		return KindProvider
	}
}

type (
	// TranscriptHandler receives the full display transcript on every result.
	TranscriptHandler func(text string)
	// ErrorHandler receives provider failures.
	ErrorHandler func(kind ErrorKind, message string)
	// StateHandler observes state transitions.
	StateHandler func(state State)
)

// Notifier is the user-facing notification sink.
type Notifier interface {
	Notify(title, description string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, description string)

func (f NotifierFunc) Notify(title, description string) { f(title, description) }

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

// notification returns the title and description shown for kind.
func notification(kind ErrorKind, detail string) (string, string) {
	switch kind {
	case KindUnavailable:
		return "Speech recognition unavailable", "Speech recognition is not supported in this environment."
	case KindPermissionDenied:
		return "Microphone access denied", "Allow microphone access and try again."
	default:
		if detail == "" {
			return "Dictation stopped", "Speech recognition failed. Please try again."
		}
		return "Dictation stopped", "Speech recognition failed (" + detail + "). Please try again."
	}
}

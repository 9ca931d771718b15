package dictation

import "strings"

// transcript accumulates one session's recognized text. The final segment
// only grows; the provisional segment is rebuilt from scratch on every
// result event.
type transcript struct {
	final       string
	provisional string
}

func newTranscript(seed string) *transcript {
	return &transcript{final: seed}
}

// apply folds results[start:] into the transcript and returns the display text.
func (t *transcript) apply(results []Result, start int) string {
	if start < 0 {
		start = 0
	}
	var interim strings.Builder
	for i := start; i < len(results); i++ {
		if results[i].Final {
			t.final += results[i].Text()
		} else {
			interim.WriteString(results[i].Text())
		}
	}
	t.provisional = interim.String()
	return t.display()
}

func (t *transcript) display() string {
	return t.final + t.provisional
}

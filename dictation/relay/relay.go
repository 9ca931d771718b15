// Package relay is a dictation capability for clients that run speech
// recognition themselves, such as a browser, and push the resulting events
// to the server over HTTP.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/voicenotes/dictation"
)

var (
	// ErrClosed is returned when events are pushed to a released recognizer.
	ErrClosed = errors.New("relay: recognizer closed")
	// ErrBufferFull is returned when the manager has not drained earlier
	// events yet. The event was not accepted and may be pushed again.
	ErrBufferFull = errors.New("relay: event buffer full")
)

// endRetryInterval spaces fallback end attempts while the buffer is full.
const endRetryInterval = 50 * time.Millisecond

// Config controls the relay capability.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// StopTimeout bounds how long a stop waits for the client's end event
	// before the recognizer ends on its own.
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
	Buffer      int           `mapstructure:"buffer"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.StopTimeout == 0 {
		c.StopTimeout = 3 * time.Second
	}
	if c.Buffer <= 0 {
		c.Buffer = 64
	}
}

// Capability creates relay recognizers.
type Capability struct {
	cfg Config
}

var _ dictation.Capability = (*Capability)(nil)

func New(cfg Config) *Capability {
	cfg.ApplyDefaults()
	return &Capability{cfg: cfg}
}

func (c *Capability) Available() bool { return c.cfg.Enabled }

func (c *Capability) New(dictation.Config) (dictation.Recognizer, error) {
	if !c.cfg.Enabled {
		return nil, errors.New("relay: disabled")
	}
	return &recognizer{
		events:      make(chan dictation.Event, c.cfg.Buffer),
		stopTimeout: c.cfg.StopTimeout,
	}, nil
}

type recognizer struct {
	stopTimeout time.Duration

	mu        sync.Mutex
	events    chan dictation.Event
	started   bool
	ended     bool
	closed    bool
	stopTimer *time.Timer
}

var (
	_ dictation.Recognizer = (*recognizer)(nil)
	_ dictation.EventSink  = (*recognizer)(nil)
)

func (r *recognizer) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.started = true
	return nil
}

// Stop arms the fallback end. The client is expected to observe the
// stopping state and send its own end event first.
func (r *recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.ended || r.stopTimer != nil {
		return nil
	}
	r.stopTimer = time.AfterFunc(r.stopTimeout, r.fallbackEnd)
	return nil
}

// fallbackEnd ends the session for a client that never sent its end event.
// It keeps trying until the end is delivered or the recognizer is closed.
func (r *recognizer) fallbackEnd() {
	if err := r.Push(dictation.EndEvent()); !errors.Is(err, ErrBufferFull) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed && !r.ended {
		r.stopTimer = time.AfterFunc(endRetryInterval, r.fallbackEnd)
	}
}

func (r *recognizer) Events() <-chan dictation.Event { return r.events }

// Push delivers one client event. Events after an error or end are dropped.
func (r *recognizer) Push(ev dictation.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if !r.started {
		return fmt.Errorf("relay: %s event before start", ev.Kind)
	}
	if r.ended {
		return nil
	}
	select {
	case r.events <- ev:
	default:
		return ErrBufferFull
	}
	if ev.Kind == dictation.EventError || ev.Kind == dictation.EventEnd {
		r.ended = true
	}
	return nil
}

func (r *recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.stopTimer != nil {
		r.stopTimer.Stop()
	}
	close(r.events)
	return nil
}

package dictation

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeCapability hands out fakeRecognizers and counts constructions.
type fakeCapability struct {
	available bool
	startErr  error
	stopErr   error

	mu      sync.Mutex
	created []*fakeRecognizer
	configs []Config
}

func newFakeCapability() *fakeCapability {
	return &fakeCapability{available: true}
}

func (c *fakeCapability) Available() bool { return c.available }

func (c *fakeCapability) New(cfg Config) (Recognizer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &fakeRecognizer{events: make(chan Event, 32), startErr: c.startErr, stopErr: c.stopErr, endOnStop: c.stopErr == nil}
	c.created = append(c.created, r)
	c.configs = append(c.configs, cfg)
	return r, nil
}

func (c *fakeCapability) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.created)
}

func (c *fakeCapability) recognizer(t *testing.T, i int) *fakeRecognizer {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.created) {
		t.Fatalf("recognizer %d not created (have %d)", i, len(c.created))
	}
	return c.created[i]
}

type fakeRecognizer struct {
	events    chan Event
	startErr  error
	stopErr   error
	endOnStop bool

	mu        sync.Mutex
	starts    int
	stops     int
	closes    int
	audio     [][]byte
	closeOnce sync.Once
}

func (r *fakeRecognizer) Start(context.Context) error {
	r.mu.Lock()
	r.starts++
	r.mu.Unlock()
	return r.startErr
}

func (r *fakeRecognizer) Stop() error {
	r.mu.Lock()
	r.stops++
	end := r.endOnStop
	r.mu.Unlock()
	if end {
		r.emit(EndEvent())
	}
	return r.stopErr
}

func (r *fakeRecognizer) Events() <-chan Event { return r.events }

func (r *fakeRecognizer) Close() error {
	r.mu.Lock()
	r.closes++
	r.mu.Unlock()
	r.closeOnce.Do(func() { close(r.events) })
	return nil
}

func (r *fakeRecognizer) SendAudio(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio = append(r.audio, chunk)
	return nil
}

// emit delivers ev unless the recognizer has already been released.
func (r *fakeRecognizer) emit(ev Event) {
	defer func() { _ = recover() }()
	r.events <- ev
}

func (r *fakeRecognizer) stopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

func (r *fakeRecognizer) closeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}

// recorder captures everything a Manager reports.
type recorder struct {
	mu            sync.Mutex
	transcripts   []string
	states        []State
	errs          []ErrorKind
	notifications []string
}

func (r *recorder) attach(m *Manager) {
	m.SetTranscriptHandler(func(text string) {
		r.mu.Lock()
		r.transcripts = append(r.transcripts, text)
		r.mu.Unlock()
	})
	m.SetStateHandler(func(s State) {
		r.mu.Lock()
		r.states = append(r.states, s)
		r.mu.Unlock()
	})
	m.SetErrorHandler(func(kind ErrorKind, _ string) {
		r.mu.Lock()
		r.errs = append(r.errs, kind)
		r.mu.Unlock()
	})
}

func (r *recorder) Notify(title, _ string) {
	r.mu.Lock()
	r.notifications = append(r.notifications, title)
	r.mu.Unlock()
}

func (r *recorder) snapshot() (transcripts []string, notifications []string, errs []ErrorKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transcripts...),
		append([]string(nil), r.notifications...),
		append([]ErrorKind(nil), r.errs...)
}

func newTestManager(capability Capability) (*Manager, *recorder) {
	rec := &recorder{}
	m := NewManager(capability, WithNotifier(rec))
	rec.attach(m)
	return m, rec
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

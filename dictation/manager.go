package dictation

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/kbukum/voicenotes/errors"
	"github.com/kbukum/voicenotes/logger"
)

// Manager runs at most one recognition session at a time for one editing
// surface.
//
// Each session gets a single goroutine that reads its recognizer's events
// in order. Events are applied only while their session is the manager's
// current one, so a superseded recognizer can never write into a newer
// transcript. Handlers are called outside the manager lock.
type Manager struct {
	capability Capability
	cfg        Config
	notifier   Notifier
	log        *logger.Logger

	mu      sync.Mutex
	state   State
	current *session
	last    string
	closed  bool

	hmu          sync.RWMutex
	onTranscript TranscriptHandler
	onError      ErrorHandler
	onState      StateHandler
}

type session struct {
	rec           Recognizer
	transcript    *transcript
	stopRequested bool
	done          chan struct{}
	releaseOnce   sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sets the user-facing notification sink.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger sets the manager's logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithConfig overrides the recognizer configuration.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// NewManager creates an idle manager over capability.
func NewManager(capability Capability, opts ...Option) *Manager {
	m := &Manager{
		capability: capability,
		cfg:        DefaultConfig(),
		notifier:   nopNotifier{},
		log:        logger.Nop(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithComponent("dictation").WithFields(logger.Fields(logger.FieldSurface, m.cfg.Surface))
	return m
}

// SetTranscriptHandler replaces the transcript handler. The handler in place
// when an event is applied is the one called.
func (m *Manager) SetTranscriptHandler(h TranscriptHandler) {
	m.hmu.Lock()
	m.onTranscript = h
	m.hmu.Unlock()
}

// SetErrorHandler replaces the error handler.
func (m *Manager) SetErrorHandler(h ErrorHandler) {
	m.hmu.Lock()
	m.onError = h
	m.hmu.Unlock()
}

// SetStateHandler replaces the state handler.
func (m *Manager) SetStateHandler(h StateHandler) {
	m.hmu.Lock()
	m.onState = h
	m.hmu.Unlock()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transcript returns the last display transcript.
func (m *Manager) Transcript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Start begins a session seeded with the surface's current content.
//
// It is a no-op while Active. When the capability is unavailable it emits
// one notification and returns an unavailable error without changing state.
// Starting while Stopping abandons the stopping session.
func (m *Manager) Start(ctx context.Context, seed string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.DictationClosed()
	}
	if m.state == StateActive {
		m.mu.Unlock()
		return nil
	}
	if !m.capability.Available() {
		m.mu.Unlock()
		m.log.Warn("Speech recognition unavailable")
		m.notify(KindUnavailable, "")
		return errors.DictationUnavailable()
	}

	previous := m.current
	m.current = nil
	m.state = StateIdle

	rec, err := m.capability.New(m.cfg)
	if err != nil {
		m.mu.Unlock()
		m.abandon(previous)
		return m.failStart(err)
	}

	s := &session{rec: rec, transcript: newTranscript(seed), done: make(chan struct{})}
	if err := rec.Start(ctx); err != nil {
		m.mu.Unlock()
		m.abandon(previous)
		m.release(s)
		return m.failStart(err)
	}
	m.current = s
	m.state = StateActive
	m.last = seed
	m.mu.Unlock()

	m.abandon(previous)
	go m.consume(s)

	m.log.Info("Dictation started", logger.Fields("seed_len", len(seed)))
	m.emitState(StateActive)
	return nil
}

// Stop requests the recognizer to stop. The manager stays Stopping until the
// recognizer reports its end. No-op unless Active.
func (m *Manager) Stop() error {
	m.mu.Lock()
	s := m.current
	if s == nil || m.state != StateActive {
		m.mu.Unlock()
		return nil
	}
	m.state = StateStopping
	s.stopRequested = true
	m.mu.Unlock()

	m.emitState(StateStopping)
	if err := s.rec.Stop(); err != nil {
		m.log.Warn("Recognizer stop failed", logger.Fields("error", err.Error()))
		m.finish(s, &Event{Kind: EventError, Code: CodeAborted, Message: err.Error()})
		// The recognizer may never end on its own now; closing it also ends consume.
		m.release(s)
		return errors.DictationProviderError(err)
	}
	return nil
}

// SendAudio forwards a chunk to the live recognizer when it accepts audio.
func (m *Manager) SendAudio(chunk []byte) error {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}
	sink, ok := s.rec.(AudioSink)
	if !ok {
		return ErrAudioNotSupported
	}
	return sink.SendAudio(chunk)
}

// Push hands an externally produced event to the live recognizer.
func (m *Manager) Push(ev Event) error {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}
	sink, ok := s.rec.(EventSink)
	if !ok {
		return ErrPushNotSupported
	}
	return sink.Push(ev)
}

// Close tears the manager down. A live Active session gets exactly one stop
// request; Close then waits for the recognizer to drain until ctx is done
// and releases it either way. Later Start calls fail.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	s := m.current
	needStop := s != nil && !s.stopRequested
	if s != nil {
		s.stopRequested = true
	}
	m.current = nil
	m.state = StateIdle
	m.mu.Unlock()

	if s == nil {
		return nil
	}
	if needStop {
		if err := s.rec.Stop(); err != nil {
			m.log.Warn("Recognizer stop failed during teardown", logger.Fields("error", err.Error()))
		}
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		m.log.Warn("Recognizer did not end before teardown deadline, releasing")
		m.release(s)
		return ctx.Err()
	}
}

// consume applies one session's events in order until the recognizer ends.
func (m *Manager) consume(s *session) {
	defer close(s.done)
	defer m.release(s)

	for ev := range s.rec.Events() {
		switch ev.Kind {
		case EventResult:
			m.applyResult(s, ev)
		case EventError:
			m.finish(s, &ev)
			return
		case EventEnd:
			m.finish(s, nil)
			return
		}
	}
	m.finish(s, nil)
}

func (m *Manager) applyResult(s *session, ev Event) {
	m.mu.Lock()
	if m.current != s {
		m.mu.Unlock()
		return
	}
	text := s.transcript.apply(ev.Results, ev.StartIndex)
	m.last = text
	m.mu.Unlock()

	m.hmu.RLock()
	h := m.onTranscript
	m.hmu.RUnlock()
	if h != nil {
		h(text)
	}
}

// finish moves the manager to Idle if s is still current. errEv, when set,
// is reported to the error handler and the notifier.
func (m *Manager) finish(s *session, errEv *Event) {
	m.mu.Lock()
	if m.current != s {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.state = StateIdle
	m.mu.Unlock()

	if errEv != nil {
		kind := kindForCode(errEv.Code)
		message := errEv.Message
		if message == "" {
			message = errEv.Code
		}
		m.log.Warn("Dictation ended with error", logger.Fields("kind", string(kind), "code", errEv.Code))
		m.emitError(kind, message)
		m.notify(kind, errEv.Code)
	} else {
		m.log.Info("Dictation ended")
	}
	m.emitState(StateIdle)
}

// failStart reports a recognizer that could not be built or started.
func (m *Manager) failStart(err error) error {
	kind := KindProvider
	appErr := errors.DictationProviderError(err)
	if stderrors.Is(err, ErrPermissionDenied) {
		kind = KindPermissionDenied
		appErr = errors.DictationPermissionDenied(err)
	}
	m.log.Warn("Dictation failed to start", logger.Fields("kind", string(kind), "error", err.Error()))
	m.emitError(kind, err.Error())
	m.notify(kind, "")
	return appErr
}

// abandon releases a session that was superseded by a newer Start.
func (m *Manager) abandon(s *session) {
	if s == nil {
		return
	}
	go m.release(s)
}

func (m *Manager) release(s *session) {
	s.releaseOnce.Do(func() {
		if err := s.rec.Close(); err != nil {
			m.log.Debug("Recognizer close failed", logger.Fields("error", err.Error()))
		}
	})
}

func (m *Manager) notify(kind ErrorKind, detail string) {
	title, description := notification(kind, detail)
	m.notifier.Notify(title, description)
}

func (m *Manager) emitError(kind ErrorKind, message string) {
	m.hmu.RLock()
	h := m.onError
	m.hmu.RUnlock()
	if h != nil {
		h(kind, message)
	}
}

func (m *Manager) emitState(state State) {
	m.hmu.RLock()
	h := m.onState
	m.hmu.RUnlock()
	if h != nil {
		h(state)
	}
}

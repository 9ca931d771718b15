package dictation

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/errors"
	"github.com/kbukum/voicenotes/logger"
)

// Sink receives manager output for every surface.
type Sink interface {
	Transcript(surface, text string)
	State(surface string, state State)
	Error(surface string, kind ErrorKind, message string)
	Notify(surface, title, description string)
}

// SessionsConfig configures the Sessions registry.
type SessionsConfig struct {
	Locale          string        `mapstructure:"locale"`
	TeardownTimeout time.Duration `mapstructure:"teardown_timeout"`
}

// ApplyDefaults fills zero values.
func (c *SessionsConfig) ApplyDefaults() {
	if c.Locale == "" {
		c.Locale = "en-US"
	}
	if c.TeardownTimeout == 0 {
		c.TeardownTimeout = 5 * time.Second
	}
}

// Sessions keeps one Manager per editing surface, creating managers on
// first use. A manager is dropped once it is Idle and no Begin is using it,
// so the registry only holds surfaces with a live or starting session.
type Sessions struct {
	capability Capability
	cfg        SessionsConfig
	sink       Sink
	log        *logger.Logger

	mu       sync.Mutex
	managers map[string]*Manager
	// pins counts Begin calls in flight per manager.
	pins   map[*Manager]int
	closed bool
}

var _ component.Component = (*Sessions)(nil)

// NewSessions creates an empty registry.
func NewSessions(capability Capability, cfg SessionsConfig, sink Sink, log *logger.Logger) *Sessions {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Sessions{
		capability: capability,
		cfg:        cfg,
		sink:       sink,
		log:        log,
		managers:   make(map[string]*Manager),
		pins:       make(map[*Manager]int),
	}
}

func (s *Sessions) Name() string { return "dictation" }

func (s *Sessions) Start(context.Context) error { return nil }

// Stop tears down every surface.
func (s *Sessions) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	managers := s.managers
	s.managers = make(map[string]*Manager)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, m := range managers {
		wg.Add(1)
		go func(m *Manager) {
			defer wg.Done()
			s.closeManager(ctx, m)
		}(m)
	}
	wg.Wait()
	return nil
}

func (s *Sessions) Health(context.Context) component.Health {
	status := component.StatusHealthy
	message := ""
	if !s.capability.Available() {
		status = component.StatusDegraded
		message = "speech recognition unavailable"
	}
	return component.Health{Name: s.Name(), Status: status, Message: message}
}

// Begin starts dictation on surface, seeding it with seed.
func (s *Sessions) Begin(ctx context.Context, surface, seed string) error {
	m, err := s.manager(surface)
	if err != nil {
		return err
	}
	defer s.unpin(surface, m)
	return m.Start(ctx, seed)
}

func (s *Sessions) unpin(surface string, m *Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[m]--
	if s.pins[m] <= 0 {
		delete(s.pins, m)
	}
	s.evictLocked(surface, m)
}

// evict drops surface's manager if it is still m and has nothing to do.
func (s *Sessions) evict(surface string, m *Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(surface, m)
}

func (s *Sessions) evictLocked(surface string, m *Manager) {
	if s.managers[surface] != m || s.pins[m] > 0 || m.State() != StateIdle {
		return
	}
	delete(s.managers, surface)
}

// End requests the recognizer on surface to stop.
func (s *Sessions) End(surface string) error {
	m, ok := s.Lookup(surface)
	if !ok {
		return nil
	}
	return m.Stop()
}

// Teardown disposes of the surface's manager, stopping any live session.
func (s *Sessions) Teardown(ctx context.Context, surface string) error {
	s.mu.Lock()
	m, ok := s.managers[surface]
	delete(s.managers, surface)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.closeManager(ctx, m)
}

// SendAudio forwards an audio chunk to the surface's live recognizer.
func (s *Sessions) SendAudio(surface string, chunk []byte) error {
	m, ok := s.Lookup(surface)
	if !ok {
		return ErrNoSession
	}
	return m.SendAudio(chunk)
}

// Push hands an externally produced event to the surface's live recognizer.
func (s *Sessions) Push(surface string, ev Event) error {
	m, ok := s.Lookup(surface)
	if !ok {
		return ErrNoSession
	}
	return m.Push(ev)
}

// Lookup returns the surface's manager if one exists.
func (s *Sessions) Lookup(surface string) (*Manager, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.managers[surface]
	return m, ok
}

func (s *Sessions) manager(surface string) (*Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.DictationClosed()
	}
	if m, ok := s.managers[surface]; ok {
		s.pins[m]++
		return m, nil
	}

	cfg := DefaultConfig()
	cfg.Surface = surface
	cfg.Locale = s.cfg.Locale
	m := NewManager(s.capability,
		WithConfig(cfg),
		WithLogger(s.log),
		WithNotifier(NotifierFunc(func(title, description string) {
			s.sink.Notify(surface, title, description)
		})),
	)
	m.SetTranscriptHandler(func(text string) { s.sink.Transcript(surface, text) })
	m.SetStateHandler(func(state State) {
		s.sink.State(surface, state)
		if state == StateIdle {
			s.evict(surface, m)
		}
	})
	m.SetErrorHandler(func(kind ErrorKind, message string) { s.sink.Error(surface, kind, message) })
	s.managers[surface] = m
	s.pins[m]++
	return m, nil
}

func (s *Sessions) closeManager(ctx context.Context, m *Manager) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TeardownTimeout)
	defer cancel()
	if err := m.Close(ctx); err != nil {
		s.log.Warn("Dictation teardown timed out", logger.ErrorFields("teardown", err))
		return err
	}
	return nil
}

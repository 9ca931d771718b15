package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/note"
	"github.com/kbukum/voicenotes/security"
)

type fakeWriter struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	msgs   []kafkago.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if len(w.errs) > 0 {
		err := w.errs[0]
		w.errs = w.errs[1:]
		if err != nil {
			return err
		}
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Stats() kafkago.WriterStats { return kafkago.WriterStats{} }

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNotePublisherEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(Config{Enabled: true}, w, logger.Nop())
	pub := NewNotePublisher(p, "voicenotes")
	pub.newID = func() string { return "evt-1" }

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	n := &note.Note{ID: "42", Title: "Plan"}
	if err := pub.Publish(context.Background(), note.ChangeEvent{
		Type: note.EventUpdated, NoteID: "42", Note: n, OccurredAt: at,
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "42" {
		t.Errorf("key = %q", msg.Key)
	}
	if header(msg, "event-type") != "note.updated" || header(msg, "event-id") != "evt-1" ||
		header(msg, "content-type") != "application/json" {
		t.Errorf("headers = %+v", msg.Headers)
	}

	var env Event
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "note.updated" || env.Subject != "42" || env.Source != "voicenotes" || !env.Timestamp.Equal(at) {
		t.Errorf("envelope = %+v", env)
	}
	if env.Data.Note == nil || env.Data.Note.Title != "Plan" {
		t.Errorf("data = %+v", env.Data)
	}
}

func TestWriteRetriesTransientErrors(t *testing.T) {
	w := &fakeWriter{errs: []error{stderrors.New("dial tcp: connection refused"), nil}}
	p := newProducerWithWriter(Config{Enabled: true, Retries: 3}, w, logger.Nop())

	if err := p.SendJSON(context.Background(), "k", map[string]string{"a": "b"}); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}
	if w.calls != 2 {
		t.Errorf("calls = %d, want 2", w.calls)
	}
}

func TestWriteStopsOnPermanentError(t *testing.T) {
	w := &fakeWriter{errs: []error{kafkago.MessageSizeTooLarge}}
	p := newProducerWithWriter(Config{Enabled: true, Retries: 3}, w, logger.Nop())

	if err := p.SendJSON(context.Background(), "k", "v"); err == nil {
		t.Fatal("expected error")
	}
	if w.calls != 1 {
		t.Errorf("calls = %d, want 1", w.calls)
	}
}

func TestClosedProducer(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(Config{Enabled: true}, w, logger.Nop())
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
	if err := p.SendJSON(context.Background(), "k", "v"); err == nil {
		t.Error("expected error after close")
	}
}

func TestComponentPublishBeforeStart(t *testing.T) {
	c := NewComponent(Config{Enabled: true}, logger.Nop())
	if err := c.Publish(context.Background(), note.ChangeEvent{Type: note.EventCreated}); err == nil {
		t.Error("expected error before Start")
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{Enabled: true}, false},
		{"disabled skips", Config{Compression: "brotli"}, false},
		{"bad compression", Config{Enabled: true, Compression: "brotli"}, true},
		{"sasl without user", Config{Enabled: true, EnableSASL: true}, true},
		{"sasl scram", Config{Enabled: true, EnableSASL: true, SASLMechanism: "SCRAM-SHA-512", Username: "u"}, false},
		{"bad acks", Config{Enabled: true, RequiredAcks: 2}, true},
		{"tls cert without key", Config{Enabled: true, TLS: security.TLSConfig{Enabled: true, CertFile: "c.pem"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Topic != DefaultTopic || cfg.RequiredAcks != -1 || cfg.Brokers[0] != "localhost:9092" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestNewTransportSASL(t *testing.T) {
	cfg := Config{Enabled: true, EnableSASL: true, SASLMechanism: "PLAIN", Username: "u", Password: "p"}
	cfg.ApplyDefaults()
	tr, err := NewTransport(&cfg)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	if tr.SASL == nil || tr.SASL.Name() != "PLAIN" {
		t.Errorf("sasl = %v", tr.SASL)
	}
	if tr.ClientID != "voicenotes" {
		t.Errorf("client id = %q", tr.ClientID)
	}
	if tr.TLS != nil {
		t.Errorf("tls = %+v, want none", tr.TLS)
	}
}

func TestNewDialerTLS(t *testing.T) {
	cfg := Config{Enabled: true, TLS: security.TLSConfig{Enabled: true, SkipVerify: true, ServerName: "broker"}}
	cfg.ApplyDefaults()
	d, err := NewDialer(&cfg)
	if err != nil {
		t.Fatalf("NewDialer: %v", err)
	}
	if d.TLS == nil || d.TLS.ServerName != "broker" || !d.TLS.InsecureSkipVerify {
		t.Errorf("dialer tls = %+v", d.TLS)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{stderrors.New("read tcp: i/o timeout"), true},
		{kafkago.LeaderNotAvailable, true},
		{kafkago.MessageSizeTooLarge, false},
		{stderrors.New("something else"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

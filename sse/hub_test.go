package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/voicenotes/dictation"
	"github.com/kbukum/voicenotes/logger"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logger.Nop())
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()
	t.Cleanup(func() {
		hub.Stop()
		<-done
	})
	return hub
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case frame := <-c.Events():
		return string(frame)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func TestEventEncode(t *testing.T) {
	frame, err := Event{Type: EventTypeState, Data: StateEvent{Surface: "note-1", State: "active"}}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	want := "event: state\ndata: {\"surface\":\"note-1\",\"state\":\"active\"}\n\n"
	if string(frame) != want {
		t.Errorf("frame = %q, want %q", frame, want)
	}
}

func TestClientSendDropsWhenFull(t *testing.T) {
	c := NewClient("a", "t", nil)
	for i := 0; i < clientBuffer; i++ {
		if !c.Send([]byte("x")) {
			t.Fatalf("send %d failed early", i)
		}
	}
	if c.Send([]byte("overflow")) {
		t.Error("expected overflow to be dropped")
	}
}

func TestHubPublishByTopic(t *testing.T) {
	hub := runHub(t)
	a := NewClient("a", DictationTopic("note-1"), nil)
	b := NewClient("b", DictationTopic("note-2"), nil)
	hub.Register(a)
	hub.Register(b)

	hub.Publish(DictationTopic("note-1"), Event{Type: EventTypeTranscript, Data: TranscriptEvent{Text: "hi"}})
	if got := receive(t, a); !strings.Contains(got, "event: transcript") {
		t.Errorf("a got %q", got)
	}

	hub.PublishToPattern("dictation:*", Event{Type: EventTypeNotification, Data: NotificationEvent{Title: "x"}})
	if got := receive(t, b); !strings.Contains(got, "event: notification") {
		t.Errorf("b got %q", got)
	}
	if got := receive(t, a); !strings.Contains(got, "event: notification") {
		t.Errorf("a got %q", got)
	}

	select {
	case frame := <-b.Events():
		t.Errorf("b received unexpected %q", frame)
	default:
	}
	if hub.Subscribers(DictationTopic("note-1")) != 1 || hub.ClientCount() != 2 {
		t.Errorf("counts = %d/%d", hub.Subscribers(DictationTopic("note-1")), hub.ClientCount())
	}
}

func TestHubPublishEscapesTopic(t *testing.T) {
	hub := runHub(t)
	literal := NewClient("a", "dictation:*", nil)
	other := NewClient("b", "dictation:x", nil)
	hub.Register(literal)
	hub.Register(other)

	hub.Publish("dictation:*", Event{Type: EventTypeState, Data: StateEvent{}})
	receive(t, literal)
	hub.Publish("dictation:x", Event{Type: EventTypeState, Data: StateEvent{}})
	receive(t, other)

	select {
	case frame := <-literal.Events():
		t.Errorf("literal topic received %q", frame)
	default:
	}
}

func TestHubUnregisterAndStop(t *testing.T) {
	hub := NewHub(nil)
	exited := make(chan struct{})
	go func() {
		hub.Run()
		close(exited)
	}()

	c := NewClient("a", "t", nil)
	hub.Register(c)
	hub.Unregister(c)
	if _, open := <-c.Events(); open {
		t.Error("expected closed channel after unregister")
	}

	d := NewClient("b", "t", nil)
	hub.Register(d)
	hub.Stop()
	hub.Stop()
	<-exited
	if _, open := <-d.Events(); open {
		t.Error("expected closed channel after stop")
	}
	if hub.Register(NewClient("c", "t", nil)) {
		t.Error("register after stop should fail")
	}
	hub.Publish("t", Event{Type: EventTypeState})
}

func TestDictationSink(t *testing.T) {
	hub := runHub(t)
	c := NewClient("a", DictationTopic("note-42"), nil)
	hub.Register(c)
	sink := NewDictationSink(hub)

	sink.State("note-42", dictation.StateActive)
	sink.Transcript("note-42", "hello world")
	sink.Error("note-42", dictation.KindPermissionDenied, "not-allowed")
	sink.Notify("note-42", "Speech Recognition Error", "denied")

	wants := []string{
		"event: state\ndata: {\"surface\":\"note-42\",\"state\":\"active\"}",
		"event: transcript\ndata: {\"surface\":\"note-42\",\"text\":\"hello world\"}",
		"event: dictation_error\ndata: {\"surface\":\"note-42\",\"kind\":\"permission-denied\",\"message\":\"not-allowed\"}",
		"event: notification\ndata: {\"surface\":\"note-42\",\"title\":\"Speech Recognition Error\",\"description\":\"denied\"}",
	}
	for _, want := range wants {
		if got := receive(t, c); !strings.HasPrefix(got, want) {
			t.Errorf("got %q, want prefix %q", got, want)
		}
	}
}

func TestServeStreamsEvents(t *testing.T) {
	hub := runHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Serve(hub, w, r, "client-1", DictationTopic("note-7"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		if !lines.Scan() {
			t.Fatalf("stream ended: %v", lines.Err())
		}
		return lines.Text()
	}
	if got := next(); got != "event: connected" {
		t.Fatalf("first line = %q", got)
	}
	next()
	next()

	hub.Publish(DictationTopic("note-7"), Event{Type: EventTypeTranscript, Data: TranscriptEvent{Surface: "note-7", Text: "hi"}})
	if got := next(); got != "event: transcript" {
		t.Errorf("line = %q", got)
	}
	if got := next(); got != `data: {"surface":"note-7","text":"hi"}` {
		t.Errorf("line = %q", got)
	}
}

func TestComponentLifecycle(t *testing.T) {
	c := NewComponent("/api/v1/dictation/:surface/events", logger.Nop())
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Message != "0 clients connected" {
		t.Errorf("health = %+v", h)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

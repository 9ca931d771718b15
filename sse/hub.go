// Package sse streams server-sent events to subscribed HTTP clients.
//
// Clients subscribe to a topic. Publishers send named events to a topic or
// to a glob pattern of topics:
//
//	hub := sse.NewHub(log)
//	go hub.Run()
//	hub.Publish("dictation:note-42", sse.Event{Type: sse.EventTypeState, Data: ...})
package sse

import (
	"path"
	"sync"

	"github.com/kbukum/voicenotes/logger"
)

const clientBuffer = 256

// Client is one connected SSE subscriber.
type Client struct {
	id     string
	topic  string
	events chan []byte
	log    *logger.Logger
}

// NewClient creates a client subscribed to topic.
func NewClient(id, topic string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{id: id, topic: topic, events: make(chan []byte, clientBuffer), log: log}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) Topic() string { return c.topic }

// Events returns the channel of encoded frames for this client.
func (c *Client) Events() <-chan []byte { return c.events }

// Send queues a frame. It returns false when the client is too slow and the
// frame was dropped.
func (c *Client) Send(frame []byte) bool {
	select {
	case c.events <- frame:
		return true
	default:
		c.log.Warn("SSE client buffer full, dropping event", logger.Fields("client_id", c.id))
		return false
	}
}

func (c *Client) close() { close(c.events) }

type message struct {
	pattern string
	frame   []byte
}

// Hub routes frames to clients by topic.
type Hub struct {
	log        *logger.Logger
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub. Run must be called before clients register.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:        log.WithComponent("sse"),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, clientBuffer),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.id]; ok {
				old.close()
			}
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("SSE client registered", logger.Fields("client_id", c.id, "topic", c.topic, "total_clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.id]; ok && cur == c {
				delete(h.clients, c.id)
				c.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("SSE client unregistered", logger.Fields("client_id", c.id, "total_clients", n))

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop closes every client and ends Run. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

// Register adds c. It returns false if the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish sends ev to every client subscribed to topic.
func (h *Hub) Publish(topic string, ev Event) {
	h.PublishToPattern(escapeMeta(topic), ev)
}

// PublishToPattern sends ev to every client whose topic matches the glob
// pattern, for example "dictation:*".
func (h *Hub) PublishToPattern(pattern string, ev Event) {
	frame, err := ev.Encode()
	if err != nil {
		h.log.Error("SSE event encode failed", logger.ErrorFields("encode", err))
		return
	}
	select {
	case h.broadcast <- message{pattern: pattern, frame: frame}:
	case <-h.done:
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, c := range h.clients {
		ok, err := path.Match(msg.pattern, c.topic)
		if err != nil {
			h.log.Error("SSE pattern match failed", logger.Fields("pattern", msg.pattern, "error", err.Error()))
			return
		}
		if ok && c.Send(msg.frame) {
			sent++
		}
	}
	h.log.Debug("SSE event delivered", logger.Fields("pattern", msg.pattern, "clients", sent))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns how many clients are subscribed to topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.topic == topic {
			n++
		}
	}
	return n
}

func escapeMeta(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

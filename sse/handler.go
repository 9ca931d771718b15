package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/voicenotes/logger"
)

// KeepAliveInterval stays below common proxy idle timeouts.
var KeepAliveInterval = 30 * time.Second

// Serve streams events for topic to w until the request ends or the hub
// stops.
func Serve(hub *Hub, w http.ResponseWriter, r *http.Request, clientID, topic string) {
	log := hub.log.WithContext(r.Context())
	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("SSE streaming not supported", logger.Fields("client_id", clientID))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Long-lived stream; the server's WriteTimeout must not apply.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("SSE write deadline not cleared", logger.Fields("client_id", clientID, "error", err.Error()))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	client := NewClient(clientID, topic, hub.log)
	if !hub.Register(client) {
		http.Error(w, "event hub stopped", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID, Topic: topic})
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", EventTypeConnected, connected)
	flusher.Flush()
	log.Debug("SSE client connected", logger.Fields("client_id", clientID, "topic", topic, "remote_addr", r.RemoteAddr))

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("SSE client disconnected", logger.Fields("client_id", clientID))
			return
		case frame, ok := <-client.Events():
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

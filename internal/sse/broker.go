// Package sse implements a Server-Sent Events broker for validation updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Event type names broadcast to clients.
const (
	EventValidationStarted   = "validation.started"
	EventValidationCompleted = "validation.completed"
	EventDocumentChanged     = "document.changed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Broker fans validation lifecycle events out to connected SSE clients.
//
// Slow clients never block a publish: each subscriber has a buffered
// channel and messages to a full buffer are dropped.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	closed bool
}

// NewBroker creates a new SSE broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan []byte]struct{})}
}

// Close disconnects all clients. Publishes after Close are no-ops.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

// Subscribe registers a client and returns its receive channel. The channel
// is closed on Close or Unsubscribe. Subscribing to a closed broker returns
// an already-closed channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// Buffer full; drop rather than stall the publisher.
		}
	}
}

// PublishValidationStarted announces that a validation pass began. trigger
// names what kicked it off: "startup", "watcher", "api", or "mcp".
func (b *Broker) PublishValidationStarted(trigger string) {
	b.Publish(Event{Type: EventValidationStarted, Data: map[string]string{"trigger": trigger}})
}

// PublishValidationCompleted announces a finished pass with its metrics.
func (b *Broker) PublishValidationCompleted(metrics interface{}) {
	b.Publish(Event{Type: EventValidationCompleted, Data: metrics})
}

// PublishDocumentChanged publishes a corpus file change.
func (b *Broker) PublishDocumentChanged(op, path string) {
	b.Publish(Event{Type: EventDocumentChanged, Data: map[string]string{
		"op":   op,
		"path": path,
	}})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Package ws streams backup and restore progress events to WebSocket
// clients.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/metrics"
)

const (
	broadcastBuffer = 256
	registerBuffer  = 64
	maxClients      = 200

	// drainTimeout is how long the hub waits for clients to flush after shutdown.
	drainTimeout = 3 * time.Second

	// maxBroadcastPayload caps a single event message.
	maxBroadcastPayload = 16 << 10
)

// Hub manages connected clients and fans out progress events. The client
// set is owned by the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	shutdown   chan struct{}
	done       chan struct{}
	count      atomic.Int64
	seq        atomic.Uint64
	buffer     *EventBuffer
	log        *logrus.Logger
}

// NewHub creates a Hub.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan []byte, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
		log:        log,
	}
}

// Run is the hub event loop. It returns after Shutdown or when ctx ends,
// once connected clients have been drained.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drainClients()
			return
		case <-h.shutdown:
			h.drainClients()
			return

		case client := <-h.register:
			if len(h.clients) >= maxClients {
				h.log.Warn("connection limit reached, dropping client")
				client.closeSend()
				continue
			}
			h.clients[client] = struct{}{}
			h.updateCount()
			h.log.WithField("total", len(h.clients)).Debug("client registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.updateCount()
			h.log.WithField("total", len(h.clients)).Debug("client unregistered")

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer; it reconnects and replays.
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.updateCount()
		}
	}
}

func (h *Hub) updateCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Notify publishes a progress event. It never blocks the caller: when the
// broadcast queue is full the event is only kept for replay.
func (h *Hub) Notify(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).WithField("type", eventType).Error("failed to marshal event payload")
		return
	}

	h.BroadcastEvent(eventType, data)
}

// BroadcastEvent assigns a sequence ID, buffers the event and sends it to
// every client.
func (h *Hub) BroadcastEvent(eventType string, data json.RawMessage) {
	evt := Event{
		Type: eventType,
		ID:   h.seq.Add(1),
		Data: data,
		Time: time.Now(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")
		return
	}

	if len(msg) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"type":         eventType,
			"payload_size": len(msg),
		}).Warn("dropping oversized event")
		return
	}

	h.buffer.Append(&evt)

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

// Shutdown drains connected clients and blocks until Run has returned.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	for client := range h.clients {
		select {
		case client.send <- shutdownMsg:
		default:
		}
	}

	deadline := time.NewTimer(drainTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for !h.sendQueuesEmpty() {
		select {
		case <-deadline.C:
			h.log.Warn("WebSocket drain timeout, closing remaining clients")
			h.closeAll()
			return
		case <-ticker.C:
		}
	}

	h.closeAll()
}

func (h *Hub) sendQueuesEmpty() bool {
	for client := range h.clients {
		if len(client.send) > 0 {
			return false
		}
	}

	return true
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.updateCount()
}

// ReplayEvents queues buffered events newer than lastEventID on the client.
// It returns false when lastEventID has already been evicted.
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID()
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest-1 {
		return false
	}

	for _, evt := range h.buffer.Since(lastEventID) {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		select {
		case client.send <- msg:
		default:
			return true
		}
	}

	return true
}

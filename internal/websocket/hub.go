package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub maintains the set of active web-chat clients, one per subject
type Hub struct {
	// Registered clients map: subject -> Client
	clients map[string]*Client

	// Unregister requests
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	logger *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.Subject]; ok && cur == client {
				delete(h.clients, client.Subject)
				close(client.send)
				h.logger.Info("Web chat disconnected", zap.String("subject", client.Subject))
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for subject, client := range h.clients {
				close(client.send)
				delete(h.clients, subject)
			}
			close(h.done)
			h.mu.Unlock()
			return
		}
	}
}

// join registers c synchronously so replies can reach it as soon as it reads
func (h *Hub) join(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}

	// If the subject connects again, close the old connection
	if old, ok := h.clients[c.Subject]; ok {
		close(old.send)
	}
	h.clients[c.Subject] = c
	h.logger.Info("Web chat connected", zap.String("subject", c.Subject))
	return true
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendTo queues a frame for the subject's current connection. It reports false
// when the subject is offline or its buffer is full.
func (h *Hub) SendTo(subject string, message interface{}) bool {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message", zap.Error(err))
		return false
	}

	// The read lock keeps Run from closing the channel while we send
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[subject]
	if !ok {
		return false
	}

	select {
	case client.send <- jsonMsg:
		return true
	default:
		// Buffer full or client dead
		return false
	}
}

// Count returns the number of connected subjects
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

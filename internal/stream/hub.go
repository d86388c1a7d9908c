// ABOUTME: Registry of connected stream clients
// ABOUTME: Fans chunks out with non-blocking sends so slow clients drop audio
package stream

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// clientSendBuffer is how many queued messages a client may fall behind by
const clientSendBuffer = 100

var errSendBufferFull = errors.New("client send buffer full")

// client is one websocket connection
type client struct {
	id   uuid.UUID
	conn *websocket.Conn

	// []byte for binary chunks, Message for JSON
	send chan any
}

type hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	metrics Metrics
}

func newHub(metrics Metrics) *hub {
	return &hub{
		clients: make(map[uuid.UUID]*client),
		metrics: metrics,
	}
}

func (h *hub) add(conn *websocket.Conn) *client {
	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan any, clientSendBuffer),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.metrics.ClientConnected(1)
	return c
}

// remove unregisters c and closes its send channel. Safe to call twice.
func (h *hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()
	if ok {
		close(c.send)
		h.metrics.ClientConnected(-1)
	}
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// enqueue hands msg to one client without blocking
func (h *hub) enqueue(c *client, msg any) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; !ok {
		return errors.New("client disconnected")
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

// broadcast hands chunk to every client, dropping it for clients that are
// behind. It returns how many clients received it.
func (h *hub) broadcast(chunk []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, c := range h.clients {
		select {
		case c.send <- chunk:
			sent++
			h.metrics.ChunkSent()
		default:
			h.metrics.ChunkDropped()
		}
	}
	return sent
}

// closeAll closes every connection so handlers unwind
func (h *hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.conn.Close()
	}
}

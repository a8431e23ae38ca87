package ws

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/internal/metrics"
)

const broadcastBuffer = 256

// Hub manages all active WebSocket clients and routes room messages.
// Only the Run loop touches the client set.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg

	// stopped is closed when a Run ends; the next Run replaces it.
	mu      sync.Mutex
	stopped chan struct{}
	logger  zerolog.Logger
}

type broadcastMsg struct {
	roomID int64
	data   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, broadcastBuffer),
		stopped:    make(chan struct{}),
		logger:     logging.WithComponent("ws-hub"),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled. Every
// client still connected is closed when Run exits, including by panic, so a
// restarted Run begins with an empty client set.
func (h *Hub) Run(ctx context.Context) error {
	stopped := h.start()
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
		close(stopped)
	}()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			metrics.WSClients.Set(float64(len(h.clients)))
			h.logger.Debug().Int64("user", client.userID).Int("total", len(h.clients)).Msg("client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug().Int64("user", client.userID).Int("total", len(h.clients)).Msg("client disconnected")
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.IsSubscribed(msg.roomID) {
					continue
				}
				if !client.trySend(msg.data) {
					h.logger.Warn().Int64("user", client.userID).Msg("client too slow, disconnecting")
					h.drop(client)
				}
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// start opens a fresh stop channel when the previous Run has ended.
func (h *Hub) start() chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.stopped:
		h.stopped = make(chan struct{})
	default:
	}
	return h.stopped
}

func (h *Hub) done() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	c.closeSend()
	metrics.WSClients.Set(float64(len(h.clients)))
}

// Register adds c to the hub. It fails when ctx ends or the hub has stopped.
func (h *Hub) Register(ctx context.Context, c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-ctx.Done():
		return false
	case <-h.done():
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done():
	}
}

// BroadcastToRoom sends an event to all subscribers of a room. The event is
// dropped when the broadcast queue is full.
func (h *Hub) BroadcastToRoom(roomID int64, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal error")
		return
	}
	select {
	case h.broadcast <- &broadcastMsg{roomID: roomID, data: data}:
	default:
		h.logger.Warn().Int64("room", roomID).Msg("broadcast queue full, dropping event")
	}
}

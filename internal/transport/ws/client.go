package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

// RoomAuthorizer decides whether a user may follow a chat room.
type RoomAuthorizer interface {
	CanAccessRoom(ctx context.Context, userID, roomID int64) bool
}

// Client represents a single WebSocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	rooms  RoomAuthorizer
	logger zerolog.Logger

	// subscribed tracks which rooms this client listens to.
	subscribed map[int64]struct{}
	mu         sync.RWMutex

	// send is closed by the hub; sendMu guards it against late writers.
	send   chan []byte
	sendMu sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, rooms RoomAuthorizer) *Client {
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		hub:        hub,
		conn:       conn,
		userID:     userID,
		rooms:      rooms,
		logger:     hub.logger.With().Int64("user", userID).Logger(),
		subscribed: make(map[int64]struct{}),
		send:       make(chan []byte, sendBufSize),
	}
}

// IsSubscribed checks if this client is subscribed to a room.
func (c *Client) IsSubscribed(roomID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscribed[roomID]
	return ok
}

func (c *Client) Subscribe(roomID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[roomID] = struct{}{}
}

func (c *Client) Unsubscribe(roomID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribed, roomID)
}

// ReadPump reads client events until the connection fails or ctx ends.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				c.logger.Debug().Msg("client disconnected")
			} else {
				c.logger.Debug().Err(err).Msg("read error")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid event")
			continue
		}
		c.handleEvent(ctx, &event)
	}
}

// WritePump writes queued messages and keeps the connection alive with pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Debug().Err(err).Msg("write error")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Debug().Err(err).Msg("ping error")
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handleEvent(ctx context.Context, event *Event) {
	switch event.Type {
	case EventTypeRoomSubscribe, EventTypeRoomUnsubscribe:
		var p RoomPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.RoomID <= 0 {
			c.sendError("INVALID_PAYLOAD", "room_id required")
			return
		}
		if event.Type == EventTypeRoomUnsubscribe {
			c.Unsubscribe(p.RoomID)
			return
		}
		if !c.rooms.CanAccessRoom(ctx, c.userID, p.RoomID) {
			c.sendError("CHAT_403_1", "you are not a participant of this chat room")
			return
		}
		c.Subscribe(p.RoomID)
		c.sendEvent(EventTypeRoomSubscribed, p.RoomID, nil)

	case EventTypePing:
		c.sendEvent(EventTypePong, 0, nil)

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

// sendEvent queues an event for this client only, dropping it when the
// buffer is full.
func (c *Client) sendEvent(eventType string, roomID int64, payload any) {
	evt, err := NewEvent(eventType, roomID, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend queues data without blocking. It reports false only when the
// buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(EventTypeError, 0, ErrorPayload{Code: code, Message: message})
}

package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/internal/metrics"
)

const defaultBuffer = 16

// Event is one server-sent event.
type Event struct {
	Name string
	Data any
}

// Stream is one open push connection. Events is closed when the registry
// drops the stream, either through Close or because the client fell behind.
type Stream struct {
	ID     uuid.UUID
	UserID int64
	Events <-chan Event

	events chan Event
}

// Registry owns every open stream. Streams are keyed by their id and
// indexed by user so one user may hold several connections.
type Registry struct {
	mu      sync.Mutex
	buffer  int
	streams map[uuid.UUID]*Stream
	byUser  map[int64]map[uuid.UUID]*Stream
}

func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Registry{
		buffer:  buffer,
		streams: make(map[uuid.UUID]*Stream),
		byUser:  make(map[int64]map[uuid.UUID]*Stream),
	}
}

// Open registers a new stream for userID.
func (r *Registry) Open(userID int64) *Stream {
	ch := make(chan Event, r.buffer)
	s := &Stream{ID: uuid.New(), UserID: userID, Events: ch, events: ch}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[s.ID] = s
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[uuid.UUID]*Stream)
	}
	r.byUser[userID][s.ID] = s
	metrics.OpenStreams.Inc()
	return s
}

// Close removes the stream. Closing an unknown or already closed stream is a no-op.
func (r *Registry) Close(streamID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(streamID)
}

// Publish hands ev to every stream of userID without blocking. A stream
// whose buffer is full is closed and the client is expected to reconnect.
// It returns the number of streams that accepted the event.
func (r *Registry) Publish(userID int64, ev Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for id, s := range r.byUser[userID] {
		select {
		case s.events <- ev:
			delivered++
		default:
			logging.Warn().Int64("user", userID).Str("stream", id.String()).Msg("notification stream is full, dropping it")
			metrics.StreamsDropped.Inc()
			r.remove(id)
		}
	}
	return delivered
}

// HasStreams reports whether userID has at least one open stream.
func (r *Registry) HasStreams(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userID]) > 0
}

// Len returns the number of open streams.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

// CloseAll drops every stream, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.streams {
		r.remove(id)
	}
}

// remove must be called with mu held.
func (r *Registry) remove(id uuid.UUID) {
	s, ok := r.streams[id]
	if !ok {
		return
	}
	delete(r.streams, id)
	if users := r.byUser[s.UserID]; users != nil {
		delete(users, id)
		if len(users) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
	close(s.events)
	metrics.OpenStreams.Dec()
}

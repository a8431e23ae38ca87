package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"

	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/internal/notify"
	"github.com/vedran77/agora/internal/transport/http/middleware"
)

type NotificationService interface {
	List(ctx context.Context, userID int64) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, userID, id int64, typ domain.NotificationType) error
}

type NotificationHandler struct {
	notifications NotificationService
	registry      *notify.Registry
	keepAlive     time.Duration
}

func NewNotificationHandler(notifications NotificationService, registry *notify.Registry, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &NotificationHandler{
		notifications: notifications,
		registry:      registry,
		keepAlive:     keepAlive,
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	typ := domain.NotificationType(r.URL.Query().Get("type"))

	if err := h.notifications.MarkAsRead(r.Context(), middleware.GetUserID(r.Context()), id, typ); err != nil {
		handleError(w, r, err)
		return
	}
	writeMessage(w, "notification read")
}

// Stream holds the connection open and forwards the caller's notification
// events as server-sent events until the client leaves or the registry
// drops the stream.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	userID := middleware.GetUserID(r.Context())

	stream := h.registry.Open(userID)
	defer h.registry.Close(stream.ID)

	log := logging.Ctx(r.Context()).With().Int64("user", userID).Str("stream", stream.ID.String()).Logger()
	log.Debug().Msg("notification stream opened")

	w.Header().Set("Content-Type", sse.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(ev sse.Event) bool {
		if err := sse.Encode(w, ev); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send(sse.Event{Event: "connect", Id: stream.ID.String(), Data: "EventStream Created. [userId=" + itoaInt64(userID) + "]"}) {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Msg("notification stream closed by client")
			return
		case ev, open := <-stream.Events:
			if !open {
				log.Debug().Msg("notification stream dropped")
				return
			}
			if !send(sse.Event{Event: ev.Name, Data: ev.Data}) {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil || rc.Flush() != nil {
				return
			}
		}
	}
}

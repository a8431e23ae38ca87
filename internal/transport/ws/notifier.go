package ws

import (
	"github.com/vedran77/agora/internal/domain"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	evt, err := NewEvent(EventTypeMessageNew, msg.RoomID, MessagePayload{Message: *msg})
	if err != nil {
		n.hub.logger.Error().Err(err).Msg("marshal error")
		return
	}
	n.hub.BroadcastToRoom(msg.RoomID, evt)
}

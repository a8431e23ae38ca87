package notify

import (
	"context"
	"fmt"

	"github.com/vedran77/agora/internal/domain"
)

// EventNotifications is the event name of a merged notification delivery.
const EventNotifications = "notifications"

// UnreadSource loads a user's unread notifications, oldest first.
type UnreadSource interface {
	ListUnread(ctx context.Context, userID int64) ([]domain.Notification, error)
}

// Dispatcher turns unread notifications into one pushed event per user.
type Dispatcher struct {
	registry *Registry
	unread   UnreadSource
}

func NewDispatcher(registry *Registry, unread UnreadSource) *Dispatcher {
	return &Dispatcher{registry: registry, unread: unread}
}

// DeliverMerged publishes the user's unread notifications as a single
// event. It reports false when the user has no open stream or nothing
// unread; neither case is an error.
func (d *Dispatcher) DeliverMerged(ctx context.Context, userID int64) (bool, error) {
	if !d.registry.HasStreams(userID) {
		return false, nil
	}

	unread, err := d.unread.ListUnread(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("loading unread notifications for user %d: %w", userID, err)
	}
	if len(unread) == 0 {
		return false, nil
	}

	merged := domain.MergeUnread(userID, unread)
	return d.registry.Publish(userID, Event{Name: EventNotifications, Data: merged}) > 0, nil
}

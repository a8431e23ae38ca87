package service

import (
	"context"

	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/repository"
)

const notificationListLimit = 50

type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns the caller's latest notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID int64) ([]domain.Notification, error) {
	list, err := s.notifications.ListByUser(ctx, userID, notificationListLimit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

// MarkAsRead marks one of the caller's notifications as read. The stored
// type must match typ; anything else is reported as not found.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id int64, typ domain.NotificationType) error {
	if !typ.Valid() {
		return domain.ErrNotificationType
	}

	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n == nil || n.UserID != userID || n.Type != typ {
		return domain.ErrNotificationNotFound
	}
	if n.IsRead {
		return nil
	}
	return s.notifications.MarkAsRead(ctx, id)
}

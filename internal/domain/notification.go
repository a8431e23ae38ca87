package domain

import (
	"time"
)

type NotificationType string

const (
	NotificationComment NotificationType = "COMMENT"
	NotificationMessage NotificationType = "MESSAGE"
)

func (t NotificationType) Valid() bool {
	return t == NotificationComment || t == NotificationMessage
}

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"userId"`
	Type      NotificationType `json:"type"`
	RefID     int64            `json:"refId"`
	Content   string           `json:"content"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// MergedNotifications collapses a user's unread notifications into one delivery.
type MergedNotifications struct {
	UserID int64                    `json:"userId"`
	Total  int                      `json:"total"`
	Counts map[NotificationType]int `json:"counts"`
	Items  []Notification           `json:"items"`
}

func MergeUnread(userID int64, unread []Notification) MergedNotifications {
	counts := make(map[NotificationType]int)
	for _, n := range unread {
		counts[n.Type]++
	}
	if unread == nil {
		unread = []Notification{}
	}
	return MergedNotifications{
		UserID: userID,
		Total:  len(unread),
		Counts: counts,
		Items:  unread,
	}
}

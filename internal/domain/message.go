package domain

import (
	"time"
)

// ChatRoom is a one-to-one conversation opened by a guest about a host's post.
type ChatRoom struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	HostID    int64     `json:"hostId"`
	GuestID   int64     `json:"guestId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Other returns the participant that is not userID.
func (r *ChatRoom) Other(userID int64) int64 {
	if r.HostID == userID {
		return r.GuestID
	}
	return r.HostID
}

func (r *ChatRoom) HasParticipant(userID int64) bool {
	return r.HostID == userID || r.GuestID == userID
}

type Message struct {
	ID          int64     `json:"id"`
	RoomID      int64     `json:"roomId"`
	SenderID    int64     `json:"senderId"`
	RecipientID int64     `json:"recipientId"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
	// Joined fields
	SenderNickname string `json:"senderNickname,omitempty"`
}

// RoomSummary is one row of a user's chat room overview.
type RoomSummary struct {
	RoomID         int64     `json:"roomId"`
	PostID         int64     `json:"postId"`
	UnreadCount    int64     `json:"messageCount"`
	Content        string    `json:"content"`
	SenderNickname string    `json:"senderNickname"`
	SenderID       int64     `json:"senderId"`
	CreatedAt      time.Time `json:"createdAt"`
}

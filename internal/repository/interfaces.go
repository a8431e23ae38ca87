package repository

import (
	"context"

	"github.com/vedran77/agora/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetActiveByUserID and GetActiveByNickname ignore soft-deleted users.
	GetActiveByUserID(ctx context.Context, userID string) (*domain.User, error)
	GetActiveByNickname(ctx context.Context, nickname string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SoftDelete(ctx context.Context, id int64) error
	// ListActiveIDs returns up to limit ids greater than afterID in ascending order.
	ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

type PasswordHistoryRepository interface {
	Append(ctx context.Context, h *domain.PasswordHistory) error
	ListByUser(ctx context.Context, userID int64) ([]domain.PasswordHistory, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	ListUnread(ctx context.Context, userID int64) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, id int64) error
}

type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id int64) (*domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	SoftDelete(ctx context.Context, id int64) error
	ListByBoard(ctx context.Context, board domain.BoardType, offset, limit int) ([]domain.Post, int64, error)
	Search(ctx context.Context, keyword string, offset, limit int) ([]domain.Post, int64, error)
}

type CommentRepository interface {
	Create(ctx context.Context, c *domain.Comment) error
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error)
	Update(ctx context.Context, c *domain.Comment) error
	SoftDelete(ctx context.Context, id int64) error
}

type ChatRepository interface {
	CreateRoom(ctx context.Context, room *domain.ChatRoom) error
	GetRoomByID(ctx context.Context, id int64) (*domain.ChatRoom, error)
	GetRoom(ctx context.Context, postID, hostID, guestID int64) (*domain.ChatRoom, error)
	ListRoomSummaries(ctx context.Context, userID int64) ([]domain.RoomSummary, error)
	CreateMessage(ctx context.Context, msg *domain.Message) error
	ListMessages(ctx context.Context, roomID int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, roomID, recipientID int64) error
}

// Repos bundles every repository bound to the same connection or transaction.
type Repos struct {
	Users         UserRepository
	Passwords     PasswordHistoryRepository
	Notifications NotificationRepository
	Posts         PostRepository
	Comments      CommentRepository
	Chats         ChatRepository
}

// TxManager runs fn inside one all-or-nothing unit of work. The Repos handed
// to fn are bound to that unit; fn returning an error rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}

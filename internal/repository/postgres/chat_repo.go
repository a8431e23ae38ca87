package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/vedran77/agora/internal/domain"
)

// ChatRepo stores chat rooms and their messages. Message queries live in
// message_repo.go.
type ChatRepo struct {
	db DBTX
}

func NewChatRepo(db DBTX) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateRoom inserts the room, or loads the existing one when a concurrent
// request created it first.
func (r *ChatRepo) CreateRoom(ctx context.Context, room *domain.ChatRoom) error {
	query := `
		INSERT INTO chat_rooms (post_id, host_id, guest_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, host_id, guest_id) DO UPDATE SET post_id = EXCLUDED.post_id
		RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, room.PostID, room.HostID, room.GuestID, room.CreatedAt).
		Scan(&room.ID, &room.CreatedAt)
}

func (r *ChatRepo) GetRoomByID(ctx context.Context, id int64) (*domain.ChatRoom, error) {
	query := `
		SELECT id, post_id, host_id, guest_id, created_at
		FROM chat_rooms
		WHERE id = $1`
	return r.scanRoom(ctx, query, id)
}

func (r *ChatRepo) GetRoom(ctx context.Context, postID, hostID, guestID int64) (*domain.ChatRoom, error) {
	query := `
		SELECT id, post_id, host_id, guest_id, created_at
		FROM chat_rooms
		WHERE post_id = $1 AND host_id = $2 AND guest_id = $3`
	return r.scanRoom(ctx, query, postID, hostID, guestID)
}

// ListRoomSummaries returns one row per room the user takes part in, carrying
// the latest message and the number of messages still unread by the user.
func (r *ChatRepo) ListRoomSummaries(ctx context.Context, userID int64) ([]domain.RoomSummary, error) {
	query := `
		SELECT c.id, c.post_id,
			(SELECT COUNT(*) FROM messages u
				WHERE u.room_id = c.id AND u.recipient_id = $1 AND u.is_read = false) AS unread,
			COALESCE(m.content, ''), COALESCE(s.nickname, ''), COALESCE(m.sender_id, 0),
			COALESCE(m.created_at, c.created_at)
		FROM chat_rooms c
		LEFT JOIN LATERAL (
			SELECT content, sender_id, created_at
			FROM messages
			WHERE room_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON true
		LEFT JOIN users s ON s.id = m.sender_id
		WHERE c.host_id = $1 OR c.guest_id = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.RoomSummary
	for rows.Next() {
		var s domain.RoomSummary
		if err := rows.Scan(
			&s.RoomID, &s.PostID, &s.UnreadCount,
			&s.Content, &s.SenderNickname, &s.SenderID, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *ChatRepo) scanRoom(ctx context.Context, query string, args ...any) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&room.ID, &room.PostID, &room.HostID, &room.GuestID, &room.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

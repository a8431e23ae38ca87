package postgres

import (
	"context"

	"github.com/vedran77/agora/internal/domain"
)

func (r *ChatRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (room_id, sender_id, recipient_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	return r.db.QueryRow(ctx, query,
		msg.RoomID, msg.SenderID, msg.RecipientID, msg.Content, msg.IsRead, msg.CreatedAt,
	).Scan(&msg.ID)
}

func (r *ChatRepo) ListMessages(ctx context.Context, roomID int64) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.room_id, m.sender_id, m.recipient_id, m.content, m.is_read, m.created_at,
			u.nickname
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.room_id = $1
		ORDER BY m.created_at, m.id`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID, &m.RoomID, &m.SenderID, &m.RecipientID, &m.Content, &m.IsRead, &m.CreatedAt,
			&m.SenderNickname,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *ChatRepo) MarkRead(ctx context.Context, roomID, recipientID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE messages SET is_read = true WHERE room_id = $1 AND recipient_id = $2 AND is_read = false`,
		roomID, recipientID,
	)
	return err
}

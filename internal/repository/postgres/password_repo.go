package postgres

import (
	"context"

	"github.com/vedran77/agora/internal/domain"
)

type PasswordHistoryRepo struct {
	db DBTX
}

func NewPasswordHistoryRepo(db DBTX) *PasswordHistoryRepo {
	return &PasswordHistoryRepo{db: db}
}

func (r *PasswordHistoryRepo) Append(ctx context.Context, h *domain.PasswordHistory) error {
	query := `
		INSERT INTO password_histories (user_id, password_hash, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	return r.db.QueryRow(ctx, query, h.UserID, h.PasswordHash, h.CreatedAt).Scan(&h.ID)
}

func (r *PasswordHistoryRepo) ListByUser(ctx context.Context, userID int64) ([]domain.PasswordHistory, error) {
	query := `
		SELECT id, user_id, password_hash, created_at
		FROM password_histories
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var histories []domain.PasswordHistory
	for rows.Next() {
		var h domain.PasswordHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.PasswordHash, &h.CreatedAt); err != nil {
			return nil, err
		}
		histories = append(histories, h)
	}
	return histories, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vedran77/agora/internal/domain"
)

const userColumns = `id, user_id, nickname, password_hash, language, profile_image,
	is_deleted, deleted_at, created_at, updated_at`

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (user_id, nickname, password_hash, language, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		user.UserID, user.Nickname, user.PasswordHash, user.Language,
		user.ProfileImage, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	return translate(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepo) GetActiveByUserID(ctx context.Context, userID string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE user_id = $1 AND is_deleted = false", userID)
}

func (r *UserRepo) GetActiveByNickname(ctx context.Context, nickname string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE nickname = $1 AND is_deleted = false", nickname)
}

func (r *UserRepo) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET nickname = $1, password_hash = $2, language = $3, profile_image = $4, updated_at = $5
		WHERE id = $6`
	_, err := r.db.Exec(ctx, query,
		user.Nickname, user.PasswordHash, user.Language, user.ProfileImage, user.UpdatedAt, user.ID,
	)
	return translate(err)
}

func (r *UserRepo) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := r.db.Exec(ctx,
		`UPDATE users SET is_deleted = true, deleted_at = $1, updated_at = $1 WHERE id = $2`,
		now, id,
	)
	return err
}

func (r *UserRepo) ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM users WHERE is_deleted = false AND id > $1 ORDER BY id LIMIT $2`,
		afterID, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.UserID, &u.Nickname, &u.PasswordHash, &u.Language, &u.ProfileImage,
		&u.IsDeleted, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/vedran77/agora/internal/domain"
)

type CommentRepo struct {
	db DBTX
}

func NewCommentRepo(db DBTX) *CommentRepo {
	return &CommentRepo{db: db}
}

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	query := `
		INSERT INTO comments (post_id, author_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	return r.db.QueryRow(ctx, query, c.PostID, c.AuthorID, c.Content, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
}

func (r *CommentRepo) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	query := `
		SELECT c.id, c.post_id, c.author_id, c.content, c.deleted_at, c.created_at, c.updated_at,
			u.nickname
		FROM comments c
		JOIN users u ON c.author_id = u.id
		WHERE c.id = $1 AND c.deleted_at IS NULL`

	var c domain.Comment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
		&c.AuthorNickname,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepo) ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error) {
	query := `
		SELECT c.id, c.post_id, c.author_id, c.content, c.created_at, c.updated_at, u.nickname
		FROM comments c
		JOIN users u ON c.author_id = u.id
		WHERE c.post_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.created_at, c.id`

	rows, err := r.db.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(
			&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt, &c.AuthorNickname,
		); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepo) Update(ctx context.Context, c *domain.Comment) error {
	_, err := r.db.Exec(ctx,
		`UPDATE comments SET content = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`,
		c.Content, c.UpdatedAt, c.ID,
	)
	return err
}

func (r *CommentRepo) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE comments SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

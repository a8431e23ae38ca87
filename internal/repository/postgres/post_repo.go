package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vedran77/agora/internal/domain"
)

type PostRepo struct {
	db DBTX
}

func NewPostRepo(db DBTX) *PostRepo {
	return &PostRepo{db: db}
}

func (r *PostRepo) Create(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (author_id, board_type, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRow(ctx, query,
		post.AuthorID, post.BoardType, post.Title, post.Content, post.CreatedAt, post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		return err
	}
	return r.insertImages(ctx, post.ID, post.ImageKeys)
}

func (r *PostRepo) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	query := `
		SELECT p.id, p.author_id, p.board_type, p.title, p.content, p.deleted_at,
			p.created_at, p.updated_at, u.nickname
		FROM posts p
		JOIN users u ON p.author_id = u.id
		WHERE p.id = $1 AND p.deleted_at IS NULL`

	var p domain.Post
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.AuthorID, &p.BoardType, &p.Title, &p.Content, &p.DeletedAt,
		&p.CreatedAt, &p.UpdatedAt, &p.AuthorNickname,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT object_key FROM post_images WHERE post_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	p.ImageKeys, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update rewrites title, content and board; the image set is replaced.
func (r *PostRepo) Update(ctx context.Context, post *domain.Post) error {
	query := `
		UPDATE posts
		SET board_type = $1, title = $2, content = $3, updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL`
	if _, err := r.db.Exec(ctx, query,
		post.BoardType, post.Title, post.Content, post.UpdatedAt, post.ID,
	); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM post_images WHERE post_id = $1`, post.ID); err != nil {
		return err
	}
	return r.insertImages(ctx, post.ID, post.ImageKeys)
}

func (r *PostRepo) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE posts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *PostRepo) ListByBoard(ctx context.Context, board domain.BoardType, offset, limit int) ([]domain.Post, int64, error) {
	return r.page(ctx, "p.board_type = $1", board, offset, limit)
}

// Search matches keyword against title or content, case-insensitively.
func (r *PostRepo) Search(ctx context.Context, keyword string, offset, limit int) ([]domain.Post, int64, error) {
	return r.page(ctx, "(p.title ILIKE $1 OR p.content ILIKE $1)", "%"+keyword+"%", offset, limit)
}

func (r *PostRepo) page(ctx context.Context, where string, arg any, offset, limit int) ([]domain.Post, int64, error) {
	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM posts p WHERE p.deleted_at IS NULL AND %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, arg).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.author_id, p.board_type, p.title, p.content,
			p.created_at, p.updated_at, u.nickname
		FROM posts p
		JOIN users u ON p.author_id = u.id
		WHERE p.deleted_at IS NULL AND %s
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`, where)

	rows, err := r.db.Query(ctx, query, arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.BoardType, &p.Title, &p.Content,
			&p.CreatedAt, &p.UpdatedAt, &p.AuthorNickname,
		); err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

func (r *PostRepo) insertImages(ctx context.Context, postID int64, keys []string) error {
	for i, key := range keys {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO post_images (post_id, position, object_key) VALUES ($1, $2, $3)`,
			postID, i, key,
		); err != nil {
			return fmt.Errorf("inserting post image: %w", err)
		}
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/internal/repository"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repo works
// inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Repos returns repositories bound to the pool (autocommit).
func (s *Store) Repos() repository.Repos {
	return newRepos(s.pool)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logging.Ctx(ctx).Error().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	if err = fn(ctx, newRepos(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func newRepos(db DBTX) repository.Repos {
	return repository.Repos{
		Users:         NewUserRepo(db),
		Passwords:     NewPasswordHistoryRepo(db),
		Notifications: NewNotificationRepo(db),
		Posts:         NewPostRepo(db),
		Comments:      NewCommentRepo(db),
		Chats:         NewChatRepo(db),
	}
}

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/agora/internal/domain"
)

// fakeDB answers every statement with one canned row or error.
type fakeDB struct {
	row     fakeRow
	execErr error
	sql     string
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.sql = sql
	return nil, errors.New("query not supported")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.sql = sql
	return f.row
}

type fakeRow struct {
	err    error
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

func uniqueViolationOn(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func TestUserRepoTranslatesUniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{"user id", "users_user_id_active_idx", domain.ErrUserIDDuplicate},
		{"nickname", "users_nickname_active_idx", domain.ErrNicknameDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name+" on create", func(t *testing.T) {
			repo := NewUserRepo(&fakeDB{row: fakeRow{err: uniqueViolationOn(tt.constraint)}})
			err := repo.Create(context.Background(), &domain.User{UserID: "user1", Nickname: "nick"})
			assert.ErrorIs(t, err, tt.want)
		})
		t.Run(tt.name+" on update", func(t *testing.T) {
			repo := NewUserRepo(&fakeDB{execErr: uniqueViolationOn(tt.constraint)})
			err := repo.Update(context.Background(), &domain.User{ID: 1, Nickname: "nick"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserRepoKeepsOtherErrors(t *testing.T) {
	unknown := uniqueViolationOn("some_other_idx")
	repo := NewUserRepo(&fakeDB{row: fakeRow{err: unknown}})
	err := repo.Create(context.Background(), &domain.User{})
	assert.Same(t, unknown, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))

	fk := &pgconn.PgError{Code: "23503", ConstraintName: "users_nickname_active_idx"}
	repo = NewUserRepo(&fakeDB{execErr: fk})
	assert.Same(t, fk, repo.Update(context.Background(), &domain.User{ID: 1}))
}

func TestChatRepoCreateRoomReturnsExistingRoom(t *testing.T) {
	createdAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: []any{int64(42), createdAt}}}
	room := &domain.ChatRoom{PostID: 1, HostID: 2, GuestID: 3, CreatedAt: time.Now()}

	require.NoError(t, NewChatRepo(db).CreateRoom(context.Background(), room))
	assert.Contains(t, db.sql, "ON CONFLICT (post_id, host_id, guest_id)")
	assert.Equal(t, int64(42), room.ID)
	assert.Equal(t, createdAt, room.CreatedAt)
}

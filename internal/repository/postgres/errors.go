package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vedran77/agora/internal/domain"
)

const uniqueViolation = "23505"

// uniqueErrors maps unique indexes to the domain error a lost race reports.
var uniqueErrors = map[string]error{
	"users_user_id_active_idx":  domain.ErrUserIDDuplicate,
	"users_nickname_active_idx": domain.ErrNicknameDuplicate,
}

// translate turns a unique violation on a known index into its domain error.
// Other errors pass through unchanged.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if derr, ok := uniqueErrors[pgErr.ConstraintName]; ok {
		return derr
	}
	return err
}

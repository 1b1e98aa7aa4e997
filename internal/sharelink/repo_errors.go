package sharelink

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func isTokenUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" &&
		pgErr.ConstraintName == "share_links_token_unique"
}

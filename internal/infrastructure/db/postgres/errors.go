package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// mapErr turns a driver error into a domain error. notFound is returned
// for sql.ErrNoRows; everything else is DB_UNAVAILABLE.
func mapErr(err error, notFound func() *domain.Error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound()
	}
	return domain.ErrDBUnavailable(err)
}

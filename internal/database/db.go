package database

import (
	"errors"

	"github.com/afo-asso/membership-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapPostgresError translates driver errors into the domain sentinels
// the service layer matches on. Anything unrecognized passes through.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation: duplicate email, mois already billed
			return models.ErrConflict
		case "23503", "23502": // broken reference or missing required column
			return models.ErrBadRequest
		}
	}

	return err
}

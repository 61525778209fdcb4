package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chicsouqsa-collab/Spay-sub001/internal/domain"
)

const uniqueViolation = "23505"

// localWall renders t as wall-clock time in loc, stored in a timestamp
// column without zone.
func localWall(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// localWallPtr is localWall for nullable columns.
func localWallPtr(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	l := localWall(*t, loc)
	return &l
}

// utcPtr normalizes a nullable timestamp to UTC.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// notFound maps pgx.ErrNoRows to notFoundErr and wraps anything else.
func notFound(err error, notFoundErr *domain.Error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFoundErr.WithOp(op)
	}
	return domain.Internal(err, op, "database query failed")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

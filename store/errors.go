package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrHasDependents    = errors.New("record has dependent records")
	ErrDuplicate        = errors.New("duplicate record")
	ErrUnknownFunction  = errors.New("unknown function")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAlreadyConverted = errors.New("lead already converted")
)

// Postgres SQLSTATE codes surfaced by the store.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// DependentsError reports the child rows that block a delete.
type DependentsError struct {
	Table     Table
	Dependent Table
	Count     int64
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("cannot delete from %s: %d dependent %s record(s)", e.Table, e.Count, e.Dependent)
}

func (e *DependentsError) Is(target error) bool {
	return target == ErrHasDependents
}

// translate maps driver and gorm errors onto the store's sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrHasDependents, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrHasDependents, pgErr.Message)
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Message)
	}
	return err
}

package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ValidationError rejects bad input or an unmet precondition. Nothing was written.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError rejects an operation that collides with current state.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StorageFault means the transaction was rolled back. Callers may retry.
type StorageFault struct {
	Op  string
	Err error
}

func (e *StorageFault) Error() string { return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err) }
func (e *StorageFault) Unwrap() error { return e.Err }

// SchedulerFault wraps a failure to process one tournament during a sweep.
type SchedulerFault struct {
	TournamentID string
	Err          error
}

func (e *SchedulerFault) Error() string {
	return fmt.Sprintf("tournament %s: %v", e.TournamentID, e.Err)
}
func (e *SchedulerFault) Unwrap() error { return e.Err }

var (
	ErrInsufficientBalance = &ValidationError{Msg: "insufficient balance"}
	ErrPlayerDisabled      = &ValidationError{Msg: "player account is disabled"}
	ErrRateLimited         = errors.New("too many requests, slow down")
)

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

func notFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func isDomainError(err error) bool {
	var sf *StorageFault
	return IsValidation(err) || IsConflict(err) || IsNotFound(err) ||
		errors.As(err, &sf) || errors.Is(err, ErrRateLimited)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// classify keeps domain errors as they are and turns everything else into a
// StorageFault (or a ConflictError for unique violations).
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case isUniqueViolation(err):
		return &ConflictError{Msg: "record already exists"}
	default:
		return &StorageFault{Op: op, Err: err}
	}
}

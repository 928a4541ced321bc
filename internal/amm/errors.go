package amm

import (
	"errors"
	"fmt"

	"cpamm/internal/curve"
)

// Error is a stable, externally reported rejection reason.
type Error struct {
	Code uint32
	Name string
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return e.Name
	}
	return fmt.Sprintf("%s (%d)", e.Name, e.Code)
}

var (
	ErrInvalidConfigAuthority = &Error{Code: 6000, Name: "InvalidConfigAuthority"}
	ErrPoolLocked             = &Error{Code: 6001, Name: "PoolLocked"}
	ErrInvalidAmount          = &Error{Code: 6002, Name: "InvalidAmount"}
	ErrInvalidFee             = &Error{Code: 6003, Name: "InvalidFee"}
	ErrPoolExists             = &Error{Code: 6004, Name: "PoolExists"}
	ErrPoolNotFound           = &Error{Code: 6005, Name: "PoolNotFound"}
	ErrSlippageExceeded       = &Error{Name: "SlippageExceeded"}
)

// CodeOf returns the numbered code carried by err, or 0.
func CodeOf(err error) uint32 {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsRejection reports whether err is a deterministic rejection by the pool
// rules, as opposed to a collaborator or arithmetic failure.
func IsRejection(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

func reject(base *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

// classify maps curve failures onto the taxonomy. Arithmetic overflow is
// passed through unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, curve.ErrInvalidFee):
		return fmt.Errorf("%w: %w", ErrInvalidFee, err)
	case errors.Is(err, curve.ErrZeroQuote),
		errors.Is(err, curve.ErrEmptyReserve),
		errors.Is(err, curve.ErrExceedsSupply):
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	default:
		return err
	}
}

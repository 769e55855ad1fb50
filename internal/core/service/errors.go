package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned before any transaction is opened. The wrapped
	// chain carries the ozzo validation.Errors with per-field messages.
	ErrValidation = errors.New("validation failed")

	ErrNotFound = errors.New("not found")

	// ErrTransient marks store faults. The transaction has been rolled back
	// and the request may be retried.
	ErrTransient = errors.New("transient store failure")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

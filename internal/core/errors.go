package core

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError marks a terminal lookup failure (unknown order, invoice or
// chargeback id). Callers must not retry.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError carries one or more input problems. It is always local and
// never retried; the messages are surfaced verbatim to the caller.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrAlreadyAcknowledged is returned when re-acknowledging an order without
// the overwrite flag.
var ErrAlreadyAcknowledged = errors.New("order is already acknowledged")

// ErrNoAvailability is returned when the stock lookup failed for an order
// line during auto-fill; the order stays in state New.
var ErrNoAvailability = errors.New("no availability data")

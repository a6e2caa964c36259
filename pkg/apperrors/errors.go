// Package apperrors defines the error taxonomy shared across the engine.
//
// Every failure surfaced by the reconciliation core wraps one of these
// sentinels so callers can classify with errors.Is:
//
//   - ErrConfiguration: the operator must correct something (missing
//     data source, ambiguous field match, unsupported column type).
//     Never retried.
//   - ErrTransientIO: connection or read fault against the source
//     database. Retry policy belongs to the caller.
//   - ErrInvariant: internal state that should be unreachable. Fails loudly.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrConfiguration = errors.New("configuration error")
	ErrTransientIO   = errors.New("transient i/o error")
	ErrInvariant     = errors.New("internal invariant violation")

	// ErrUnsupportedColumnType is a configuration defect: the column's SQL
	// type has no entry in the field type mapping table. It matches both
	// itself and ErrConfiguration under errors.Is.
	ErrUnsupportedColumnType = fmt.Errorf("%w: unsupported column type", ErrConfiguration)
)

// Configurationf wraps ErrConfiguration with a formatted, human-readable
// message. The message should tell the operator what to fix.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// TransientIO wraps a connection/read fault so callers can distinguish it
// from configuration defects.
func TransientIO(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransientIO, op, err)
}

// Invariantf reports a state that should be unreachable.
func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

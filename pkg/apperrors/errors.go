// Package apperrors defines sentinel errors shared across packages.
// Typed errors that carry context wrap these so callers can branch with
// errors.Is without depending on the producing package's error types.
package apperrors

import "errors"

var (
	// ErrNotFound indicates a requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog lookups.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrUserNotFound  = errors.New("user not found")
)

// Sentinel errors for restore input.
var (
	ErrInvalidPolicy   = errors.New("invalid restore mode")
	ErrInvalidSnapshot = errors.New("invalid backup file")
)

// ErrOperationInProgress is returned when a backup or restore is already running.
var ErrOperationInProgress = errors.New("another backup or restore is in progress")

// ErrForbidden indicates the caller lacks the required permission.
var ErrForbidden = errors.New("permission denied")

// IntrospectionError wraps a failed catalog query. It is distinct from
// ErrTableNotFound: the catalog could not be read at all.
type IntrospectionError struct {
	Table string
	Err   error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspecting table %s: %v", e.Table, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }

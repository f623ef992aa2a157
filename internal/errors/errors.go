package errors

import (
	"errors"
	"fmt"
)

// Common error types for the console client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrMissingToken       = errors.New("login response contained no access token")

	// Transport errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrNetwork      = errors.New("network failure")
	ErrServer       = errors.New("server error")

	// Cache errors
	ErrKeyNotCached = errors.New("key not cached")
	ErrCacheClosed  = errors.New("cache closed")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

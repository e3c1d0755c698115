package common

import (
	"errors"
	"fmt"
)

// Sentinel errors for nordctl operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Environment errors.
	ErrNoCredentials   = errors.New("credentials not configured")
	ErrAppNotInstalled = errors.New("Tunnelblick is not installed")
	ErrBadArguments    = errors.New("invalid arguments")

	// Scripting bridge errors.
	ErrAppNotRunning     = errors.New("Tunnelblick is not running")
	ErrBridgeTimeout     = errors.New("Tunnelblick command timed out")
	ErrBridgeUnavailable = errors.New("osascript not found - not running on macOS")

	// Catalog errors.
	ErrParse    = errors.New("malformed catalog response")
	ErrNoServer = errors.New("no matching server found")

	// Connection errors.
	ErrConnectFailed = errors.New("connection failed")
	ErrTimeout       = errors.New("operation timed out")

	// Bundle errors.
	ErrArchive = errors.New("malformed configuration archive")
)

// HTTPError reports a non-2xx response from a remote endpoint.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}

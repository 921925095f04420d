package errors

import (
	stderrors "errors"
	"fmt"
)

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")

	// Download errors.
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrLocalWrite       = fmt.Errorf("failed to write download to disk")
	ErrChecksumMismatch = fmt.Errorf("checksum mismatch")
	ErrAlreadyInFlight  = fmt.Errorf("download already in flight")
	ErrManagerClosed    = fmt.Errorf("download manager is shut down")
	ErrInvalidPath      = fmt.Errorf("invalid path")

	// Store errors.
	ErrStoreURLInvalid = fmt.Errorf("invalid store URL")
	ErrCatalogDecode   = fmt.Errorf("failed to decode catalog")
	ErrUnknownChannel  = fmt.Errorf("unknown release channel")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// DisplayableError is a failure meant to be shown to the user. Message and
// Caption are short, user-facing strings; the technical cause stays wrapped
// for logging and is never shown verbatim.
type DisplayableError struct {
	Message string
	Caption string
	Cause   error
}

// NewDisplayable creates a DisplayableError wrapping cause.
func NewDisplayable(cause error, caption, format string, args ...interface{}) *DisplayableError {
	return &DisplayableError{
		Message: fmt.Sprintf(format, args...),
		Caption: caption,
		Cause:   cause,
	}
}

func (e *DisplayableError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

// Unwrap returns the technical cause.
func (e *DisplayableError) Unwrap() error { return e.Cause }

// AsDisplayable reports whether err is (or wraps) a DisplayableError.
func AsDisplayable(err error) (*DisplayableError, bool) {
	var de *DisplayableError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

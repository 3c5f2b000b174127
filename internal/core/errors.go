package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why an install step failed.
type ErrorKind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown ErrorKind = iota
	// KindValidation means the install request was malformed.
	KindValidation
	// KindFetch means the pinned source could not be retrieved.
	KindFetch
	// KindRewrite means the launch command could not be rewritten, either
	// because a bundled launcher is missing or a directory flag has no source.
	KindRewrite
	// KindConfigIO means the host config could not be read, parsed, or written.
	KindConfigIO
	// KindUnsupportedPlatform means the operation is not available on this OS.
	KindUnsupportedPlatform
)

// String returns a human-readable label for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "Invalid Request"
	case KindFetch:
		return "Download Failed"
	case KindRewrite:
		return "Launch Command Error"
	case KindConfigIO:
		return "Configuration Error"
	case KindUnsupportedPlatform:
		return "Unsupported Platform"
	default:
		return "Unknown Error"
	}
}

// Error is the structured error returned by every pipeline component.
// Detail is meant for logs and may contain paths and tool output;
// UserMessage is shown to the user and must not.
type Error struct {
	Kind        ErrorKind
	Detail      string
	UserMessage string
	Err         error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, userMessage string, err error, format string, args ...any) *Error {
	return &Error{
		Kind:        kind,
		Detail:      fmt.Sprintf(format, args...),
		UserMessage: userMessage,
		Err:         err,
	}
}

// AsError returns err as an *Error, classifying foreign errors as
// KindUnknown with a generic user message.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{
			Kind:        KindUnknown,
			Detail:      "operation interrupted",
			UserMessage: "The installation was interrupted before it finished.",
			Err:         err,
		}
	}
	return &Error{
		Kind:        KindUnknown,
		Detail:      "unclassified failure",
		UserMessage: "An unexpected error occurred during installation.",
		Err:         err,
	}
}

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

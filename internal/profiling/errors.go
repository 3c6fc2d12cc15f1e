// Package profiling provides structured error types for the profiling core.
//
// Every failure the core can report is a logic-contract violation rather than
// a transient fault, so none of these errors carry retry guidance. Each error
// has a code that callers match with errors.Is against the exported sentinels:
//
//	if errors.Is(err, profiling.ErrUnknownAlgorithm) { ... }
package profiling

import "fmt"

// ErrorCode identifies the kind of profiling failure
type ErrorCode int

const (
	ErrCodeGeneric ErrorCode = iota
	ErrCodeConfiguration
	ErrCodeUnknownAlgorithm
	ErrCodeAlreadyRunning
	ErrCodeNotRunning
	ErrCodePayloadTypeMismatch
	ErrCodeNotActive
)

// String returns a readable name for the code
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeConfiguration:
		return "configuration"
	case ErrCodeUnknownAlgorithm:
		return "unknown_algorithm"
	case ErrCodeAlreadyRunning:
		return "already_running"
	case ErrCodeNotRunning:
		return "not_running"
	case ErrCodePayloadTypeMismatch:
		return "payload_type_mismatch"
	case ErrCodeNotActive:
		return "not_active"
	default:
		return "generic"
	}
}

// Error is a structured profiling error.
//
// Key names the timer, algorithm or configuration field involved, when there
// is one. Original preserves a wrapped cause.
type Error struct {
	Code     ErrorCode
	Message  string
	Key      string
	Original error
}

// Sentinels for errors.Is matching. Only the Code is compared.
var (
	ErrConfiguration       = &Error{Code: ErrCodeConfiguration, Message: "invalid profiling configuration"}
	ErrUnknownAlgorithm    = &Error{Code: ErrCodeUnknownAlgorithm, Message: "unknown algorithm"}
	ErrAlreadyRunning      = &Error{Code: ErrCodeAlreadyRunning, Message: "timer already running"}
	ErrNotRunning          = &Error{Code: ErrCodeNotRunning, Message: "timer not running"}
	ErrPayloadTypeMismatch = &Error{Code: ErrCodePayloadTypeMismatch, Message: "unexpected incident payload"}
	ErrNotActive           = &Error{Code: ErrCodeNotActive, Message: "profiling session not active"}
)

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("profiling error (%s)", e.Code)
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Key)
	}
	if e.Original != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Original)
	}
	return msg
}

// Unwrap returns the original error for errors.Is/As chains
func (e *Error) Unwrap() error {
	return e.Original
}

// Is reports whether target is a profiling error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a profiling error of the given code
func NewError(code ErrorCode, key, message string) *Error {
	return &Error{Code: code, Key: key, Message: message}
}

// WrapError creates a profiling error of the given code around original
func WrapError(code ErrorCode, key, message string, original error) *Error {
	return &Error{Code: code, Key: key, Message: message, Original: original}
}

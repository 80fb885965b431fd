// internal/xerrors/errors.go
package xerrors

import (
	"errors"
	"fmt"
)

// Code classifies storage and workspace failures.
type Code string

const (
	CodeCancelled        Code = "CANCELLED"         // picker dismissed by the user
	CodePermissionDenied Code = "PERMISSION_DENIED" // denied after one interactive re-request
	CodeNotFound         Code = "NOT_FOUND"         // target vanished between listing and operating
	CodeUnsupported      Code = "UNSUPPORTED"       // local filesystem capability absent
	CodeConflict         Code = "CONFLICT"          // invalid state / concurrent modification
	CodeQuota            Code = "QUOTA"             // snapshot store full, best-effort path only
)

// Error is a classified error with a human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewCancelled reports a dismissed picker. Callers treat this as a no-op.
func NewCancelled(action string) *Error {
	return &Error{Code: CodeCancelled, Message: action + " cancelled"}
}

// NewPermissionDenied reports a denied operation after re-request.
func NewPermissionDenied(target string) *Error {
	return &Error{Code: CodePermissionDenied, Message: fmt.Sprintf("permission denied for %s", target)}
}

// NewNotFound reports a target that disappeared under us.
func NewNotFound(target string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("not found: %s", target)}
}

// NewUnsupported reports that the filesystem capability is unavailable.
func NewUnsupported(op string) *Error {
	return &Error{Code: CodeUnsupported, Message: fmt.Sprintf("%s requires the local filesystem capability", op)}
}

// NewConflict reports a concurrent-modification or invalid-state failure.
func NewConflict(msg string, err error) *Error {
	return &Error{Code: CodeConflict, Message: msg, Err: err}
}

// NewQuota reports a snapshot-store write failure. Always swallowed upstream.
func NewQuota(err error) *Error {
	return &Error{Code: CodeQuota, Message: "snapshot storage unavailable", Err: err}
}

// Is reports whether err is an *Error carrying the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of err, or empty when err is unclassified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

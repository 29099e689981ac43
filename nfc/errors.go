package nfc

import (
	"errors"
	"strings"
)

// ErrorCode represents a specific type of scan error for programmatic handling.
type ErrorCode int

const (
	// ErrCodeUnsupportedCapability: the backend stack cannot perform the
	// requested operation on this host.
	ErrCodeUnsupportedCapability ErrorCode = iota + 100
	// ErrCodeSessionInvalidated: the backend session ended, by request
	// or by platform failure.
	ErrCodeSessionInvalidated
	// ErrCodeTagReadFailed: an NDEF read on a discovered tag failed.
	ErrCodeTagReadFailed
	// ErrCodeBackendFailure: the backend could not start or continue.
	ErrCodeBackendFailure
)

// ScanError provides structured error information for scan-session
// failures.
type ScanError struct {
	Code    ErrorCode
	Op      string // Operation that failed (e.g., "StartScanning")
	TagUID  string // Optional: UID of tag involved
	Message string // Human-readable message
	Cause   error  // Underlying error
}

func (e *ScanError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.TagUID != "" {
		sb.WriteString(" (tag ")
		sb.WriteString(e.TagUID)
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *ScanError) Unwrap() error {
	return e.Cause
}

func (e *ScanError) Is(target error) bool {
	if t, ok := target.(*ScanError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewUnsupportedCapabilityError creates an error for operations the
// backend cannot perform on this host.
func NewUnsupportedCapabilityError(op string) *ScanError {
	return &ScanError{
		Code:    ErrCodeUnsupportedCapability,
		Op:      op,
		Message: "capability not supported on this host",
	}
}

// NewSessionInvalidatedError creates an error for a backend session
// that ended outside the caller's control.
func NewSessionInvalidatedError(cause error) *ScanError {
	return &ScanError{
		Code:    ErrCodeSessionInvalidated,
		Op:      "ScanSession",
		Message: "session invalidated",
		Cause:   cause,
	}
}

// NewTagReadError creates an error for an NDEF read failure on a
// discovered tag.
func NewTagReadError(tagUID string, cause error) *ScanError {
	return &ScanError{
		Code:    ErrCodeTagReadFailed,
		Op:      "ReadNDEF",
		TagUID:  tagUID,
		Message: "tag read failed",
		Cause:   cause,
	}
}

// NewBackendError creates an error for backend start or poll failures.
func NewBackendError(op string, cause error) *ScanError {
	return &ScanError{
		Code:    ErrCodeBackendFailure,
		Op:      op,
		Message: "backend failure",
		Cause:   cause,
	}
}

// IsUnsupportedCapabilityError checks if an error indicates a missing
// backend capability.
func IsUnsupportedCapabilityError(err error) bool {
	var scanErr *ScanError
	return errors.As(err, &scanErr) && scanErr.Code == ErrCodeUnsupportedCapability
}

// IsSessionInvalidatedError checks if an error indicates a dead session.
func IsSessionInvalidatedError(err error) bool {
	var scanErr *ScanError
	return errors.As(err, &scanErr) && scanErr.Code == ErrCodeSessionInvalidated
}

// IsTagReadError checks if an error indicates a failed tag read.
func IsTagReadError(err error) bool {
	var scanErr *ScanError
	return errors.As(err, &scanErr) && scanErr.Code == ErrCodeTagReadFailed
}

// GetErrorCode extracts the error code, or -1 for foreign errors.
func GetErrorCode(err error) ErrorCode {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Code
	}
	return -1
}

// Package errors provides structured error handling for scanlab operations.
// It defines error codes, typed errors for the scanning and storage layers,
// and utilities for classifying failures at the API boundary.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"
	CodeNotFound      ErrorCode = "NOT_FOUND"

	// Target validation errors.
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeNotPrivate    ErrorCode = "NOT_PRIVATE"
	CodeTooLarge      ErrorCode = "TOO_LARGE"

	// Scan policy errors.
	CodeConsentRequired  ErrorCode = "CONSENT_REQUIRED"
	CodeScanInProgress   ErrorCode = "SCAN_IN_PROGRESS"
	CodeCooldownActive   ErrorCode = "COOLDOWN_ACTIVE"
	CodeScanningDisabled ErrorCode = "SCANNING_DISABLED"

	// Scan execution errors.
	CodeScanTool   ErrorCode = "SCAN_TOOL"
	CodeScanFailed ErrorCode = "SCAN_FAILED"

	// Storage errors.
	CodeStoreConnection ErrorCode = "STORE_CONNECTION"
	CodeStoreQuery      ErrorCode = "STORE_QUERY"
)

// ScanError represents an error raised by the scanning subsystem.
type ScanError struct {
	Code       ErrorCode
	Message    string
	Target     string
	RetryAfter time.Duration
	Cause      error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{Code: code, Message: message}
}

// NewScanErrorWithTarget creates a scan error for a specific target.
func NewScanErrorWithTarget(code ErrorCode, message, target string) *ScanError {
	return &ScanError{Code: code, Message: message, Target: target}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Cause: err}
}

// WrapScanErrorWithTarget wraps an error with target information.
func WrapScanErrorWithTarget(code ErrorCode, message, target string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Target: target, Cause: err}
}

// StoreError represents storage-related errors.
type StoreError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new storage error.
func NewStoreError(code ErrorCode, message string) *StoreError {
	return &StoreError{Code: code, Message: message}
}

// WrapStoreError wraps an existing error as a storage error.
func WrapStoreError(code ErrorCode, message, operation string, err error) *StoreError {
	return &StoreError{Code: code, Message: message, Operation: operation, Cause: err}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{Code: code, Message: message, Field: field, Value: value}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ScanError:
		return e.Code
	case *StoreError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsValidation reports whether the error is a target-validation failure
// that the user can fix by correcting the target.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case CodeInvalidFormat, CodeNotPrivate, CodeTooLarge:
		return true
	default:
		return false
	}
}

// IsRateLimit reports whether the error is a transient rate-limit failure
// that the caller should retry later.
func IsRateLimit(err error) bool {
	switch GetCode(err) {
	case CodeScanInProgress, CodeCooldownActive:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrConsentRequired creates the policy error returned when a scan is
// attempted without the caller confirming network ownership.
func ErrConsentRequired() *ScanError {
	return NewScanError(CodeConsentRequired,
		"User consent is required. You must confirm ownership of the network before scanning. "+
			"This tool should only be used on networks you own or have explicit permission to scan.")
}

// ErrScanInProgress creates the single-flight violation error.
func ErrScanInProgress() *ScanError {
	return NewScanError(CodeScanInProgress,
		"Another scan is already in progress. Please wait for it to complete or cancel it.")
}

// ErrCooldownActive creates the cooldown error with the exact wait time.
func ErrCooldownActive(remaining time.Duration) *ScanError {
	secs := int(remaining.Seconds() + 0.5)
	if secs < 1 {
		secs = 1
	}
	return &ScanError{
		Code: CodeCooldownActive,
		Message: fmt.Sprintf("Please wait %d seconds before starting another scan. "+
			"This prevents excessive network traffic.", secs),
		RetryAfter: remaining,
	}
}

// ErrScanningDisabled creates the error returned when live scanning is
// administratively turned off.
func ErrScanningDisabled() *ScanError {
	return NewScanError(CodeScanningDisabled,
		"Real network scanning is disabled. Enable it in settings or use training mode.")
}

// ErrScanTimeout creates an error for scan timeouts.
func ErrScanTimeout(target string, limit time.Duration) *ScanError {
	return NewScanErrorWithTarget(CodeTimeout,
		fmt.Sprintf("Scan timed out after %d seconds", int(limit.Seconds())), target)
}

// ErrScanNotFound creates an error for unknown scan ids.
func ErrScanNotFound(scanID string) *ScanError {
	return NewScanError(CodeNotFound, fmt.Sprintf("Scan %s not found", scanID))
}

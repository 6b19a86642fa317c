package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrUsage        ErrorCode = "USAGE"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Pack errors
	ErrPackNotFound ErrorCode = "PACK_NOT_FOUND"
	ErrPackInvalid  ErrorCode = "PACK_INVALID"
	ErrPackAccess   ErrorCode = "PACK_ACCESS"

	// Environment errors
	ErrEnvMissing ErrorCode = "ENV_MISSING"
	ErrEnvCreate  ErrorCode = "ENV_CREATE"
	ErrEnvState   ErrorCode = "ENV_STATE"

	// Installer / runner errors; both carry the child process status
	ErrInstall      ErrorCode = "INSTALL"
	ErrRunnerFailed ErrorCode = "RUNNER_FAILED"

	// FileSystem errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrDirCreate    ErrorCode = "DIR_CREATE"
)

// Exit codes for the CLI surface. Usage and configuration problems share
// code 2; a pack path that is not a directory is code 3. Install and runner
// failures do not map through this table: their child process status is
// attached with WithExitCode and propagated verbatim.
const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitUsage       = 2
	ExitInvalidPack = 3
)

// exitCodes maps error codes to process exit codes.
var exitCodes = map[ErrorCode]int{
	ErrUsage:        ExitUsage,
	ErrInvalidInput: ExitUsage,
	ErrEnvMissing:   ExitUsage,
	ErrConfigLoad:   ExitUsage,
	ErrConfigParse:  ExitUsage,
	ErrConfigValid:  ExitUsage,
	ErrPackNotFound: ExitInvalidPack,
	ErrPackInvalid:  ExitInvalidPack,
	ErrPackAccess:   ExitInvalidPack,
}

// PacktestError represents a structured error with code and details
type PacktestError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *PacktestError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PacktestError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *PacktestError) Is(target error) bool {
	var targetErr *PacktestError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new PacktestError with the given code and message
func New(code ErrorCode, message string) *PacktestError {
	return &PacktestError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new PacktestError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *PacktestError {
	return &PacktestError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a PacktestError
func Wrap(err error, code ErrorCode, message string) *PacktestError {
	if err == nil {
		return nil
	}
	return &PacktestError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *PacktestError {
	if err == nil {
		return nil
	}
	return &PacktestError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *PacktestError) WithDetail(key string, value interface{}) *PacktestError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithExitCode pins an explicit process exit code on the error. Used by the
// install and run steps to forward a child process status verbatim.
func (e *PacktestError) WithExitCode(code int) *PacktestError {
	return e.WithDetail("exit_code", code)
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var perr *PacktestError
	if errors.As(err, &perr) {
		return perr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a PacktestError
func GetErrorCode(err error) ErrorCode {
	var perr *PacktestError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a PacktestError
func GetErrorDetails(err error) map[string]interface{} {
	var perr *PacktestError
	if errors.As(err, &perr) {
		return perr.Details
	}
	return nil
}

// ExitCode resolves the process exit code for an error. An explicit
// exit_code detail (a forwarded child status) wins over the code table;
// unknown errors fall back to 1.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var perr *PacktestError
	if errors.As(err, &perr) {
		if v, ok := perr.Details["exit_code"]; ok {
			if code, ok := v.(int); ok {
				return code
			}
		}
		if code, ok := exitCodes[perr.Code]; ok {
			return code
		}
	}
	return ExitGeneral
}

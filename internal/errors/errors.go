package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a copilot error code.
type ErrorCode string

const (
	ErrInvalidName        ErrorCode = "INVALID_NAME"        // 400
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrCredential         ErrorCode = "CREDENTIAL"          // 401
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrDuplicateName      ErrorCode = "DUPLICATE_NAME"      // 409
	ErrToolExecution      ErrorCode = "TOOL_EXECUTION"      // 500, only ever returned to the model
	ErrPersistence        ErrorCode = "PERSISTENCE"         // 500
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrProvider           ErrorCode = "PROVIDER"            // 502
	ErrRuntimeUnavailable ErrorCode = "RUNTIME_UNAVAILABLE" // 503
)

// CopilotError represents a structured error with code, status, and details.
type CopilotError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *CopilotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *CopilotError) Unwrap() error {
	return e.cause
}

// NewInvalidName creates a 400 error for a workspace name that sanitizes to nothing.
func NewInvalidName(raw string) *CopilotError {
	return &CopilotError{
		Code:    ErrInvalidName,
		Status:  400,
		Message: "workspace name cannot be empty or contain only special characters",
		Details: map[string]any{"name": raw},
	}
}

// NewDuplicateName creates a 409 error for a case-insensitive workspace name collision.
func NewDuplicateName(name string) *CopilotError {
	return &CopilotError{
		Code:    ErrDuplicateName,
		Status:  409,
		Message: fmt.Sprintf("workspace %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// NewNotFound creates a 404 error for a missing workspace.
func NewNotFound(identifier string) *CopilotError {
	return &CopilotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("workspace %q not found", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CopilotError {
	return &CopilotError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewToolExecution creates an error describing a failed tool operation.
// The message format is what the model sees in the tool result.
func NewToolExecution(operation string, err error) *CopilotError {
	msg := "unknown error"
	var cErr *CopilotError
	if stderrors.As(err, &cErr) {
		msg = cErr.Message
	} else if err != nil {
		msg = err.Error()
	}
	return &CopilotError{
		Code:    ErrToolExecution,
		Status:  500,
		Message: fmt.Sprintf("Failed to execute %s operation: %s", operation, msg),
		Details: map[string]any{"operation": operation},
		cause:   err,
	}
}

// NewCredential creates a 401 error for a rejected provider credential.
func NewCredential(err error) *CopilotError {
	msg := "invalid or missing API key"
	if err != nil {
		msg = err.Error()
	}
	return &CopilotError{
		Code:    ErrCredential,
		Status:  401,
		Message: msg,
		cause:   err,
	}
}

// NewProvider creates a 502 error for any other provider failure.
func NewProvider(err error) *CopilotError {
	msg := "failed to generate AI response"
	if err != nil {
		msg = fmt.Sprintf("failed to generate AI response: %v", err)
	}
	return &CopilotError{
		Code:    ErrProvider,
		Status:  502,
		Message: msg,
		cause:   err,
	}
}

// NewPersistence creates a 500 error for a registry document that could not be written.
func NewPersistence(path string, err error) *CopilotError {
	return &CopilotError{
		Code:    ErrPersistence,
		Status:  500,
		Message: fmt.Sprintf("could not save %s: %v", path, err),
		Details: map[string]any{"path": path},
		cause:   err,
	}
}

// NewRuntimeUnavailable creates a 503 error when the execution runtime cannot be invoked.
func NewRuntimeUnavailable(command string, err error) *CopilotError {
	return &CopilotError{
		Code:    ErrRuntimeUnavailable,
		Status:  503,
		Message: fmt.Sprintf("%s runtime is not installed or not in PATH", command),
		Details: map[string]any{"command": command},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CopilotError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CopilotError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is, or wraps, a CopilotError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CopilotError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// As returns the CopilotError in err's chain, or wraps err as an internal error.
func As(err error) *CopilotError {
	var cErr *CopilotError
	if stderrors.As(err, &cErr) {
		return cErr
	}
	return NewInternal(err)
}

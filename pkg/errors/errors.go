// Package errors provides structured error handling for counselgo
package errors

import (
	"fmt"
	"strings"

	"github.com/maumtalk/counselgo/pkg/types"
)

// ErrorCode represents specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// Resource errors
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// System errors
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"

	// Store errors
	ErrCodeStoreError   ErrorCode = "STORE_ERROR"
	ErrCodeQueryFailed  ErrorCode = "QUERY_FAILED"
	ErrCodeWriteFailed  ErrorCode = "WRITE_FAILED"

	// LLM errors
	ErrCodeLLMError       ErrorCode = "LLM_ERROR"
	ErrCodeLLMTimeout     ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMAPIError    ErrorCode = "LLM_API_ERROR"
	ErrCodeLLMBadOutput   ErrorCode = "LLM_BAD_OUTPUT"
	ErrCodeLLMRateLimited ErrorCode = "LLM_RATE_LIMITED"

	// Pipeline errors
	ErrCodeResponseRejected ErrorCode = "RESPONSE_REJECTED"
	ErrCodeBudgetExceeded   ErrorCode = "BUDGET_EXCEEDED"

	// Configuration errors
	ErrCodeConfigError    ErrorCode = "CONFIG_ERROR"
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"
)

// CounselError represents a structured error in counselgo
type CounselError struct {
	Type    types.ErrorType        `json:"type"`
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *CounselError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *CounselError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *CounselError) WithDetail(key string, value interface{}) *CounselError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new counsel error
func New(errType types.ErrorType, code ErrorCode, message string) *CounselError {
	return &CounselError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// NewWithCause creates a new counsel error with a cause
func NewWithCause(errType types.ErrorType, code ErrorCode, message string, cause error) *CounselError {
	return &CounselError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation error constructors
func NewValidationError(message string) *CounselError {
	return New(types.ErrorTypeValidation, ErrCodeValidation, message)
}

func NewInvalidInputError(message string) *CounselError {
	return New(types.ErrorTypeValidation, ErrCodeInvalidInput, message)
}

func NewMissingFieldError(field string) *CounselError {
	return New(types.ErrorTypeValidation, ErrCodeMissingField,
		fmt.Sprintf("missing required field: %s", field)).WithDetail("field", field)
}

// Resource error constructors
func NewNotFoundError(resource string) *CounselError {
	return New(types.ErrorTypeNotFound, ErrCodeNotFound,
		fmt.Sprintf("%s not found", resource)).WithDetail("resource", resource)
}

// System error constructors
func NewInternalError(message string) *CounselError {
	return New(types.ErrorTypeInternal, ErrCodeInternal, message)
}

func NewInternalErrorWithCause(message string, cause error) *CounselError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeInternal, message, cause)
}

func NewServiceUnavailableError(service string) *CounselError {
	return New(types.ErrorTypeInternal, ErrCodeServiceUnavailable,
		fmt.Sprintf("%s service is unavailable", service)).WithDetail("service", service)
}

func NewTimeoutError(operation string) *CounselError {
	return New(types.ErrorTypeInternal, ErrCodeTimeout,
		fmt.Sprintf("%s operation timed out", operation)).WithDetail("operation", operation)
}

// Store error constructors
func NewStoreError(message string, cause error) *CounselError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeStoreError, message, cause)
}

func NewQueryFailedError(entity string, cause error) *CounselError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeQueryFailed,
		fmt.Sprintf("query for %s failed", entity), cause).WithDetail("entity", entity)
}

func NewWriteFailedError(entity string, cause error) *CounselError {
	return NewWithCause(types.ErrorTypeInternal, ErrCodeWriteFailed,
		fmt.Sprintf("write of %s failed", entity), cause).WithDetail("entity", entity)
}

// LLM error constructors
func NewLLMError(message string) *CounselError {
	return New(types.ErrorTypeExternal, ErrCodeLLMError, message)
}

func NewLLMAPIError(message string, cause error) *CounselError {
	return NewWithCause(types.ErrorTypeExternal, ErrCodeLLMAPIError, message, cause)
}

func NewLLMTimeoutError(model string) *CounselError {
	return New(types.ErrorTypeExternal, ErrCodeLLMTimeout,
		fmt.Sprintf("LLM request timed out: %s", model)).WithDetail("model", model)
}

// NewLLMBadOutputError marks structured model output that failed the schema
// check; callers treat it identically to a call failure.
func NewLLMBadOutputError(message string, cause error) *CounselError {
	return NewWithCause(types.ErrorTypeExternal, ErrCodeLLMBadOutput, message, cause)
}

// Pipeline error constructors
func NewResponseRejectedError(issues []string) *CounselError {
	return New(types.ErrorTypeValidation, ErrCodeResponseRejected,
		"generated response failed validation").WithDetail("issues", issues)
}

// Configuration error constructors
func NewConfigError(message string) *CounselError {
	return New(types.ErrorTypeValidation, ErrCodeConfigError, message)
}

func NewConfigNotFoundError(configPath string) *CounselError {
	return New(types.ErrorTypeNotFound, ErrCodeConfigNotFound,
		fmt.Sprintf("configuration file not found: %s", configPath)).WithDetail("config_path", configPath)
}

func NewConfigInvalidError(message string) *CounselError {
	return New(types.ErrorTypeValidation, ErrCodeConfigInvalid, message)
}

// IsCounselError checks if an error is a CounselError
func IsCounselError(err error) bool {
	_, ok := err.(*CounselError)
	return ok
}

// GetCounselError extracts a CounselError from an error
func GetCounselError(err error) *CounselError {
	if cerr, ok := err.(*CounselError); ok {
		return cerr
	}
	return nil
}

// Wrap wraps an error as a CounselError
func Wrap(err error, errType types.ErrorType, code ErrorCode, message string) *CounselError {
	return NewWithCause(errType, code, message, err)
}

// ErrorList represents a list of errors
type ErrorList struct {
	Errors []*CounselError `json:"errors"`
}

// Error implements the error interface
func (el *ErrorList) Error() string {
	var messages []string
	for _, err := range el.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Add adds an error to the list
func (el *ErrorList) Add(err *CounselError) {
	el.Errors = append(el.Errors, err)
}

// HasErrors returns true if there are errors
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// ToError returns the ErrorList as an error if it has errors, otherwise nil
func (el *ErrorList) ToError() error {
	if el.HasErrors() {
		return el
	}
	return nil
}

// NewErrorList creates a new error list
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*CounselError, 0),
	}
}

// Package errors provides a lightweight structured error type (RelixError)
// for category-based classification across the collect/render/publish pipeline and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a relix error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Release source errors (SourceUnavailable maps here when fatal)
	CategorySource  ErrorCategory = "source"
	CategoryCatalog ErrorCategory = "catalog"

	// Output production errors
	CategoryRender ErrorCategory = "render"
	CategoryWrite  ErrorCategory = "write"

	// Runtime and infrastructure errors
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// RelixError is a structured error with category, severity, and context
type RelixError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for RelixError
type ContextFields map[string]any

// Error implements the error interface
func (e *RelixError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *RelixError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *RelixError) WithContext(key string, value any) *RelixError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new RelixError
func New(category ErrorCategory, severity ErrorSeverity, message string) *RelixError {
	return &RelixError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new RelixError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *RelixError {
	return &RelixError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if re, ok := err.(*RelixError); ok {
		return re.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a RelixError
func GetCategory(err error) ErrorCategory {
	if re, ok := err.(*RelixError); ok {
		return re.Category
	}
	return CategoryInternal
}

// SourceUnavailable creates a fatal source error: the release source cannot
// be enumerated at all (as opposed to a single malformed entry).
func SourceUnavailable(err error, message string) *RelixError {
	return Wrap(err, CategorySource, SeverityFatal, message)
}

// MalformedEntry creates a non-fatal warning for one unparsable release or artifact.
func MalformedEntry(message string) *RelixError {
	return New(CategorySource, SeverityWarning, message)
}

// RenderError creates a fatal render error. Render failures always indicate
// an internal invariant violation, never bad optional data.
func RenderError(message string) *RelixError {
	return New(CategoryRender, SeverityFatal, message)
}

// WriteError creates a fatal write error wrapping the underlying filesystem cause.
func WriteError(err error, message string) *RelixError {
	return Wrap(err, CategoryWrite, SeverityFatal, message)
}

// ConfigError creates a configuration error
func ConfigError(message string) *RelixError {
	return New(CategoryConfig, SeverityFatal, message)
}

// Package errors provides error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Type identifies the category of error
type Type string

const (
	// TypeInput indicates an input validation error
	TypeInput Type = "INPUT_ERROR"

	// TypeParsing indicates a parsing error
	TypeParsing Type = "PARSING_ERROR"

	// TypeMissingColumn indicates a required column is absent from a table
	TypeMissingColumn Type = "MISSING_COLUMN"

	// TypeMissingValue indicates a row lacks a value needed by a stage
	TypeMissingValue Type = "MISSING_VALUE"

	// TypeValidation indicates a post-condition check failed
	TypeValidation Type = "VALIDATION"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeStorage indicates a persistence error
	TypeStorage Type = "STORAGE_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"

	// TypeNotFound indicates a resource not found error
	TypeNotFound Type = "NOT_FOUND"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType reports whether any error in err's chain is of type t
func IsType(err error, t Type) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Cause
	}
	return false
}

// Input creates an input error
func Input(message string) *Error {
	return New(TypeInput, message)
}

// Parsing creates a parsing error
func Parsing(message string, cause error) *Error {
	return Wrap(TypeParsing, message, cause)
}

// Config creates a configuration error
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// Storage creates a storage error
func Storage(message string, cause error) *Error {
	return Wrap(TypeStorage, message, cause)
}

// MissingColumns reports every column a stage needs that the table lacks.
// The column list is kept in the "columns" context key.
func MissingColumns(stage string, columns []string) *Error {
	return Newf(TypeMissingColumn, "%s: missing required columns: %s", stage, strings.Join(columns, ", ")).
		WithContext("stage", stage).
		WithContext("columns", columns)
}

// MissingValue reports a row that lacks a value a stage needs
func MissingValue(simNumber, field string) *Error {
	return Newf(TypeMissingValue, "%s has no value for %s", simNumber, field).
		WithContext("sim_number", simNumber).
		WithContext("field", field)
}

// Validation creates a validation error
func Validation(message string) *Error {
	return New(TypeValidation, message)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}

// ColumnsOf extracts the missing column list from a MISSING_COLUMN error
func ColumnsOf(err error) []string {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return nil
		}
		if e.Type == TypeMissingColumn {
			cols, _ := e.Context["columns"].([]string)
			return cols
		}
		err = e.Cause
	}
	return nil
}

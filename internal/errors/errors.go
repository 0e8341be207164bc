// Package errors defines the structured error types shared across the
// keyforge pipeline. Errors carry a category, the offending path where one
// exists, and the underlying cause, so callers can route on category without
// string matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of pipeline errors.
type ErrorType string

const (
	// ErrorTypeResolution covers unreadable config paths, malformed
	// archives, and failed directory enumeration.
	ErrorTypeResolution ErrorType = "resolution"
	// ErrorTypeGeneration covers failures raised by the engine.
	ErrorTypeGeneration ErrorType = "generation"
	// ErrorTypeMaterialization covers failed output writes.
	ErrorTypeMaterialization ErrorType = "materialization"
	// ErrorTypeIO covers lower-level filesystem failures wrapped by the
	// categories above.
	ErrorTypeIO ErrorType = "io"
)

// KeyforgeError is a structured error with pipeline context.
type KeyforgeError struct {
	Type    ErrorType
	Message string
	Path    string
	Stage   string
	Cause   error
}

// Error implements the error interface.
func (e *KeyforgeError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s]", e.Type))

	if e.Stage != "" {
		parts = append(parts, "stage:"+e.Stage)
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *KeyforgeError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by category.
func (e *KeyforgeError) Is(target error) bool {
	var t *KeyforgeError
	if errors.As(target, &t) {
		return e.Type == t.Type
	}

	return false
}

// WithStage annotates the error with the pipeline stage that produced it.
func (e *KeyforgeError) WithStage(stage string) *KeyforgeError {
	e.Stage = stage

	return e
}

// NewResolutionError creates an error for a failed config resolve.
func NewResolutionError(path, message string, cause error) *KeyforgeError {
	return &KeyforgeError{
		Type:    ErrorTypeResolution,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// NewGenerationError creates an error for a failed engine run.
func NewGenerationError(message string, cause error) *KeyforgeError {
	return &KeyforgeError{
		Type:    ErrorTypeGeneration,
		Message: message,
		Cause:   cause,
	}
}

// NewMaterializationError creates an error for a failed output write.
func NewMaterializationError(path, message string, cause error) *KeyforgeError {
	return &KeyforgeError{
		Type:    ErrorTypeMaterialization,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// IsType reports whether err (or anything it wraps) is a KeyforgeError of
// the given category.
func IsType(err error, t ErrorType) bool {
	var kfe *KeyforgeError
	if errors.As(err, &kfe) {
		return kfe.Type == t
	}

	return false
}

// UsageError is a command-line usage failure. It carries the process exit
// code so main can map argument problems to distinct codes.
type UsageError struct {
	Message  string
	ExitCode int
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a usage error with an explicit exit code.
func NewUsageError(message string, exitCode int) *UsageError {
	return &UsageError{Message: message, ExitCode: exitCode}
}

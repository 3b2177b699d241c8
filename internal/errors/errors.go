// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	SyntaxError  ErrorType = "SyntaxError"
	RuntimeError ErrorType = "RuntimeError"
	CompileError ErrorType = "CompileError"
)

// SourceLocation represents a location in source code
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// PopError represents an error with source location information
type PopError struct {
	Type     ErrorType
	Message  string
	Location SourceLocation
	Source   string // The source line where error occurred
}

// Error implements the error interface
func (e *PopError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s", e.Type, e.Message))

	if e.Location.Line > 0 {
		if e.Location.File != "" {
			sb.WriteString(fmt.Sprintf("\n  at %s:%d:%d",
				e.Location.File, e.Location.Line, e.Location.Column))
		} else {
			sb.WriteString(fmt.Sprintf("\n  at %d:%d",
				e.Location.Line, e.Location.Column))
		}

		if e.Source != "" {
			prefix := fmt.Sprintf("%d | ", e.Location.Line)
			sb.WriteString(fmt.Sprintf("\n\n  %s%s\n", prefix, e.Source))
			sb.WriteString("  " + strings.Repeat(" ", len(prefix)))
			if e.Location.Column > 0 {
				sb.WriteString(strings.Repeat(" ", e.Location.Column))
			}
			sb.WriteString("^")
		}
	}

	return sb.String()
}

// NewSyntaxError creates a new syntax error
func NewSyntaxError(message string, file string, line, column int) *PopError {
	return &PopError{
		Type:    SyntaxError,
		Message: message,
		Location: SourceLocation{
			File:   file,
			Line:   line,
			Column: column,
		},
	}
}

// NewRuntimeError creates a new runtime error
func NewRuntimeError(message string) *PopError {
	return &PopError{
		Type:    RuntimeError,
		Message: message,
	}
}

// NewCompileError creates a new compile error
func NewCompileError(message string, file string, line, column int) *PopError {
	return &PopError{
		Type:    CompileError,
		Message: message,
		Location: SourceLocation{
			File:   file,
			Line:   line,
			Column: column,
		},
	}
}

// WithSource adds source code context to the error
func (e *PopError) WithSource(source string) *PopError {
	e.Source = source
	return e
}

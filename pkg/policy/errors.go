package policy

import (
	"fmt"
	"strings"
)

// ErrorType categorizes the type of error encountered while loading a pack.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // YAML syntax error
	ErrorTypeStructural ErrorType = "structural" // Missing/invalid pack fields
	ErrorTypeIO         ErrorType = "io"         // File I/O error
)

// PackError is a rich pack-loading error with file context and an optional
// suggested fix. Malformed packs are deployment-time failures, so these
// errors carry enough detail to fix the pack without a debugger.
type PackError struct {
	Type       ErrorType // Category of error
	Message    string    // Error message
	File       string    // Pack file the error was found in
	Suggestion string    // Suggested fix (optional)
}

// Error implements the error interface.
func (e *PackError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Type, e.Message))
	if e.File != "" {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.File))
	}
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// ErrorList accumulates pack errors instead of failing on the first one,
// so a single validation run reports every problem in the pack.
type ErrorList struct {
	Errors []*PackError
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{Errors: make([]*PackError, 0)}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *PackError) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message, file string) {
	el.Add(&PackError{Type: errType, Message: message, File: file})
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", el.Count()))
	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil if the list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

package main

import (
	"errors"
	"fmt"
	"strings"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "format", "clean")
	Cause       string   // The underlying cause (e.g., "file not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}

	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}

	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewValidationError creates an error for invalid arguments
func NewValidationError(operation, field, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", field, value),
		Suggestions: suggestions,
	}
}

// NewNotFoundError creates an error for a missing document path
func NewNotFoundError(operation, file, path string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("%q not found in %s", path, file),
		Suggestions: suggestions,
	}
}

// NewFileError creates an error for file and document failures
func NewFileError(operation string, underlying error, suggestions ...string) *CLIError {
	cause := "file operation failed"
	details := ""

	if underlying != nil {
		details = underlying.Error()

		errStr := strings.ToLower(underlying.Error())
		switch {
		case strings.Contains(errStr, "no such file"):
			cause = "file not found"
		case strings.Contains(errStr, "permission denied"):
			cause = "insufficient permissions to access file"
		case strings.Contains(errStr, "failed to acquire lock"):
			cause = "package is currently locked by another process"
		case strings.Contains(errStr, "failed to parse"):
			cause = "document is not valid YAML"
		case strings.Contains(errStr, "not a directory"):
			cause = "expected a package directory"
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	return NewFileError(operation, err, suggestions...)
}

// Common suggestions
var CommonSuggestions = struct {
	CheckPath   string
	CheckConfig string
	RunHelp     string
	CheckPerms  string
	TryDryRun   string
	RunFmt      string
}{
	CheckPath:   "Verify the file or directory path exists",
	CheckConfig: "Check your configuration file or environment variables",
	RunHelp:     "Run command with --help for usage information",
	CheckPerms:  "Check file permissions and directory access",
	TryDryRun:   "Use --dry-run to preview the operation",
	RunFmt:      "Run 'assetctl fmt FILE...' to rewrite the files in canonical form",
}

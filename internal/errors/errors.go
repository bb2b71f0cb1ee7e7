// Package errors provides shared error types for the Confluence and Jira adapters.
package errors

import (
	"errors"
	"fmt"
)

// ConfigError indicates a backend is missing the URL or credential it needs.
type ConfigError struct {
	Backend string // "confluence", "jira", or empty for global configuration
	Message string
}

func (e *ConfigError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s is not configured: %s", e.Backend, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigError creates a ConfigError.
func NewConfigError(backend, message string) *ConfigError {
	return &ConfigError{Backend: backend, Message: message}
}

// NotFoundError indicates an entity was not found in a backend.
type NotFoundError struct {
	Backend    string // "confluence", "jira"
	EntityType string // "page", "issue", "space"
	Identifier string // page id, title, or issue key
}

func (e *NotFoundError) Error() string {
	if e.EntityType != "" {
		return fmt.Sprintf("%s not found in %s: %s", e.EntityType, e.Backend, e.Identifier)
	}
	return fmt.Sprintf("not found in %s: %s", e.Backend, e.Identifier)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(backend, entityType, identifier string) *NotFoundError {
	return &NotFoundError{
		Backend:    backend,
		EntityType: entityType,
		Identifier: identifier,
	}
}

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field   string // field name that failed validation
	Value   string // the invalid value (may be empty for sensitive data)
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// UpstreamError carries a non-success HTTP response from a backend.
type UpstreamError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Backend, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Backend, e.StatusCode, e.Body)
}

// ToolExecutionError is the uniform failure surfaced by the tool dispatcher.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return "tool execution failed: " + e.Err.Error()
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// IsConfig returns true if err is or wraps a ConfigError.
func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
// A 404 UpstreamError also counts as not found.
func IsNotFound(err error) bool {
	var target *NotFoundError
	if errors.As(err, &target) {
		return true
	}
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.StatusCode == 404
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsUpstream returns true if err is or wraps an UpstreamError.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// IsToolExecution returns true if err is or wraps a ToolExecutionError.
func IsToolExecution(err error) bool {
	var target *ToolExecutionError
	return errors.As(err, &target)
}

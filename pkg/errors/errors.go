// Package errors provides the error taxonomy shared by every gamesync job.
// Typed errors carry enough context (path, line, id, status) for a job to be
// re-run idempotently, and each maps onto a sentinel for errors.Is checks.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Aliases for the standard library so callers need a single errors import.
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// Sentinel errors for the gamesync system.
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrMissingInput indicates that a required input file does not exist
	ErrMissingInput = errors.New("missing input")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrParse indicates that a line or file is not valid JSON
	ErrParse = errors.New("parse error")

	// ErrUpstream indicates a failure talking to an external collaborator
	ErrUpstream = errors.New("upstream error")

	// ErrRateLimited indicates that an upstream rate limit has been hit
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates the upstream has no usable data for an id.
	// Jobs treat it as a skip rather than a failure.
	ErrUnavailable = errors.New("unavailable")

	// ErrBackupExists indicates a backup already exists and the policy forbids reuse
	ErrBackupExists = errors.New("backup already exists")

	// ErrAPIKeyRequired indicates that an API key is required but not provided
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// ParseError represents a line or file that is not valid JSON.
type ParseError struct {
	Format  string // "ndjson", "json", "yaml"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s parse error at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s parse error in %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NewParseError creates a new ParseError.
func NewParseError(format, file string, line int, err error) *ParseError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{
		Format:  format,
		File:    file,
		Line:    line,
		Message: message,
		Err:     err,
	}
}

// MissingInputError represents a required input file that does not exist.
// A job receiving it must abort before touching any store.
type MissingInputError struct {
	Role string // "master", "store", "secondary"
	Path string
	Err  error
}

// Error implements the error interface.
func (e *MissingInputError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("missing %s input %s", e.Role, e.Path)
	}
	return fmt.Sprintf("missing input %s", e.Path)
}

// Unwrap implements errors.Unwrap.
func (e *MissingInputError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput || target == ErrNotFound
}

// NewMissingInputError creates a new MissingInputError.
func NewMissingInputError(role, path string, err error) *MissingInputError {
	return &MissingInputError{Role: role, Path: path, Err: err}
}

// UpstreamError represents a network failure or non-200 response from a collaborator.
type UpstreamError struct {
	Service    string // "storefront", "openrouter", "gemini"
	ID         int64
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	prefix := fmt.Sprintf("%s error", e.Service)
	if e.ID != 0 {
		prefix = fmt.Sprintf("%s error for id %d", e.Service, e.ID)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", prefix, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *UpstreamError) Is(target error) bool {
	if target == ErrUpstream {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests && target == ErrRateLimited
}

// Retryable reports whether another attempt may succeed.
// Transport failures (no status) and server errors are retryable; client errors are not.
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// NewUpstreamError creates a new UpstreamError.
func NewUpstreamError(service string, id int64, statusCode int, err error) *UpstreamError {
	message := http.StatusText(statusCode)
	if err != nil {
		message = err.Error()
	}
	return &UpstreamError{
		Service:    service,
		ID:         id,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// RateLimitError is returned when an upstream answers 429.
// It triggers a run-wide pause instead of an ordinary retry.
type RateLimitError struct {
	Service    string
	ID         int64
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited (retry after %s)", e.Service, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Service)
}

// Is implements errors.Is support.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited || target == ErrUpstream
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(service string, id int64, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Service: service, ID: id, RetryAfter: retryAfter}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// IOError represents an error during I/O operations.
type IOError struct {
	Operation string // "read", "write", "rename", "backup", "open"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{Operation: operation, Path: path, Message: message, Err: err}
}

// JobError reports which job of a pipeline failed.
type JobError struct {
	Job string
	Err error
}

// Error implements the error interface.
func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed: %v", e.Job, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *JobError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMissingInput checks if an error is a missing input error.
func IsMissingInput(err error) bool {
	return errors.Is(err, ErrMissingInput)
}

// IsParse checks if an error is a parse error.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsRateLimited checks if an error is a rate limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsUnavailable checks if an upstream had nothing for an id.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRetryable reports whether an upstream failure deserves another attempt.
// Rate limits are handled separately and are not retryable here, and an
// upstream that has no data for an id will not grow some on a retry.
func IsRetryable(err error) bool {
	if err == nil || IsRateLimited(err) || IsUnavailable(err) {
		return false
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retryable()
	}
	return false
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, file string, line int, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, line, err)
}

// WrapUpstream wraps an error as an UpstreamError.
func WrapUpstream(service string, id int64, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return NewUpstreamError(service, id, statusCode, err)
}

// Package errors provides centralized error definitions and error handling utilities
// for linelog. It defines sentinel errors, typed errors carrying an explicit
// Kind tag, error constructors with context wrapping, and classification helpers.
//
// # Kinds
//
// Every typed error is tagged once, at its origin, with a Kind:
//   - KindOperational: something went wrong that operators need to see
//   - KindUserFacing: an expected, end-user-meaningful condition (never logged)
//   - KindClient: a fault reported by a remote client, carrying its own record
//
// Loggers branch on the tag through IsUserFacing and AsClientFault instead of
// inspecting concrete types at the call site.
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewConfigError("size must look like 10M").WithField("log.max_file_size")
//	err := errors.NewIOError("rename", path, cause)
//	err := errors.NewUserError("invoice already paid")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrInvalidConfig) { ... }
//	if errors.IsUserFacing(err) { ... }
//	if fault, ok := errors.AsClientFault(err); ok { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Iron-Ham/linelog/internal/record"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Kind categorizes an error at its origin.
type Kind int

const (
	// KindOperational is the default: a failure operators should see.
	KindOperational Kind = iota
	// KindUserFacing marks expected conditions meaningful to end users.
	KindUserFacing
	// KindClient marks faults reported by a remote client.
	KindClient
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindOperational:
		return "operational"
	case KindUserFacing:
		return "user-facing"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Configuration sentinel errors
var (
	// ErrInvalidConfig indicates that a configuration value was rejected.
	ErrInvalidConfig = New("invalid configuration")
	// ErrInvalidSize indicates a malformed size threshold such as "10X".
	ErrInvalidSize = New("invalid size")
	// ErrInvalidFolder indicates that the log folder cannot be used.
	ErrInvalidFolder = New("invalid log folder")
	// ErrInvalidFormat indicates an unknown on-disk layout name.
	ErrInvalidFormat = New("invalid log format")
	// ErrInvalidLevel indicates an unknown level name.
	ErrInvalidLevel = New("invalid level")
)

// Storage sentinel errors
var (
	// ErrIO indicates a file system failure while writing or rotating.
	ErrIO = New("log file i/o failed")
	// ErrMalformedRecord indicates a frame that could not be decoded.
	ErrMalformedRecord = New("malformed record")
	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = New("store is closed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// LinelogError is the base interface for all typed errors in this module.
type LinelogError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the level at which this error should be logged.
	Severity() record.Level

	// Kind returns the categorization set at the error's origin.
	Kind() Kind

	// IsRetryable returns true if the error is transient.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  record.Level
	kind      Kind
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() record.Level {
	return e.severity
}

// Kind returns the error categorization.
func (e *baseError) Kind() Kind {
	return e.kind
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Typed Errors
// -----------------------------------------------------------------------------

// ConfigError represents a rejected configuration value. Configuration
// errors are raised synchronously at setup and are fatal only to the log
// engine's startup.
//
// Example:
//
//	err := errors.NewConfigError("expected <integer><K|M|G>").
//		WithField("log.max_file_size").WithValue("10X").WithCause(errors.ErrInvalidSize)
//	fmt.Println(err) // "config error [field=log.max_file_size, value=10X]: expected <integer><K|M|G>: invalid size"
type ConfigError struct {
	baseError
	Field string
	Value any
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:  message,
			severity: record.LevelCritical,
			kind:     KindOperational,
		},
	}
}

// WithField adds the config key to the error context.
func (e *ConfigError) WithField(field string) *ConfigError {
	e.Field = field
	return e
}

// WithValue adds the rejected value to the error context.
func (e *ConfigError) WithValue(value any) *ConfigError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ConfigError) WithCause(cause error) *ConfigError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "config error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("config error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	if _, ok := target.(*ConfigError); ok {
		return true
	}
	if target == ErrInvalidConfig {
		return true
	}
	return e.baseError.Is(target)
}

// IOError represents a file system failure inside the store. These are
// transient from the store's point of view: the next append retries.
//
// Example:
//
//	err := errors.NewIOError("rename", "/var/log/app~1.log", cause)
//	fmt.Println(err) // "io error [op=rename, path=/var/log/app~1.log]: <cause>"
type IOError struct {
	baseError
	Op   string
	Path string
}

// NewIOError creates a new IOError.
func NewIOError(op, path string, cause error) *IOError {
	return &IOError{
		baseError: baseError{
			message:   op,
			cause:     cause,
			severity:  record.LevelError,
			kind:      KindOperational,
			retryable: true,
		},
		Op:   op,
		Path: path,
	}
}

// Error returns the formatted error message.
func (e *IOError) Error() string {
	prefix := fmt.Sprintf("io error [op=%s", e.Op)
	if e.Path != "" {
		prefix += fmt.Sprintf(", path=%s", e.Path)
	}
	prefix += "]"
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return prefix
}

// Is checks if this error matches the target.
func (e *IOError) Is(target error) bool {
	if _, ok := target.(*IOError); ok {
		return true
	}
	if target == ErrIO {
		return true
	}
	return e.baseError.Is(target)
}

// UserError represents an expected condition whose message is meant for the
// end user. Loggers drop these entirely.
//
// Example:
//
//	return errors.NewUserError("the invoice has already been paid")
type UserError struct {
	baseError
}

// NewUserError creates a new UserError.
func NewUserError(message string) *UserError {
	return &UserError{
		baseError: baseError{
			message:  message,
			severity: record.LevelInformation,
			kind:     KindUserFacing,
		},
	}
}

// WithCause adds a cause to the error.
func (e *UserError) WithCause(cause error) *UserError {
	e.cause = cause
	return e
}

// Is checks if this error matches the target.
func (e *UserError) Is(target error) bool {
	if _, ok := target.(*UserError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ClientFault wraps a record reported by a remote client so it can travel
// through the generic log call and be re-emitted with the client's own time,
// category and stack.
type ClientFault struct {
	baseError
	Record record.ClientRecord
}

// NewClientFault creates a ClientFault for the given client record.
func NewClientFault(r record.ClientRecord) *ClientFault {
	r.Side = record.SideClient
	if r.Count < 1 {
		r.Count = 1
	}
	return &ClientFault{
		baseError: baseError{
			message:  r.Message,
			severity: r.Level,
			kind:     KindClient,
		},
		Record: r,
	}
}

// Error returns the formatted error message.
func (e *ClientFault) Error() string {
	first, _, _ := strings.Cut(e.Record.Message, "\n")
	if e.Record.Count > 1 {
		return fmt.Sprintf("client fault (x%d): %s", e.Record.Count, first)
	}
	return fmt.Sprintf("client fault: %s", first)
}

// StackTrace returns the client's own stack trace.
func (e *ClientFault) StackTrace() string {
	return e.Record.StackTrace
}

// Is checks if this error matches the target.
func (e *ClientFault) Is(target error) bool {
	_, ok := target.(*ClientFault)
	return ok
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// KindOf returns the Kind tagged on err or anything it wraps.
// Untagged errors are operational.
func KindOf(err error) Kind {
	if err == nil {
		return KindOperational
	}
	var tagged LinelogError
	if As(err, &tagged) {
		return tagged.Kind()
	}
	return KindOperational
}

// IsUserFacing returns true if err was tagged user-facing at its origin.
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    return // expected condition, not operational noise
//	}
func IsUserFacing(err error) bool {
	return err != nil && KindOf(err) == KindUserFacing
}

// AsClientFault returns the ClientFault wrapped by err, if any.
func AsClientFault(err error) (*ClientFault, bool) {
	var fault *ClientFault
	if err != nil && As(err, &fault) {
		return fault, true
	}
	return nil, false
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var tagged LinelogError
	if As(err, &tagged) {
		return tagged.IsRetryable()
	}
	return Is(err, ErrIO)
}

// GetSeverity returns the level at which err should be logged.
// Returns LevelError for errors that don't implement LinelogError.
func GetSeverity(err error) record.Level {
	if err == nil {
		return record.LevelDebug
	}

	var tagged LinelogError
	if As(err, &tagged) {
		return tagged.Severity()
	}
	return record.LevelError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this preserves the LinelogError interface.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to open log folder")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to rotate %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Package errors provides the error taxonomy shared by the idecore packages.
// It defines sentinel errors for the five failure classes the lifecycle and
// navigation code report, domain errors that carry the step, project or file
// the failure belongs to, and classification helpers.
//
// # Error Types
//
// Domain-specific errors describe where a failure happened:
//   - ContextError: bring-up and shutdown of a project context
//   - HistoryError: navigation history loading and saving
//   - StoreError: on-disk state (drafts, recent projects, build configs)
//
// Semantic errors describe what went wrong:
//   - NotFoundError: missing backend, provider or navigable item
//   - InvalidDataError: oversized, non-UTF-8 or malformed persisted data
//   - NotSupportedError: operation a backend does not implement
//   - CanceledError: work stopped because its context was canceled
//
// # Usage
//
//	err := errors.NewContextError("bring-up failed", cause).
//	    WithStep("load-history").
//	    WithProject("/src/app")
//
//	if errors.Is(err, errors.ErrInvalidData) { ... }
//
//	var ctxErr *errors.ContextError
//	if errors.As(err, &ctxErr) { ... }
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that are logged and then ignored,
	// such as a failed save during shutdown.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that leave a context unusable.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Failure classes
var (
	// ErrNotFound indicates a missing backend, provider, file or navigable item.
	ErrNotFound = New("not found")
	// ErrInvalidData indicates persisted data that is oversized, not UTF-8 or malformed.
	ErrInvalidData = New("invalid data")
	// ErrNotSupported indicates an operation a backend does not implement.
	ErrNotSupported = New("not supported")
	// ErrPending indicates a duplicate request where only one may be outstanding.
	ErrPending = New("operation already pending")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

// Lifecycle sentinel errors
var (
	// ErrAlreadyRestored indicates a second restore of unsaved files.
	ErrAlreadyRestored = New("context already restored")
	// ErrAlreadyStarted indicates a sequencer run instance was started twice.
	ErrAlreadyStarted = New("sequence already started")
	// ErrContextFailed indicates an operation on a context whose bring-up failed.
	ErrContextFailed = New("context failed to initialize")
	// ErrContextUnloaded indicates an operation on a context that was unloaded.
	ErrContextUnloaded = New("context unloaded")
	// ErrLocked indicates a file lock held by another process.
	ErrLocked = New("resource is locked")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// IdeError is the base interface for all idecore errors.
type IdeError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operation may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity {
	return e.severity
}

func (e *baseError) IsRetryable() bool {
	return e.retryable
}

func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "kind [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ContextError represents a failure while bringing up or tearing down a
// project context.
//
// Example:
//
//	err := errors.NewContextError("bring-up failed", io.ErrUnexpectedEOF)
//	err = err.WithStep("load-history").WithProject("/src/app")
//	fmt.Println(err) // "context error [step=load-history, project=/src/app]: bring-up failed: unexpected EOF"
type ContextError struct {
	baseError
	Step    string
	Project string
}

// NewContextError creates a new ContextError.
func NewContextError(message string, cause error) *ContextError {
	return &ContextError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithStep records the pipeline step that failed.
func (e *ContextError) WithStep(step string) *ContextError {
	e.Step = step
	return e
}

// WithProject records the project file of the context.
func (e *ContextError) WithProject(project string) *ContextError {
	e.Project = project
	return e
}

// WithSeverity sets the error severity.
func (e *ContextError) WithSeverity(s Severity) *ContextError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ContextError) Error() string {
	var parts []string
	if e.Step != "" {
		parts = append(parts, fmt.Sprintf("step=%s", e.Step))
	}
	if e.Project != "" {
		parts = append(parts, fmt.Sprintf("project=%s", e.Project))
	}
	return e.format("context error", parts)
}

// Is checks if this error matches the target.
func (e *ContextError) Is(target error) bool {
	if _, ok := target.(*ContextError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// HistoryError represents a failure reading or writing a navigation
// history file.
//
// Example:
//
//	err := errors.NewHistoryError("file too large", errors.ErrInvalidData).WithPath(p)
type HistoryError struct {
	baseError
	Path string
	Line int
}

// NewHistoryError creates a new HistoryError.
func NewHistoryError(message string, cause error) *HistoryError {
	return &HistoryError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithPath records the history file path.
func (e *HistoryError) WithPath(path string) *HistoryError {
	e.Path = path
	return e
}

// WithLine records the 1-based line number in the history file.
func (e *HistoryError) WithLine(line int) *HistoryError {
	e.Line = line
	return e
}

// Error returns the formatted error message.
func (e *HistoryError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line=%d", e.Line))
	}
	return e.format("history error", parts)
}

// Is checks if this error matches the target.
func (e *HistoryError) Is(target error) bool {
	if _, ok := target.(*HistoryError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StoreError represents a failure in one of the on-disk state stores.
type StoreError struct {
	baseError
	Store string
	Path  string
}

// NewStoreError creates a new StoreError.
func NewStoreError(message string, cause error) *StoreError {
	return &StoreError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithStore names the store, e.g. "drafts" or "recent".
func (e *StoreError) WithStore(store string) *StoreError {
	e.Store = store
	return e
}

// WithPath records the file involved.
func (e *StoreError) WithPath(path string) *StoreError {
	e.Path = path
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *StoreError) WithRetryable(r bool) *StoreError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *StoreError) Error() string {
	var parts []string
	if e.Store != "" {
		parts = append(parts, fmt.Sprintf("store=%s", e.Store))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return e.format("store error", parts)
}

// Is checks if this error matches the target.
func (e *StoreError) Is(target error) bool {
	if _, ok := target.(*StoreError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("build system", "meson")
//	fmt.Println(err) // "build system 'meson' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if target == ErrNotFound {
		return true
	}
	return e.baseError.Is(target)
}

// InvalidDataError represents persisted data that could not be accepted.
//
// Example:
//
//	err := errors.NewInvalidDataError("history", "file exceeds 10 MiB")
type InvalidDataError struct {
	baseError
	Source string
	Reason string
}

// NewInvalidDataError creates a new InvalidDataError.
func NewInvalidDataError(source, reason string) *InvalidDataError {
	return &InvalidDataError{
		baseError: baseError{
			message:    fmt.Sprintf("invalid %s data: %s", source, reason),
			severity:   SeverityError,
			userFacing: true,
		},
		Source: source,
		Reason: reason,
	}
}

// WithCause adds a cause to the error.
func (e *InvalidDataError) WithCause(cause error) *InvalidDataError {
	e.cause = cause
	return e
}

// Is checks if this error matches the target.
func (e *InvalidDataError) Is(target error) bool {
	if _, ok := target.(*InvalidDataError); ok {
		return true
	}
	if target == ErrInvalidData {
		return true
	}
	return e.baseError.Is(target)
}

// NotSupportedError represents an operation a backend does not implement.
type NotSupportedError struct {
	baseError
	Operation string
	Backend   string
}

// NewNotSupportedError creates a new NotSupportedError.
func NewNotSupportedError(operation, backend string) *NotSupportedError {
	return &NotSupportedError{
		baseError: baseError{
			message:    fmt.Sprintf("%s is not supported by %s", operation, backend),
			severity:   SeverityWarning,
			userFacing: true,
		},
		Operation: operation,
		Backend:   backend,
	}
}

// Is checks if this error matches the target.
func (e *NotSupportedError) Is(target error) bool {
	if _, ok := target.(*NotSupportedError); ok {
		return true
	}
	if target == ErrNotSupported {
		return true
	}
	return e.baseError.Is(target)
}

// CanceledError represents work that stopped because its context was
// canceled. It matches ErrCanceled as well as the context error it wraps.
//
// Example:
//
//	if err := ctx.Err(); err != nil {
//	    return errors.NewCanceledError("bring-up", err)
//	}
type CanceledError struct {
	baseError
	Operation string
}

// NewCanceledError creates a new CanceledError.
func NewCanceledError(operation string, cause error) *CanceledError {
	return &CanceledError{
		baseError: baseError{
			message:  fmt.Sprintf("%s canceled", operation),
			cause:    cause,
			severity: SeverityInfo,
		},
		Operation: operation,
	}
}

// Is checks if this error matches the target.
func (e *CanceledError) Is(target error) bool {
	if _, ok := target.(*CanceledError); ok {
		return true
	}
	if target == ErrCanceled {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ideErr IdeError
	if As(err, &ideErr) {
		return ideErr.IsRetryable()
	}

	return Is(err, ErrLocked)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var ideErr IdeError
	if As(err, &ideErr) {
		return ideErr.IsUserFacing()
	}

	return false
}

// IsCanceled reports whether err stems from cancellation, either ErrCanceled
// or one of the context package errors.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrCanceled) || Is(err, context.Canceled) || Is(err, context.DeadlineExceeded)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement IdeError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var ideErr IdeError
	if As(err, &ideErr) {
		return ideErr.Severity()
	}

	return SeverityError
}

// IsDomainError returns true if the error is a ContextError, HistoryError
// or StoreError.
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var contextErr *ContextError
	var historyErr *HistoryError
	var storeErr *StoreError

	return As(err, &contextErr) || As(err, &historyErr) || As(err, &storeErr)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Package errors provides structured error types for Nyx.
// Every error carries a Kind used for exit-code mapping and a cause chain.
package errors

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind represents the category of an error.
type Kind uint8

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindConfiguration indicates an invalid or missing configuration option.
	KindConfiguration
	// KindGit indicates a repository open, resolve, walk, commit, tag or push failure.
	KindGit
	// KindVersionRange indicates an inferred version violating the configured range.
	KindVersionRange
	// KindTemplate indicates a malformed template.
	KindTemplate
	// KindService indicates a hosting-provider HTTP or protocol failure.
	KindService
	// KindSecurity indicates missing or rejected credentials.
	KindSecurity
	// KindIO indicates a state or changelog persistence failure.
	KindIO
	// KindRelease indicates a release pipeline failure not covered by a narrower kind.
	KindRelease
	// KindState indicates a state file load or staleness failure.
	KindState
	// KindTimeout indicates a network deadline was exceeded.
	KindTimeout
	// KindCanceled indicates the operation was canceled.
	KindCanceled
	// KindInternal indicates an internal error.
	KindInternal
)

// String returns a human-readable string for the error kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindGit:
		return "git"
	case KindVersionRange:
		return "version_range"
	case KindTemplate:
		return "template"
	case KindService:
		return "service"
	case KindSecurity:
		return "security"
	case KindIO:
		return "io"
	case KindRelease:
		return "release"
	case KindState:
		return "state"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Exit codes reported to the invoking shell.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitGit           = 3
	ExitVersionRange  = 4
	ExitPublication   = 5
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch GetKind(err) {
	case KindConfiguration, KindTemplate:
		return ExitConfiguration
	case KindGit:
		return ExitGit
	case KindVersionRange:
		return ExitVersionRange
	case KindService, KindSecurity:
		return ExitPublication
	default:
		return ExitFailure
	}
}

// Error is the standard error type for Nyx.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Op is the operation being performed when the error occurred.
	Op string
	// Message is a human-readable error message.
	Message string
	// Err is the underlying error.
	Err error
	// Fields names the resolved configuration fields that produced the error.
	Fields []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches this error.
// Sentinel targets (no Op) match by Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// WithFields records the configuration field names involved in the error.
func (e *Error) WithFields(fields ...string) *Error {
	e.Fields = append(e.Fields, fields...)
	return e
}

// New creates a new Error with the given kind and message.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf creates a new Error with the given kind and formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// GetKind returns the Kind of an error, or KindUnknown for foreign errors.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Constructors for the kinds used throughout the engine.

// Configuration creates a configuration error.
func Configuration(op, message string) *Error {
	return New(KindConfiguration, op, message)
}

// ConfigurationWrap wraps an error as a configuration error.
func ConfigurationWrap(err error, op, message string) *Error {
	return Wrap(err, KindConfiguration, op, message)
}

// Git creates a git operation error.
func Git(op, message string) *Error {
	return New(KindGit, op, message)
}

// GitWrap wraps an error as a git error.
func GitWrap(err error, op, message string) *Error {
	return Wrap(err, KindGit, op, message)
}

// VersionRange creates a version-range violation error.
func VersionRange(op, message string) *Error {
	return New(KindVersionRange, op, message)
}

// Template creates a template error.
func Template(op, message string) *Error {
	return New(KindTemplate, op, message)
}

// TemplateWrap wraps an error as a template error.
func TemplateWrap(err error, op, message string) *Error {
	return Wrap(err, KindTemplate, op, message)
}

// Service creates a hosting-service error.
func Service(op, message string) *Error {
	return New(KindService, op, message)
}

// ServiceWrap wraps an error as a hosting-service error.
func ServiceWrap(err error, op, message string) *Error {
	return Wrap(err, KindService, op, message)
}

// Security creates a credentials error.
func Security(op, message string) *Error {
	return New(KindSecurity, op, message)
}

// IO creates an I/O error.
func IO(op, message string) *Error {
	return New(KindIO, op, message)
}

// IOWrap wraps an error as an I/O error.
func IOWrap(err error, op, message string) *Error {
	return Wrap(err, KindIO, op, message)
}

// Release creates a release pipeline error.
func Release(op, message string) *Error {
	return New(KindRelease, op, message)
}

// State creates a state management error.
func State(op, message string) *Error {
	return New(KindState, op, message)
}

// StateWrap wraps an error as a state management error.
func StateWrap(err error, op, message string) *Error {
	return Wrap(err, KindState, op, message)
}

// TimeoutWrap wraps an error as a timeout error.
func TimeoutWrap(err error, op, message string) *Error {
	return Wrap(err, KindTimeout, op, message)
}

// Sensitive data redaction patterns. Tokens must never reach logs or
// error messages verbatim.
var sensitivePatterns = []*regexp.Regexp{
	// GitHub tokens: ghp_..., gho_..., ghs_..., ghr_...
	regexp.MustCompile(`\bgh[posh]_[a-zA-Z0-9]{36,}\b`),
	// GitLab personal access tokens
	regexp.MustCompile(`\bglpat-[a-zA-Z0-9_-]{20,}\b`),
	// Generic bearer tokens
	regexp.MustCompile(`\bBearer\s+[a-zA-Z0-9._-]{20,}\b`),
	// Basic auth with password in URL
	regexp.MustCompile(`://[^:/@\s]+:[^@\s]+@`),
}

// RedactSensitive removes credential material from a string.
func RedactSensitive(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// RedactError returns an error whose message has credential material removed.
// Returns nil for nil input.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	redacted := RedactSensitive(err.Error())
	if redacted == err.Error() {
		return err
	}
	return fmt.Errorf("%s", redacted)
}

// Package bqerr defines the error taxonomy shared by the data source
// adapters and the orchestrator. Every error carries a kind used for
// recoverability decisions and a remediation hint shown to the user.
package bqerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation decisions.
type Kind int

const (
	// KindUnknown covers errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindValidation marks invalid configuration or arguments. Raised at
	// construction time, never deferred.
	KindValidation
	// KindAuthentication marks missing or invalid ambient credentials.
	// Always fatal; the orchestrator never swallows it.
	KindAuthentication
	// KindPermissionDenied marks a missing per-source IAM capability.
	KindPermissionDenied
	// KindNetwork marks transport failures, timeouts, and exhausted retries.
	KindNetwork
	// KindNotEnabled marks the audit-log source reporting that Data Access
	// logging is not activated for the project.
	KindNotEnabled
	// KindNotFound marks a missing dataset or table.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNetwork:
		return "network"
	case KindNotEnabled:
		return "not_enabled"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a classified error with an optional remediation hint and the
// name of the data source that produced it.
type Error struct {
	Kind   Kind
	Source string
	Msg    string
	Hint   string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a classified error around an underlying cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Authentication builds a KindAuthentication error with the standard
// gcloud remediation hint.
func Authentication(err error) *Error {
	return &Error{
		Kind: KindAuthentication,
		Msg:  "authentication failed",
		Hint: "Run 'gcloud auth application-default login' to set up credentials, then retry.",
		Err:  err,
	}
}

// PermissionDenied builds a KindPermissionDenied error naming the source
// and the IAM role it requires.
func PermissionDenied(source, role string, err error) *Error {
	return &Error{
		Kind:   KindPermissionDenied,
		Source: source,
		Msg:    "permission denied",
		Hint:   fmt.Sprintf("Grant the '%s' role to the active account and retry.", role),
		Err:    err,
	}
}

// Network builds a KindNetwork error.
func Network(source string, err error) *Error {
	return &Error{
		Kind:   KindNetwork,
		Source: source,
		Msg:    "network error",
		Hint:   "Check connectivity and retry. If the problem persists, try again later.",
		Err:    err,
	}
}

// RateLimited builds a KindNetwork error for exhausted rate-limit retries.
func RateLimited(source string, err error) *Error {
	return &Error{
		Kind:   KindNetwork,
		Source: source,
		Msg:    "rate limit exceeded and retries exhausted",
		Hint:   "Wait a short while before retrying, or narrow the time window.",
		Err:    err,
	}
}

// NotEnabled builds a KindNotEnabled error for the audit-log source.
func NotEnabled(source string) *Error {
	return &Error{
		Kind:   KindNotEnabled,
		Source: source,
		Msg:    "BigQuery Data Access audit logging is not enabled for this project",
		Hint:   "Enable Data Access logs for BigQuery under IAM & Admin > Audit Logs, then retry.",
	}
}

// KindOf returns the kind of err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRecoverable reports whether the orchestrator may skip the failing
// source and continue with the other one.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case KindPermissionDenied, KindNetwork, KindNotEnabled:
		return true
	default:
		return false
	}
}

// Package errs implements the error taxonomy of spec.md section 7:
// Input, Resource, Validation, Integrity and Internal errors, each
// carrying a kind, message and optional location, in the same
// Error{Code, Err}-wrapping shape the reference backend's apierr
// package uses for its own API error boundary.
package errs

import "fmt"

// Kind classifies an Error for both CLI exit-code mapping and the
// coordinator's retry policy.
type Kind string

const (
	KindInput      Kind = "input"
	KindResource   Kind = "resource"
	KindValidation Kind = "validation"
	KindIntegrity  Kind = "integrity"
	KindInternal   Kind = "internal"
)

// Error is a structured, wrapped error carrying a taxonomy Kind, a
// machine-readable Code, an optional source Location (byte offset,
// segment index, or blob id depending on the stage) and the
// underlying cause.
type Error struct {
	Kind     Kind
	Code     string
	Location string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Code
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Location != "" {
		msg = fmt.Sprintf("%s at %s", msg, e.Location)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retriable reports whether the coordinator may retry the stage that
// produced this error. Only insufficient-memory resource errors are
// retriable per spec.md 4.2 and 7; everything else is terminal for the
// job (cancellation is handled separately and is never an Error).
func (e *Error) Retriable() bool {
	return e != nil && e.Kind == KindResource && e.Code == CodeInsufficientMemory
}

// Recognized Codes. Not exhaustive — stages may mint ad hoc codes
// within their Kind — but these are referenced by name elsewhere in
// the pipeline (coordinator retry policy, CLI exit-code mapping).
const (
	CodeMalformedSRT        = "malformed_srt"
	CodeMissingFlag         = "missing_flag"
	CodeEmptyTimeline       = "empty_timeline_after_trim"
	CodeUnsupportedEncoding = "unsupported_encoding"
	CodeInsufficientMemory  = "insufficient_memory"
	CodeBackendLoadFailed   = "backend_load_failed"
	CodeDiskFull            = "disk_full"
	CodePlannerError        = "planner_error"
	CodeContentHashMismatch = "content_hash_mismatch"
	CodeSignatureFailure    = "signature_failure"
	CodeOrphanAnchor        = "orphan_anchor"
	CodeInvariantViolation  = "invariant_violation"
)

func Input(code, location string, cause error) *Error {
	return &Error{Kind: KindInput, Code: code, Location: location, Err: cause}
}

func Resource(code, location string, cause error) *Error {
	return &Error{Kind: KindResource, Code: code, Location: location, Err: cause}
}

func Validation(code, location string, cause error) *Error {
	return &Error{Kind: KindValidation, Code: code, Location: location, Err: cause}
}

func Integrity(code, location string, cause error) *Error {
	return &Error{Kind: KindIntegrity, Code: code, Location: location, Err: cause}
}

func Internal(code, location string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: code, Location: location, Err: cause}
}

// ExitCode maps a Kind to the CLI exit code defined in spec.md section 6:
// 0 success, 1 validation rejection, 2 input error, 3 resource
// exhaustion, 4 internal error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !asError(err, &e) {
		return 4
	}
	switch e.Kind {
	case KindValidation:
		return 1
	case KindInput:
		return 2
	case KindResource:
		return 3
	default:
		return 4
	}
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Package brickqlerr defines the structured error taxonomy returned by
// every stage of the validate-and-compile pipeline: a parse error, a
// validation error, a compilation error, or a dialect profile config
// error. Each carries a dotted machine-readable Code and a Details map
// so callers (and the LLM repair loop) can branch on it without string
// matching the Message.
package brickqlerr

import "fmt"

// Kind classifies which pipeline stage raised the error.
type Kind string

const (
	KindParse         Kind = "parse"
	KindValidation    Kind = "validation"
	KindCompilation   Kind = "compilation"
	KindProfileConfig Kind = "profile_config"
)

// Error is the single structured error type returned across the
// pipeline. Code is a dotted machine-readable string such as
// "validate.unknown_table" or "compile.unsupported_datepart_field";
// Details carries whatever context the raising site found useful
// (paths, offending values, allowed sets).
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ToErrorResponse renders the shape §4 documents for surfacing to a
// caller or repair prompt: kind, code, message, and details verbatim.
func (e *Error) ToErrorResponse() map[string]any {
	return map[string]any{
		"kind":    string(e.Kind),
		"code":    e.Code,
		"message": e.Message,
		"details": e.Details,
	}
}

func newError(kind Kind, code, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Details: details}
}

// NewParseError builds a malformed-input error (§4.1).
func NewParseError(code, message string, details map[string]any) *Error {
	return newError(KindParse, code, message, details)
}

// NewValidationError builds a schema/semantic/policy-violation error (§4.2, §4.3).
func NewValidationError(code, message string, details map[string]any) *Error {
	return newError(KindValidation, code, message, details)
}

// NewCompilationError builds an error raised while rendering SQL (§4.4).
func NewCompilationError(code, message string, details map[string]any) *Error {
	return newError(KindCompilation, code, message, details)
}

// NewProfileConfigError builds a DialectProfile construction error, raised
// when a capability dependency is violated (e.g. ctes() without
// subqueries()).
func NewProfileConfigError(code, message string, details map[string]any) *Error {
	return newError(KindProfileConfig, code, message, details)
}

// WithCause attaches an underlying error, preserving errors.Is/As chains.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// IsKind reports whether err is itself a *Error of the given kind. It does
// not unwrap: an *Error wrapped inside another error does not match.
func IsKind(err error, kind Kind) bool {
	var be *Error
	if e, ok := err.(*Error); ok {
		be = e
	} else {
		return false
	}
	return be.Kind == kind
}

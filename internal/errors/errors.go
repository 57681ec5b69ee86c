package errors

import (
	stderrors "errors"
	"fmt"
)

// ReadyError is the structured error used across runready. The stable
// code drives category and severity; suggestion and details feed the
// CLI and MCP presentation layers.
type ReadyError struct {
	Code       string            // stable identifier, e.g. "ERR_201_FILE_NOT_FOUND"
	Message    string            // human-readable summary
	Category   Category          // derived from the code
	Severity   Severity          // derived from the code
	Details    map[string]string // structured context for logs
	Cause      error             // wrapped source error, may be nil
	Suggestion string            // actionable next step for the user
}

func (e *ReadyError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the cause to the stdlib errors package.
func (e *ReadyError) Unwrap() error {
	return e.Cause
}

// Is matches ReadyErrors by code, so sentinel comparisons survive
// differing messages.
func (e *ReadyError) Is(target error) bool {
	t, ok := target.(*ReadyError)
	return ok && t != nil && e.Code == t.Code
}

// WithDetail attaches one key-value pair. Chainable.
func (e *ReadyError) WithDetail(key, value string) *ReadyError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the user-facing next step. Chainable.
func (e *ReadyError) WithSuggestion(suggestion string) *ReadyError {
	e.Suggestion = suggestion
	return e
}

// New builds a ReadyError, deriving category and severity from code.
func New(code string, message string, cause error) *ReadyError {
	return &ReadyError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap lifts err into a ReadyError, reusing its message. Wrapping nil
// yields nil.
func Wrap(code string, err error) *ReadyError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError builds a configuration error.
func ConfigError(message string, cause error) *ReadyError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError builds a file or disk error.
func IOError(message string, cause error) *ReadyError {
	return New(ErrCodeFileNotFound, message, cause)
}

// HostError builds a host probe error. It carries warning severity: a
// failed probe degrades the snapshot rather than aborting the run.
func HostError(message string, cause error) *ReadyError {
	return New(ErrCodeHostProbe, message, cause)
}

// ValidationError builds an input validation error.
func ValidationError(message string, cause error) *ReadyError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError builds an unexpected-failure error.
func InternalError(message string, cause error) *ReadyError {
	return New(ErrCodeInternal, message, cause)
}

// as finds the first ReadyError in err's chain.
func as(err error) (*ReadyError, bool) {
	var re *ReadyError
	ok := stderrors.As(err, &re)
	return re, ok
}

// IsFatal reports whether err carries fatal severity anywhere in its
// chain.
func IsFatal(err error) bool {
	re, ok := as(err)
	return ok && re.Severity == SeverityFatal
}

// GetCode returns the code of the first ReadyError in err's chain, or
// "" when there is none.
func GetCode(err error) string {
	if re, ok := as(err); ok {
		return re.Code
	}
	return ""
}

// GetCategory returns the category of the first ReadyError in err's
// chain, or "" when there is none.
func GetCategory(err error) Category {
	if re, ok := as(err); ok {
		return re.Category
	}
	return ""
}

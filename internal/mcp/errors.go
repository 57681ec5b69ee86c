// Package mcp exposes the readiness tooling over the Model Context
// Protocol, so MCP clients can call the same checks the CLI runs.
package mcp

import (
	"context"
	"errors"
	"fmt"

	rrerrors "github.com/runready/runready/internal/errors"
)

// RunReady-specific JSON-RPC error codes, in the implementation-defined
// range below -32000.
const (
	// ErrCodeRulesUnavailable: the detection ruleset failed to load.
	ErrCodeRulesUnavailable = -32001

	// ErrCodeHistoryUnavailable: the run history store failed.
	ErrCodeHistoryUnavailable = -32002

	// ErrCodeTimeout: the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeProbeFailed: a host probe failed outright.
	ErrCodeProbeFailed = -32004
)

// Standard JSON-RPC error codes.
const (
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinels the dispatcher returns before a response is built.
var (
	ErrToolNotFound  = errors.New("tool not found")
	ErrInvalidParams = errors.New("invalid parameters")
)

// MCPError is the error shape sent back over the protocol.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// wellKnownErrors pairs each sentinel (and the context errors) with the
// response it produces. Order matters only in that the first match wins.
var wellKnownErrors = []struct {
	is   error
	code int
	msg  string
}{
	{ErrToolNotFound, ErrCodeMethodNotFound, "Tool not found."},
	{ErrInvalidParams, ErrCodeInvalidParams, "Invalid parameters."},
	{context.DeadlineExceeded, ErrCodeTimeout, "Request timed out."},
	{context.Canceled, ErrCodeTimeout, "Request was canceled."},
}

// MapError converts an internal error into the MCPError a client sees.
// ReadyErrors map by code and category; everything else collapses to a
// generic message so internals don't leak to the client.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var re *rrerrors.ReadyError
	if errors.As(err, &re) {
		return mapReadyError(re)
	}

	for _, known := range wellKnownErrors {
		if errors.Is(err, known.is) {
			return &MCPError{Code: known.code, Message: known.msg}
		}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
}

// mapReadyError picks the protocol code for a ReadyError. The message
// passes through, with the suggestion appended when one is set.
func mapReadyError(re *rrerrors.ReadyError) *MCPError {
	message := re.Message
	if re.Suggestion != "" {
		message = re.Message + " " + re.Suggestion
	}

	code := ErrCodeInternalError
	switch {
	case re.Code == rrerrors.ErrCodeRulesInvalid:
		code = ErrCodeRulesUnavailable
	case re.Code == rrerrors.ErrCodeHistoryCorrupt,
		re.Code == rrerrors.ErrCodeHistoryFailed:
		code = ErrCodeHistoryUnavailable
	case re.Category == rrerrors.CategoryHost:
		code = ErrCodeProbeFailed
	case re.Category == rrerrors.CategoryValidation:
		code = ErrCodeInvalidParams
	}

	return &MCPError{Code: code, Message: message}
}

// NewInvalidParamsError builds an invalid-params error with a custom
// message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError builds the error for an unknown tool name.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

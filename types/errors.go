/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

import (
	"errors"
	"fmt"
)

// ToolErrorCode tells a calling agent what kind of failure a tool hit and so
// whether retrying with other arguments can help.
type ToolErrorCode string

const (
	CodeInvalidArgument ToolErrorCode = "invalid_argument"
	CodeNotFound        ToolErrorCode = "not_found"
	CodeAlreadyExists   ToolErrorCode = "already_exists"
	// CodeFailedPrecondition covers graph state that blocks the call:
	// unfinished dependencies, a dependency cycle, an id held by another
	// node type.
	CodeFailedPrecondition ToolErrorCode = "failed_precondition"
	CodeInternal           ToolErrorCode = "internal"
)

// ToolError is the "error" body of a failed tool result.
type ToolError struct {
	Code    ToolErrorCode  `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any ToolError with the same code, so callers can test
// errors.Is(err, &ToolError{Code: CodeNotFound}).
func (e *ToolError) Is(target error) bool {
	var t *ToolError
	return errors.As(target, &t) && t.Code == e.Code
}

// NewToolError builds a ToolError from a formatted message.
func NewToolError(code ToolErrorCode, format string, args ...any) *ToolError {
	return &ToolError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidField reports a bad or missing tool argument.
func InvalidField(field, msg string) *ToolError {
	return &ToolError{Code: CodeInvalidArgument, Message: msg, Field: field}
}

// With attaches a detail and returns e.
func (e *ToolError) With(key string, v any) *ToolError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = v
	return e
}

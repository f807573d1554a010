// Package errdefs defines the error classes the UI tells apart when
// reporting: validation problems keep the current loop alive, not-found
// aborts the operation and refreshes the view, tool errors carry a child
// process's stderr. User cancellation is deliberately not an error type;
// components return it as a distinguished result instead.
package errdefs

import (
	"errors"
	"fmt"
)

// ValidationError reports bad user input. The active loop continues after
// showing it inline.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing alias, forward, or file.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// NotFound builds a NotFoundError.
func NotFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

// ToolError reports a non-zero exit from an external binary. Stderr holds
// the captured, trimmed diagnostic output.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// AsValidation unwraps err to a ValidationError if one is in its chain.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	ok := errors.As(err, &v)
	return v, ok
}

// AsNotFound unwraps err to a NotFoundError if one is in its chain.
func AsNotFound(err error) (*NotFoundError, bool) {
	var n *NotFoundError
	ok := errors.As(err, &n)
	return n, ok
}

// AsTool unwraps err to a ToolError if one is in its chain.
func AsTool(err error) (*ToolError, bool) {
	var t *ToolError
	ok := errors.As(err, &t)
	return t, ok
}

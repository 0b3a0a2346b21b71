package core

import (
	"errors"
	"fmt"
)

const (
	ErrCodeCyclicDependency        = "CYCLIC_DEPENDENCY"
	ErrCodeUnsupportedPropertyType = "UNSUPPORTED_PROPERTY_TYPE"
	ErrCodeModelGeneration         = "MODEL_GENERATION_FAILURE"
	ErrCodeActionNotFound          = "ACTION_NOT_FOUND"
	ErrCodeToolNotFound            = "TOOL_NOT_FOUND"
	ErrCodeToolCallNotFound        = "TOOL_CALL_NOT_FOUND"
	ErrCodeRuntimeNotFound         = "RUNTIME_NOT_FOUND"
	ErrCodeInvalidConfig           = "INVALID_CONFIGURATION"
)

// Error is the coded error shared by every engine component.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	err     error
}

func NewError(err error, code string, details map[string]any) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    code,
		Message: msg,
		Details: details,
		err:     err,
	}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *Error) AsMap() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"code":    e.Code,
		"message": e.Message,
		"details": e.Details,
	}
}

// Errorf builds a coded error from a format string.
func Errorf(code string, details map[string]any, format string, args ...any) *Error {
	return NewError(fmt.Errorf(format, args...), code, details)
}

// HasCode reports whether err, or any error it wraps, is a *Error with code.
func HasCode(err error, code string) bool {
	var coreErr *Error
	if !errors.As(err, &coreErr) {
		return false
	}
	return coreErr.Code == code
}

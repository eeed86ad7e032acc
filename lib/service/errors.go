// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "fmt"

// CodeInternal is the catch-all failure code for errors that carry no
// explicit code of their own.
const CodeInternal = "internal"

// Error is a failure with a stable wire code. Handlers return it (via
// WithCode) so the server can put the code in the response envelope.
type Error struct {
	Code    string
	Message string

	// wrapped preserves the original error for errors.Is/As chains
	// on the server side.
	wrapped error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// WithCode wraps err with a wire code, preserving the error chain.
func WithCode(code string, err error) *Error {
	return &Error{Code: code, Message: err.Error(), wrapped: err}
}

// Errorf builds a coded error from a format string.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

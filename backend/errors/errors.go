// Copyright (C) 2025 parley.chat <dev@parley.chat>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is a coded error whose Message is safe to show to end users.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Forbidden(msg string) error {
	return New(CodeForbidden, msg)
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}

// CodeOf extracts the code from err, or CodeUnknown for uncoded errors.
func CodeOf(err error) Code {
	var app *AppError
	if stderrors.As(err, &app) {
		return app.Code
	}
	return CodeUnknown
}

// MessageOf extracts the user-facing message from err. Uncoded errors get a
// generic message so internals never leak to clients.
func MessageOf(err error) string {
	var app *AppError
	if stderrors.As(err, &app) {
		return app.Message
	}
	return "something went wrong"
}

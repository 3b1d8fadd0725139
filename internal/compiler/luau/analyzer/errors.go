// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package analyzer

import (
	"errors"
	"fmt"
	"strings"
)

// Errors represents a series of errors encountered during translation.
type Errors []*Error

func (e Errors) Error() string {

	if len(e) == 0 {
		return "no error(s)"
	}

	if len(e) == 1 {
		return fmt.Sprintf("1 error occurred: %v", e[0].Error())
	}

	s := []string{}
	for _, err := range e {
		s = append(s, err.Error())
	}

	return fmt.Sprintf("%d errors occurred:\n%s", len(e), strings.Join(s, "\n"))
}

// Unwrap returns the individual errors.
func (e Errors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// ErrCode defines the types of errors returned during analysis and code
// generation.
type ErrCode int

const (
	// StructuralErr indicates malformed input: an index out of range, an
	// unmatched control construct, a stack underflow or a bad branch target.
	StructuralErr ErrCode = iota

	// TypeErr indicates a declared type is inconsistent with the operand
	// stack, or a type could not be derived from it.
	TypeErr

	// UnsupportedErr indicates an instruction has no emission rule.
	UnsupportedErr
)

func (c ErrCode) String() string {
	switch c {
	case StructuralErr:
		return "structural_error"
	case TypeErr:
		return "type_error"
	case UnsupportedErr:
		return "unsupported_error"
	}
	return "unknown_error"
}

// IsError returns true if err is, or wraps, an Error with code.
func IsError(code ErrCode, err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Location identifies an instruction: the function's index in the module's
// function index space and the instruction's offset in the function body.
type Location struct {
	Func   uint32 `json:"func"`
	Offset int    `json:"offset"`
}

func (loc *Location) String() string {
	return fmt.Sprintf("func %d @ %d", loc.Func, loc.Offset)
}

// Error represents a single error caught during analysis or code generation.
type Error struct {
	Code     ErrCode   `json:"code"`
	Location *Location `json:"location"`
	Message  string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Location == nil {
		return fmt.Sprintf("%v: %v", e.Code, e.Message)
	}
	return fmt.Sprintf("%v: %v: %v", e.Location, e.Code, e.Message)
}

// NewError returns a new Error object.
func NewError(code ErrCode, loc *Location, f string, a ...interface{}) *Error {
	return &Error{
		Code:     code,
		Location: loc,
		Message:  fmt.Sprintf(f, a...),
	}
}
